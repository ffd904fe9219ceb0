package store

import (
	"crypto/rand"
	"sync"
	"time"
)

// Push ids follow the Firebase scheme: 8 chars encoding the creation
// millisecond, then 12 random chars. Lexicographic order over the
// alphabet equals creation order; same-millisecond ids from one process
// stay ordered by incrementing the previous random suffix.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type pushIDGenerator struct {
	mu       sync.Mutex
	lastMs   int64
	lastRand [12]byte // alphabet indices
	now      func() time.Time
}

func newPushIDGenerator() *pushIDGenerator {
	return &pushIDGenerator{now: time.Now}
}

func (g *pushIDGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms == g.lastMs {
		// Same millisecond: bump the previous suffix so the new id
		// still sorts after it.
		for i := 11; i >= 0; i-- {
			if g.lastRand[i] < 63 {
				g.lastRand[i]++
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		var buf [12]byte
		rand.Read(buf[:])
		for i, b := range buf {
			g.lastRand[i] = b & 63
		}
		g.lastMs = ms
	}

	var id [20]byte
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[ms&63]
		ms >>= 6
	}
	for i, idx := range g.lastRand {
		id[8+i] = pushAlphabet[idx]
	}
	return string(id[:])
}
