// Package presence marks clients present on a whiteboard and, through
// the store's disconnect-triggered write, absent when their connection
// drops — even when the process never gets to say goodbye.
package presence

import (
	"context"
	"time"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/store"
)

// Entry 클라이언트 한 명의 접속 상태
type Entry struct {
	Present bool   `json:"present"`
	UID     string `json:"uid,omitempty"`
	Joined  int64  `json:"joined,omitempty"`
	Left    int64  `json:"left,omitempty"`
}

// Tracker 화이트보드별 접속 상태 추적
type Tracker struct {
	store store.Store
	now   func() time.Time
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st, now: time.Now}
}

func clientPath(whiteboardID, clientID string) string {
	return "presence/" + whiteboardID + "/" + clientID
}

// Join marks the client present and arms the disconnect write on its
// connection, so the absent marker lands without any cooperation from
// the client.
func (t *Tracker) Join(ctx context.Context, whiteboardID, clientID string, actor auth.Context, conn store.Connection) error {
	path := clientPath(whiteboardID, clientID)
	conn.OnDisconnectSet(path+"/present", false)
	conn.OnDisconnectSet(path+"/left", t.now().UnixMilli())

	entry := Entry{Present: true, Joined: t.now().UnixMilli()}
	if actor.LoggedIn() {
		entry.UID = actor.UID
	}
	return t.store.Patch(ctx, map[string]any{path: entry})
}

// Leave marks the client absent explicitly (a clean goodbye).
func (t *Tracker) Leave(ctx context.Context, whiteboardID, clientID string) error {
	path := clientPath(whiteboardID, clientID)
	return t.store.Patch(ctx, map[string]any{
		path + "/present": false,
		path + "/left":    t.now().UnixMilli(),
	})
}

// Observe streams the presence collection of a whiteboard.
func (t *Tracker) Observe(whiteboardID string, fn func(store.CollectionEvent)) (store.UnsubscribeFunc, error) {
	return t.store.ObserveCollection("presence/"+whiteboardID, fn)
}
