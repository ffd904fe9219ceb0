package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const changeChannel = "store:changes"

// Document 문서 단위 저장 행 (jsonb)
type Document struct {
	Key       string    `gorm:"primaryKey;type:text" json:"key"`
	Value     string    `gorm:"type:jsonb;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "store_documents"
}

// changeMessage Redis로 브로드캐스트되는 변경 알림
type changeMessage struct {
	Origin string   `json:"origin"`
	Paths  []string `json:"paths"`
}

// DurableStore Postgres(gorm) + Redis pub/sub 어댑터
//
// Documents live in Postgres as jsonb rows; a patch is one transaction
// over its documents, which makes multi-path patches genuinely atomic.
// Changed paths are published on a Redis channel so every server process
// re-reads and re-emits to its own subscribers. Cross-process scope
// edits therefore follow read-modify-write with accepted lost updates,
// exactly like the permission layer expects.
type DurableStore struct {
	db       *gorm.DB
	rdb      *redis.Client
	instance string

	mu      sync.Mutex
	closed  bool
	subs    map[int64]*watch
	nextSub int64

	push   *pushIDGenerator
	pubsub *redis.PubSub
	done   chan struct{}
}

// OpenDurable migrates the document table and starts the change-feed
// listener.
func OpenDurable(db *gorm.DB, rdb *redis.Client) (*DurableStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}

	s := &DurableStore{
		db:       db,
		rdb:      rdb,
		instance: uuid.NewString(),
		subs:     make(map[int64]*watch),
		push:     newPushIDGenerator(),
		done:     make(chan struct{}),
	}
	s.pubsub = rdb.Subscribe(context.Background(), changeChannel)

	// Force the subscription to be established before we return, so no
	// change published after OpenDurable can be missed.
	if _, err := s.pubsub.Receive(context.Background()); err != nil {
		return nil, err
	}
	go s.listen()

	log.Printf("[Store] durable adapter ready (instance=%s)", s.instance[:8])
	return s, nil
}

// Close stops the change feed. Existing subscriptions stop receiving
// remote changes; local writes keep working until the process exits.
func (s *DurableStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	return s.pubsub.Close()
}

func (s *DurableStore) listen() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var cm changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
				log.Printf("[Store] bad change message: %v", err)
				continue
			}
			if cm.Origin == s.instance {
				continue // already notified locally at commit time
			}
			written := make([][]string, 0, len(cm.Paths))
			for _, p := range cm.Paths {
				if segs, err := splitPath(p); err == nil {
					written = append(written, segs)
				}
			}
			s.notify(written)
		}
	}
}

// loadDoc reads one document row. Missing rows come back as nil.
func (s *DurableStore) loadDoc(tx *gorm.DB, key string, lock bool) (any, error) {
	q := tx.Model(&Document{})
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var doc Document
	if err := q.Where("key = ?", key).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(doc.Value), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// readAt reads the node at segs from the database.
func (s *DurableStore) readAt(segs []string) (any, bool, error) {
	root, err := s.loadDoc(s.db, segs[0]+"/"+segs[1], false)
	if err != nil {
		return nil, false, err
	}
	v, ok := getAt(root, segs[2:])
	return v, ok, nil
}

// snapshotFor builds the current event for a watch from the database.
func (s *DurableStore) snapshotFor(w *watch) any {
	if w.record {
		v, ok, err := s.readAt(w.segs)
		if err != nil {
			return RecordEvent{Err: err}
		}
		return RecordEvent{Exists: ok, Value: v}
	}
	if w.namespace != "" {
		var docs []Document
		if err := s.db.Where("key LIKE ?", w.namespace+"/%").Order("key ASC").Find(&docs).Error; err != nil {
			return CollectionEvent{Err: err}
		}
		entries := make([]Entry, 0, len(docs))
		for _, d := range docs {
			var v any
			if err := json.Unmarshal([]byte(d.Value), &v); err != nil {
				continue
			}
			entries = append(entries, Entry{Key: strings.TrimPrefix(d.Key, w.namespace+"/"), Value: v})
		}
		return CollectionEvent{Entries: entries}
	}
	v, _, err := s.readAt(w.segs)
	if err != nil {
		return CollectionEvent{Err: err}
	}
	return CollectionEvent{Entries: entriesOf(v)}
}

func (s *DurableStore) register(w *watch) (UnsubscribeFunc, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = w
	s.mu.Unlock()

	// Initial emission reads committed state; a concurrent patch that
	// lands in between is re-delivered through notify, and snapshots are
	// always fresh reads, so the subscriber converges.
	w.sub.add(s.snapshotFor(w))
	w.sub.drain()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			w.sub.close()
		})
	}, nil
}

func (s *DurableStore) ObserveRecord(path string, fn func(RecordEvent)) (UnsubscribeFunc, error) {
	if _, _, err := docRef(path); err != nil {
		return nil, err
	}
	segs, _ := splitPath(path)
	w := &watch{segs: segs, record: true}
	w.sub = newSubscriber(func(ev any) { fn(ev.(RecordEvent)) })
	return s.register(w)
}

func (s *DurableStore) ObserveCollection(path string, fn func(CollectionEvent)) (UnsubscribeFunc, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	w := &watch{}
	if len(segs) == 1 {
		w.namespace = segs[0]
	} else {
		w.segs = segs
	}
	w.sub = newSubscriber(func(ev any) { fn(ev.(CollectionEvent)) })
	return s.register(w)
}

func (s *DurableStore) Patch(ctx context.Context, writes map[string]any) error {
	ws, err := prepareWrites(writes)
	if err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	// Group by document so each row is loaded and written once.
	byDoc := make(map[string][]preparedWrite)
	for _, w := range ws {
		byDoc[w.doc] = append(byDoc[w.doc], w)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for doc, dws := range byDoc {
			root, err := s.loadDoc(tx, doc, true)
			if err != nil {
				return err
			}
			for _, w := range dws {
				root = setAt(root, w.inner, w.value)
			}
			if root == nil {
				if err := tx.Where("key = ?", doc).Delete(&Document{}).Error; err != nil {
					return err
				}
				continue
			}
			raw, err := json.Marshal(root)
			if err != nil {
				return err
			}
			row := Document{Key: doc, Value: string(raw)}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(ws))
	written := make([][]string, 0, len(ws))
	for _, w := range ws {
		paths = append(paths, strings.Join(w.segs, "/"))
		written = append(written, w.segs)
	}

	// Local subscribers first, then the other processes.
	s.notify(written)
	msg, _ := json.Marshal(changeMessage{Origin: s.instance, Paths: paths})
	if err := s.rdb.Publish(ctx, changeChannel, msg).Err(); err != nil {
		log.Printf("[Store] change publish failed: %v", err)
	}
	return nil
}

func (s *DurableStore) notify(written [][]string) {
	s.mu.Lock()
	affected := make([]*watch, 0)
	for _, w := range s.subs {
		if w.affectedByAny(written) {
			affected = append(affected, w)
		}
	}
	s.mu.Unlock()

	for _, w := range affected {
		w.sub.add(s.snapshotFor(w))
		w.sub.drain()
	}
}

func (s *DurableStore) PushKey(path string) string {
	return s.push.next()
}

func (s *DurableStore) Connect() Connection {
	return newConn(s)
}
