// Package board exposes the live whiteboard state: the container
// lifecycle and the per-kind entity collections, each materialized
// through edit-log compaction.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/compact"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

// ErrNotFound 대상 레코드 없음
var ErrNotFound = errors.New("board: not found")

// collectionPath keeps the store layout of the original application.
func collectionPath(kind model.EntityKind, whiteboardID string) (string, error) {
	switch kind {
	case model.KindMarking:
		return "whiteboardMarkings/" + whiteboardID, nil
	case model.KindText:
		return "whiteboardText/" + whiteboardID, nil
	case model.KindShape:
		return "whiteboardShapes/" + whiteboardID, nil
	}
	return "", fmt.Errorf("board: unknown entity kind %q", kind)
}

// Snapshot is one full compacted view of a collection. Entities carry
// their tombstone (`erased`) when present; hiding them is the
// renderer's job, not ours — their historical state must stay correct.
type Snapshot struct {
	Entities map[string]map[string]any
	Err      error
}

// Synchronizer 엔티티 컬렉션 동기화
//
// Three independent subscriptions per whiteboard (markings, texts,
// shapes): an error on one kind leaves the others running, and
// unsubscribing one never touches the others.
type Synchronizer struct {
	store store.Store

	// Edit keys must be unique per process even when two edits land in
	// the same millisecond; the clock below never moves backwards.
	mu         sync.Mutex
	lastEditMs int64
	now        func() time.Time
}

func NewSynchronizer(st store.Store) *Synchronizer {
	return &Synchronizer{store: st, now: time.Now}
}

// editKey allocates the next edit-log key: a zero-padded millisecond
// timestamp, bumped by one when the wall clock has not advanced since
// the previous edit. Zero-padding makes lexicographic order equal
// numeric order, which is the deterministic order compaction applies.
func (s *Synchronizer) editKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.lastEditMs {
		ms = s.lastEditMs + 1
	}
	s.lastEditMs = ms
	return fmt.Sprintf("%013d", ms)
}

// Observe subscribes to one kind's collection, compacting every member
// before delivery. Store subscription errors surface on the snapshot.
func (s *Synchronizer) Observe(whiteboardID string, kind model.EntityKind, fn func(Snapshot)) (store.UnsubscribeFunc, error) {
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return nil, err
	}
	return s.store.ObserveCollection(path, func(ev store.CollectionEvent) {
		if ev.Err != nil {
			fn(Snapshot{Err: ev.Err})
			return
		}
		entities := make(map[string]map[string]any, len(ev.Entries))
		for _, e := range ev.Entries {
			if current, ok := compact.Entity(kind, e.Value); ok {
				entities[e.Key] = current
			}
		}
		fn(Snapshot{Entities: entities})
	})
}

func (s *Synchronizer) ObserveMarkings(whiteboardID string, fn func(Snapshot)) (store.UnsubscribeFunc, error) {
	return s.Observe(whiteboardID, model.KindMarking, fn)
}

func (s *Synchronizer) ObserveTexts(whiteboardID string, fn func(Snapshot)) (store.UnsubscribeFunc, error) {
	return s.Observe(whiteboardID, model.KindText, fn)
}

func (s *Synchronizer) ObserveShapes(whiteboardID string, fn func(Snapshot)) (store.UnsubscribeFunc, error) {
	return s.Observe(whiteboardID, model.KindShape, fn)
}

// List reads one compacted snapshot of a collection.
func (s *Synchronizer) List(whiteboardID string, kind model.EntityKind) (map[string]map[string]any, error) {
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return nil, err
	}
	entries, err := store.GetCollection(s.store, path)
	if err != nil {
		return nil, err
	}
	entities := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		if current, ok := compact.Entity(kind, e.Value); ok {
			entities[e.Key] = current
		}
	}
	return entities, nil
}

// Get reads one entity, compacted.
func (s *Synchronizer) Get(whiteboardID string, kind model.EntityKind, key string) (map[string]any, error) {
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return nil, err
	}
	value, exists, err := store.GetRecord(s.store, path+"/"+key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	current, ok := compact.Entity(kind, value)
	if !ok {
		return nil, ErrNotFound
	}
	return current, nil
}

// create appends a new entity record. The store assigns the key, the
// call-time clock stamps creation, and an anonymous actor simply leaves
// createdBy off the record.
func (s *Synchronizer) create(ctx context.Context, whiteboardID string, kind model.EntityKind, actor auth.Context, fields map[string]any) (string, error) {
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return "", err
	}
	fields["created"] = s.now().UnixMilli()
	if actor.LoggedIn() {
		fields["createdBy"] = actor.UID
	}
	key := s.store.PushKey(path)
	if err := s.store.Patch(ctx, map[string]any{path + "/" + key: fields}); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Synchronizer) CreateMarking(ctx context.Context, whiteboardID string, actor auth.Context, opts model.MarkingOptions) (string, error) {
	return s.create(ctx, whiteboardID, model.KindMarking, actor, map[string]any{
		"style":   opts.Style,
		"started": opts.Started,
		"path":    opts.Path,
	})
}

func (s *Synchronizer) CreateText(ctx context.Context, whiteboardID string, actor auth.Context, opts model.TextOptions) (string, error) {
	return s.create(ctx, whiteboardID, model.KindText, actor, map[string]any{
		"style":    opts.Style,
		"rotation": opts.Rotation,
		"bounds":   opts.Bounds,
		"content":  opts.Content,
		"font":     opts.Font,
	})
}

func (s *Synchronizer) CreateShape(ctx context.Context, whiteboardID string, actor auth.Context, opts model.ShapeOptions) (string, error) {
	if !opts.ShapeType.Valid() {
		return "", fmt.Errorf("board: unknown shape type %q", opts.ShapeType)
	}
	return s.create(ctx, whiteboardID, model.KindShape, actor, map[string]any{
		"style":     opts.Style,
		"shapeType": opts.ShapeType,
		"path":      opts.Path,
	})
}

// Edit appends one entry to the entity's edit log. The entry is stored
// as proposed — the whitelist is enforced at compaction time, on every
// reader, so a rogue property can never reach materialized state. The
// call does not wait on other clients' edits: convergence is
// last-applier-wins per property, via the compaction merge rule.
func (s *Synchronizer) Edit(ctx context.Context, whiteboardID string, kind model.EntityKind, key string, changes map[string]any) error {
	if len(changes) == 0 {
		return errors.New("board: empty edit")
	}
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return err
	}
	return s.store.Patch(ctx, map[string]any{
		path + "/" + key + "/edits/" + s.editKey(): changes,
	})
}

// Erase sets the tombstone. It is a plain field write, not an edit-log
// entry: an entity is erased exactly once and the erasure is not
// re-editable. The record and its history stay in the log.
func (s *Synchronizer) Erase(ctx context.Context, whiteboardID string, kind model.EntityKind, key string) error {
	path, err := collectionPath(kind, whiteboardID)
	if err != nil {
		return err
	}
	return s.store.Patch(ctx, map[string]any{
		path + "/" + key + "/" + compact.ErasedProperty: s.now().UnixMilli(),
	})
}
