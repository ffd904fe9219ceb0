package board

import (
	"context"
	"encoding/json"
	"time"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

const whiteboardsPath = "whiteboards"

// Whiteboards 컨테이너 레코드 생명주기 (생성/이름변경/배경/삭제)
//
// Deleting a container only removes the container record; the entity
// collections keyed by its id stay behind as orphans and are treated as
// inaccessible by convention, not cascaded.
type Whiteboards struct {
	store store.Store
	now   func() time.Time
}

func NewWhiteboards(st store.Store) *Whiteboards {
	return &Whiteboards{store: st, now: time.Now}
}

func whiteboardPath(id string) string {
	return whiteboardsPath + "/" + id
}

// Create writes a new container record and returns its key.
func (w *Whiteboards) Create(ctx context.Context, actor auth.Context, opts model.WhiteboardOptions) (string, error) {
	defaults := model.DefaultWhiteboardOptions()
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	if opts.Background == "" {
		opts.Background = defaults.Background
	}

	record := map[string]any{
		"name":       opts.Name,
		"background": opts.Background,
		"created":    w.now().UnixMilli(),
	}
	if actor.LoggedIn() {
		record["createdBy"] = actor.UID
	}

	key := w.store.PushKey(whiteboardsPath)
	if err := w.store.Patch(ctx, map[string]any{whiteboardPath(key): record}); err != nil {
		return "", err
	}
	return key, nil
}

// Get reads one container record.
func (w *Whiteboards) Get(id string) (model.Whiteboard, error) {
	value, exists, err := store.GetRecord(w.store, whiteboardPath(id))
	if err != nil {
		return model.Whiteboard{}, err
	}
	if !exists {
		return model.Whiteboard{}, ErrNotFound
	}
	return decodeWhiteboard(value)
}

// Observe streams the container record.
func (w *Whiteboards) Observe(id string, fn func(store.RecordEvent)) (store.UnsubscribeFunc, error) {
	return w.store.ObserveRecord(whiteboardPath(id), fn)
}

// List reads all containers, keyed by id.
func (w *Whiteboards) List() (map[string]model.Whiteboard, error) {
	entries, err := store.GetCollection(w.store, whiteboardsPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Whiteboard, len(entries))
	for _, e := range entries {
		wb, err := decodeWhiteboard(e.Value)
		if err != nil {
			continue
		}
		out[e.Key] = wb
	}
	return out, nil
}

// setField writes one container field after checking existence, so a
// rename of a deleted board is NotFound instead of resurrecting it.
func (w *Whiteboards) setField(ctx context.Context, id, field string, value any) error {
	_, exists, err := store.GetRecord(w.store, whiteboardPath(id))
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return w.store.Patch(ctx, map[string]any{whiteboardPath(id) + "/" + field: value})
}

func (w *Whiteboards) Rename(ctx context.Context, id, name string) error {
	return w.setField(ctx, id, "name", name)
}

func (w *Whiteboards) SetBackground(ctx context.Context, id, background string) error {
	return w.setField(ctx, id, "background", background)
}

// SetSnapshotRef records where the rendered snapshot lives. The blob
// itself is stored by an external collaborator.
func (w *Whiteboards) SetSnapshotRef(ctx context.Context, id, ref string) error {
	return w.setField(ctx, id, "snapshot", ref)
}

// Delete removes the container record. Hard delete — unlike entities,
// the container keeps no tombstone.
func (w *Whiteboards) Delete(ctx context.Context, id string) error {
	_, exists, err := store.GetRecord(w.store, whiteboardPath(id))
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return w.store.Patch(ctx, map[string]any{whiteboardPath(id): nil})
}

func decodeWhiteboard(value any) (model.Whiteboard, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return model.Whiteboard{}, err
	}
	var wb model.Whiteboard
	if err := json.Unmarshal(raw, &wb); err != nil {
		return model.Whiteboard{}, err
	}
	return wb, nil
}
