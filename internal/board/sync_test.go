package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/compact"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

func TestCreateMarkingAndList(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	ctx := context.Background()

	key, err := s.CreateMarking(ctx, "w1", auth.Subject("u1"), model.MarkingOptions{
		Style:   model.DefaultStyle(),
		Started: 1700000000000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	entities, err := s.List("w1", model.KindMarking)
	require.NoError(t, err)
	require.Contains(t, entities, key)
	assert.Equal(t, "u1", entities[key]["createdBy"])
	assert.NotNil(t, entities[key]["created"])
}

func TestAnonymousCreateOmitsCreatedBy(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())

	key, err := s.CreateText(context.Background(), "w1", auth.Anonymous(), model.TextOptions{
		Content: "hello",
		Font:    model.DefaultFont(),
	})
	require.NoError(t, err)

	entity, err := s.Get("w1", model.KindText, key)
	require.NoError(t, err)
	assert.NotContains(t, entity, "createdBy")
	assert.Equal(t, "hello", entity["content"])
}

func TestCreateShapeValidatesType(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())

	_, err := s.CreateShape(context.Background(), "w1", auth.Anonymous(), model.ShapeOptions{
		ShapeType: "scribble",
	})
	assert.Error(t, err)

	key, err := s.CreateShape(context.Background(), "w1", auth.Anonymous(), model.ShapeOptions{
		ShapeType: model.ShapeEllipse,
		Style:     model.DefaultStyle(),
	})
	require.NoError(t, err)

	entity, err := s.Get("w1", model.KindShape, key)
	require.NoError(t, err)
	assert.Equal(t, "ellipse", entity["shapeType"])
}

func TestEditLastWriterWinsPerProperty(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	ctx := context.Background()

	key, err := s.CreateMarking(ctx, "w1", auth.Anonymous(), model.MarkingOptions{
		Style: model.DefaultStyle(),
	})
	require.NoError(t, err)

	require.NoError(t, s.Edit(ctx, "w1", model.KindMarking, key, map[string]any{
		"path": []any{"first"},
	}))
	require.NoError(t, s.Edit(ctx, "w1", model.KindMarking, key, map[string]any{
		"path": []any{"second"},
	}))

	entity, err := s.Get("w1", model.KindMarking, key)
	require.NoError(t, err)
	assert.Equal(t, []any{"second"}, entity["path"])
	assert.NotContains(t, entity, "edits")

	// A path-only edit leaves the style from creation intact.
	style, ok := entity["style"].(map[string]any)
	require.True(t, ok)
	fill := style["fill"].(map[string]any)
	assert.Equal(t, "#0bf", fill["color"])
}

func TestEditRejectsEmptyChanges(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	err := s.Edit(context.Background(), "w1", model.KindMarking, "k1", map[string]any{})
	assert.Error(t, err)
}

func TestEraseKeepsRecordAndHistory(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	ctx := context.Background()

	key, err := s.CreateMarking(ctx, "w1", auth.Anonymous(), model.MarkingOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Edit(ctx, "w1", model.KindMarking, key, map[string]any{
		"path": []any{"kept"},
	}))
	require.NoError(t, s.Erase(ctx, "w1", model.KindMarking, key))

	entity, err := s.Get("w1", model.KindMarking, key)
	require.NoError(t, err)
	assert.True(t, compact.Erased(entity))
	assert.Equal(t, []any{"kept"}, entity["path"])
}

func TestObserveDeliversCompactedSnapshots(t *testing.T) {
	st := store.NewMemoryStore()
	s := NewSynchronizer(st)
	ctx := context.Background()

	var snaps []Snapshot
	unsub, err := s.ObserveMarkings("w1", func(snap Snapshot) {
		snaps = append(snaps, snap)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, snaps, 1)
	assert.Empty(t, snaps[0].Entities)

	key, err := s.CreateMarking(ctx, "w1", auth.Anonymous(), model.MarkingOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Edit(ctx, "w1", model.KindMarking, key, map[string]any{
		"path": []any{"live"},
	}))

	last := snaps[len(snaps)-1]
	require.NoError(t, last.Err)
	require.Contains(t, last.Entities, key)
	assert.Equal(t, []any{"live"}, last.Entities[key]["path"])
	assert.NotContains(t, last.Entities[key], "edits")
}

func TestKindCollectionsAreIndependent(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	ctx := context.Background()

	_, err := s.CreateText(ctx, "w1", auth.Anonymous(), model.TextOptions{Content: "only text"})
	require.NoError(t, err)

	markings, err := s.List("w1", model.KindMarking)
	require.NoError(t, err)
	assert.Empty(t, markings)

	texts, err := s.List("w1", model.KindText)
	require.NoError(t, err)
	assert.Len(t, texts, 1)
}

func TestGetMissingEntity(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	_, err := s.Get("w1", model.KindMarking, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObserveUnknownKind(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())
	_, err := s.Observe("w1", model.EntityKind("sticker"), func(Snapshot) {})
	assert.Error(t, err)
}

func TestEditKeysMonotonic(t *testing.T) {
	s := NewSynchronizer(store.NewMemoryStore())

	// Freeze the clock: keys must still advance.
	frozen := time.UnixMilli(1700000000000)
	s.now = func() time.Time { return frozen }

	prev := ""
	for i := 0; i < 50; i++ {
		key := s.editKey()
		require.Len(t, key, 13)
		assert.Greater(t, key, prev)
		prev = key
	}
}
