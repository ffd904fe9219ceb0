package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

func TestCreateWhiteboardDefaults(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	ctx := context.Background()

	id, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	wb, err := w.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Whiteboard", wb.Name)
	assert.Equal(t, "#fff", wb.Background)
	assert.NotZero(t, wb.Created)
	assert.Empty(t, wb.CreatedBy)
}

func TestCreateWhiteboardWithCreator(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())

	id, err := w.Create(context.Background(), auth.Subject("u1"), model.WhiteboardOptions{
		Name:       "Sprint Planning",
		Background: "#eee",
	})
	require.NoError(t, err)

	wb, err := w.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Sprint Planning", wb.Name)
	assert.Equal(t, "#eee", wb.Background)
	assert.Equal(t, "u1", wb.CreatedBy)
}

func TestRenameAndBackground(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	ctx := context.Background()

	id, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{})
	require.NoError(t, err)

	require.NoError(t, w.Rename(ctx, id, "Renamed"))
	require.NoError(t, w.SetBackground(ctx, id, "#123"))
	require.NoError(t, w.SetSnapshotRef(ctx, id, "snapshots/abc.png"))

	wb, err := w.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", wb.Name)
	assert.Equal(t, "#123", wb.Background)
	assert.Equal(t, "snapshots/abc.png", wb.SnapshotRef)
}

func TestRenameMissingWhiteboard(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	err := w.Rename(context.Background(), "nope", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWhiteboard(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	ctx := context.Background()

	id, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{})
	require.NoError(t, err)

	require.NoError(t, w.Delete(ctx, id))

	_, err = w.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again reports NotFound, it does not resurrect.
	assert.ErrorIs(t, w.Delete(ctx, id), ErrNotFound)
}

func TestListWhiteboards(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	ctx := context.Background()

	a, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{Name: "A"})
	require.NoError(t, err)
	b, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{Name: "B"})
	require.NoError(t, err)

	all, err := w.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[a].Name)
	assert.Equal(t, "B", all[b].Name)
}

func TestObserveWhiteboard(t *testing.T) {
	w := NewWhiteboards(store.NewMemoryStore())
	ctx := context.Background()

	id, err := w.Create(ctx, auth.Anonymous(), model.WhiteboardOptions{Name: "Live"})
	require.NoError(t, err)

	var events []store.RecordEvent
	unsub, err := w.Observe(id, func(ev store.RecordEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, events, 1)
	assert.True(t, events[0].Exists)

	require.NoError(t, w.Rename(ctx, id, "Live v2"))
	require.Len(t, events, 2)
	record := events[1].Value.(map[string]any)
	assert.Equal(t, "Live v2", record["name"])
}
