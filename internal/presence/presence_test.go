package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/store"
)

func TestJoinMarksPresent(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := NewTracker(st)
	conn := st.Connect()
	defer conn.Close()

	require.NoError(t, tracker.Join(context.Background(), "w1", "c1", auth.Subject("u1"), conn))

	value, exists, err := store.GetRecord(st, "presence/w1/c1")
	require.NoError(t, err)
	require.True(t, exists)
	entry := value.(map[string]any)
	assert.Equal(t, true, entry["present"])
	assert.Equal(t, "u1", entry["uid"])
	assert.NotNil(t, entry["joined"])
}

func TestAnonymousJoinHasNoUID(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := NewTracker(st)
	conn := st.Connect()
	defer conn.Close()

	require.NoError(t, tracker.Join(context.Background(), "w1", "c1", auth.Anonymous(), conn))

	value, _, err := store.GetRecord(st, "presence/w1/c1")
	require.NoError(t, err)
	assert.NotContains(t, value.(map[string]any), "uid")
}

func TestDisconnectMarksAbsent(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := NewTracker(st)
	conn := st.Connect()

	require.NoError(t, tracker.Join(context.Background(), "w1", "c1", auth.Subject("u1"), conn))

	// The connection drops without a clean goodbye.
	conn.Close()

	value, _, err := store.GetRecord(st, "presence/w1/c1")
	require.NoError(t, err)
	entry := value.(map[string]any)
	assert.Equal(t, false, entry["present"])
	assert.NotNil(t, entry["left"])
	// Identity survives the disconnect write.
	assert.Equal(t, "u1", entry["uid"])
}

func TestExplicitLeave(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := NewTracker(st)
	conn := st.Connect()
	defer conn.Close()
	ctx := context.Background()

	require.NoError(t, tracker.Join(ctx, "w1", "c1", auth.Anonymous(), conn))
	require.NoError(t, tracker.Leave(ctx, "w1", "c1"))

	value, _, err := store.GetRecord(st, "presence/w1/c1")
	require.NoError(t, err)
	assert.Equal(t, false, value.(map[string]any)["present"])
}

func TestObservePresenceCollection(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := NewTracker(st)
	ctx := context.Background()

	c1 := st.Connect()
	c2 := st.Connect()
	defer c2.Close()

	require.NoError(t, tracker.Join(ctx, "w1", "c1", auth.Subject("u1"), c1))
	require.NoError(t, tracker.Join(ctx, "w1", "c2", auth.Subject("u2"), c2))

	var events []store.CollectionEvent
	unsub, err := tracker.Observe("w1", func(ev store.CollectionEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, events, 1)
	assert.Len(t, events[0].Entries, 2)

	// One client drops; subscribers see the updated snapshot.
	c1.Close()
	last := events[len(events)-1]
	require.Len(t, last.Entries, 2)
	for _, e := range last.Entries {
		if e.Key == "c1" {
			assert.Equal(t, false, e.Value.(map[string]any)["present"])
		}
	}
}
