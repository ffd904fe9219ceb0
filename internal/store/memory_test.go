package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRecordEmitsImmediately(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "demo"},
	}))

	var events []RecordEvent
	unsub, err := m.ObserveRecord("whiteboards/w1", func(ev RecordEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, events, 1)
	assert.True(t, events[0].Exists)
	assert.Equal(t, map[string]any{"name": "demo"}, events[0].Value)
}

func TestObserveRecordMissing(t *testing.T) {
	m := NewMemoryStore()

	value, exists, err := GetRecord(m, "whiteboards/missing")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, value)
}

func TestObserveRecordUpdatesAndUnsubscribe(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var events []RecordEvent
	unsub, err := m.ObserveRecord("whiteboards/w1", func(ev RecordEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/name": "first",
	}))
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/name": "second",
	}))
	require.Len(t, events, 3) // initial miss + two updates
	assert.False(t, events[0].Exists)
	assert.Equal(t, map[string]any{"name": "second"}, events[2].Value)

	unsub()
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/name": "third",
	}))
	assert.Len(t, events, 3)

	unsub() // idempotent
}

func TestDeepWriteMergesIntoDocument(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "demo"},
	}))
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/background": "#fff",
	}))

	value, exists, err := GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, map[string]any{"name": "demo", "background": "#fff"}, value)
}

func TestPatchRejectsBadPathsUpfront(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	err := m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "good"},
		"whiteboards":    "one segment is not addressable",
	})
	assert.ErrorIs(t, err, ErrBadPath)

	// The valid entry was not applied either.
	_, exists, err := GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPatchNilDeletes(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "demo", "background": "#fff"},
	}))
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/background": nil,
	}))

	value, exists, err := GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, map[string]any{"name": "demo"}, value)

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1": nil,
	}))
	_, exists, err = GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExplicitEmptyObjectIsPresent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboardPermissions/k1/anonymous": map[string]any{},
	}))

	value, exists, err := GetRecord(m, "whiteboardPermissions/k1/anonymous")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, map[string]any{}, value)
}

func TestObserveCollectionWithinDocument(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboardMarkings/w1/b": map[string]any{"path": []any{}},
		"whiteboardMarkings/w1/a": map[string]any{"path": []any{}},
	}))

	entries, err := GetCollection(m, "whiteboardMarkings/w1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
}

func TestObserveNamespaceCollection(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w2": map[string]any{"name": "two"},
		"whiteboards/w1": map[string]any{"name": "one"},
		"users/u1":       map[string]any{"name": "someone else's namespace"},
	}))

	var events []CollectionEvent
	unsub, err := m.ObserveCollection("whiteboards", func(ev CollectionEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, events, 1)
	require.Len(t, events[0].Entries, 2)
	assert.Equal(t, "w1", events[0].Entries[0].Key)
	assert.Equal(t, "w2", events[0].Entries[1].Key)

	// New documents in the namespace re-emit the whole snapshot.
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w3": map[string]any{"name": "three"},
	}))
	require.Len(t, events, 2)
	assert.Len(t, events[1].Entries, 3)
}

func TestCollectionOnlyNotifiedForItsSubtree(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var count int
	unsub, err := m.ObserveCollection("whiteboardMarkings/w1", func(CollectionEvent) {
		count++
	})
	require.NoError(t, err)
	defer unsub()
	require.Equal(t, 1, count)

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboardMarkings/w2/x": map[string]any{"path": []any{}},
	}))
	assert.Equal(t, 1, count)

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboardMarkings/w1/x": map[string]any{"path": []any{}},
	}))
	assert.Equal(t, 2, count)
}

func TestEventsCarryCopies(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "demo"},
	}))

	value, _, err := GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	value.(map[string]any)["name"] = "tampered"

	fresh, _, err := GetRecord(m, "whiteboards/w1")
	require.NoError(t, err)
	assert.Equal(t, "demo", fresh.(map[string]any)["name"])
}

func TestUnsubscribeFromWithinCallback(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var unsub UnsubscribeFunc
	var count int
	unsub, err := m.ObserveRecord("whiteboards/w1", func(ev RecordEvent) {
		count++
		if ev.Exists {
			unsub()
		}
	})
	require.NoError(t, err)

	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/name": "triggers teardown",
	}))
	require.NoError(t, m.Patch(ctx, map[string]any{
		"whiteboards/w1/name": "after teardown",
	}))
	assert.Equal(t, 2, count)
}

func TestConnectionDisconnectWrites(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, map[string]any{
		"presence/w1/c1": map[string]any{"present": true},
	}))

	conn := m.Connect()
	conn.OnDisconnectSet("presence/w1/c1/present", false)
	conn.OnDisconnectSet("presence/w1/c1/left", 1700000000000)

	// Nothing applied until the connection drops.
	value, _, err := GetRecord(m, "presence/w1/c1/present")
	require.NoError(t, err)
	assert.Equal(t, true, value)

	conn.Close()

	value, _, err = GetRecord(m, "presence/w1/c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"present": false, "left": 1700000000000.0}, value)

	conn.Close() // idempotent

	// Registrations after Close are dropped.
	conn.OnDisconnectSet("presence/w1/c1/present", true)
	value, _, err = GetRecord(m, "presence/w1/c1/present")
	require.NoError(t, err)
	assert.Equal(t, false, value)
}

func TestPushKeysSortable(t *testing.T) {
	m := NewMemoryStore()

	prev := ""
	for i := 0; i < 100; i++ {
		id := m.PushKey("whiteboards")
		require.Len(t, id, 20)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestPatchHonorsCanceledContext(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Patch(ctx, map[string]any{
		"whiteboards/w1": map[string]any{"name": "never"},
	})
	assert.Error(t, err)

	_, exists, getErr := GetRecord(m, "whiteboards/w1")
	require.NoError(t, getErr)
	assert.False(t, exists)
}
