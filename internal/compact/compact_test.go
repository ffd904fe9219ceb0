package compact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/model"
)

func TestEntityAbsent(t *testing.T) {
	_, ok := Entity(model.KindMarking, nil)
	assert.False(t, ok)

	_, ok = Entity(model.KindMarking, "not an object")
	assert.False(t, ok)

	_, ok = Entity(model.KindMarking, 42.0)
	assert.False(t, ok)
}

func TestEntityWithoutEdits(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"style":   map[string]any{"fill": map[string]any{"color": "#0bf"}},
		"path":    []any{"a"},
		"created": 1700000000000.0,
	})
	require.True(t, ok)
	assert.Equal(t, []any{"a"}, current["path"])
	assert.Equal(t, 1700000000000.0, current["created"])
}

func TestEntityMalformedEditsField(t *testing.T) {
	current, ok := Entity(model.KindText, map[string]any{
		"content": "hello",
		"edits":   "corrupted",
	})
	require.True(t, ok)
	assert.Equal(t, "hello", current["content"])
	assert.NotContains(t, current, "edits")
}

func TestEntityAppliesEditsInTimestampOrder(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"path": []any{"original"},
		"edits": map[string]any{
			"0000000000002": map[string]any{"path": []any{"second"}},
			"0000000000001": map[string]any{"path": []any{"first"}},
			"0000000000003": map[string]any{"path": []any{"third"}},
		},
	})
	require.True(t, ok)
	assert.Equal(t, []any{"third"}, current["path"])
	assert.NotContains(t, current, "edits")
}

func TestEntitySameTimestampDeterministicTieBreak(t *testing.T) {
	// Both keys parse to the same timestamp; raw byte order decides,
	// identically on every reader.
	value := map[string]any{
		"path": []any{},
		"edits": map[string]any{
			"0000000000005":  map[string]any{"path": []any{"plain"}},
			"0000000000005a": map[string]any{"path": []any{"suffixed"}},
		},
	}
	for i := 0; i < 10; i++ {
		current, ok := Entity(model.KindMarking, value)
		require.True(t, ok)
		assert.Equal(t, []any{"suffixed"}, current["path"])
	}
}

func TestEntityIgnoresNonWhitelistedProperties(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"created":   1.0,
		"createdBy": "u1",
		"edits": map[string]any{
			"0000000000001": map[string]any{
				"createdBy": "attacker",
				"created":   999.0,
				"path":      []any{"ok"},
			},
		},
	})
	require.True(t, ok)
	assert.Equal(t, "u1", current["createdBy"])
	assert.Equal(t, 1.0, current["created"])
	assert.Equal(t, []any{"ok"}, current["path"])
}

func TestEntityStyleShallowMerge(t *testing.T) {
	current, ok := Entity(model.KindShape, map[string]any{
		"style": map[string]any{
			"stroke": map[string]any{"color": "#111", "width": 2.0},
			"fill":   map[string]any{"color": "#0bf"},
		},
		"edits": map[string]any{
			"0000000000001": map[string]any{
				"style": map[string]any{
					"stroke": map[string]any{"color": "#f00"},
				},
			},
		},
	})
	require.True(t, ok)

	style := current["style"].(map[string]any)
	// The stroke field is replaced wholesale, the untouched fill survives.
	assert.Equal(t, map[string]any{"color": "#f00"}, style["stroke"])
	assert.Equal(t, map[string]any{"color": "#0bf"}, style["fill"])
}

func TestEntityNonObjectStyleEditOverwrites(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"style": map[string]any{"fill": map[string]any{"color": "#0bf"}},
		"edits": map[string]any{
			"0000000000001": map[string]any{"style": "red"},
		},
	})
	require.True(t, ok)
	assert.Equal(t, "red", current["style"])
}

func TestEntitySkipsMalformedEditEntries(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"path": []any{"kept"},
		"edits": map[string]any{
			"0000000000001": "junk",
			"0000000000002": 7.0,
		},
	})
	require.True(t, ok)
	assert.Equal(t, []any{"kept"}, current["path"])
}

func TestEntityKeepsTombstoneAndHistory(t *testing.T) {
	current, ok := Entity(model.KindMarking, map[string]any{
		"path":   []any{},
		"erased": 1700000000000.0,
		"edits": map[string]any{
			"0000000000001": map[string]any{"path": []any{"final"}},
		},
	})
	require.True(t, ok)
	assert.True(t, Erased(current))
	// Pre-erasure edits still compact into the state.
	assert.Equal(t, []any{"final"}, current["path"])
}

func TestEntityIdempotent(t *testing.T) {
	first, ok := Entity(model.KindMarking, map[string]any{
		"style": map[string]any{"fill": map[string]any{"color": "#0bf"}},
		"path":  []any{"p"},
		"edits": map[string]any{
			"0000000000001": map[string]any{"path": []any{"q"}},
		},
	})
	require.True(t, ok)

	var asValue any = first
	second, ok := Entity(model.KindMarking, asValue)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestEntityDoesNotMutateInput(t *testing.T) {
	input := map[string]any{
		"style": map[string]any{"fill": map[string]any{"color": "#0bf"}},
		"edits": map[string]any{
			"0000000000001": map[string]any{
				"style": map[string]any{"fill": map[string]any{"color": "#f00"}},
			},
		},
	}
	_, ok := Entity(model.KindMarking, input)
	require.True(t, ok)

	assert.Contains(t, input, "edits")
	style := input["style"].(map[string]any)
	assert.Equal(t, map[string]any{"color": "#0bf"}, style["fill"])
}

func TestEditKeyTime(t *testing.T) {
	assert.Equal(t, int64(1700000000000), editKeyTime("1700000000000"))
	assert.Equal(t, int64(5), editKeyTime("0000000000005"))
	assert.Equal(t, int64(5), editKeyTime("5abc"))
	assert.Equal(t, int64(-1), editKeyTime("abc"))
	assert.Equal(t, int64(-1), editKeyTime(""))
}
