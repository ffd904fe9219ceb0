// Package compact folds an entity's append-only edit log into its
// current state.
//
// Entities are never mutated in place: clients append partial property
// updates under edits/<timestamp> and every reader runs the same fold,
// so all subscribers converge on one deterministic materialized state
// with no lock and no leader.
package compact

import (
	"sort"
	"strconv"

	"whiteboard-backend/internal/model"
)

// ErasedProperty is the tombstone field. An erased entity still compacts
// its pre-erasure edits; consumers hide it, they do not skip it.
const ErasedProperty = "erased"

const editsProperty = "edits"

// Entity compacts one stored entity value into its current state.
//
// The bool result reports existence: a nil or non-object value is an
// absent record, not a default-valued one. The input is never mutated
// and the result never contains the edit log. Compacting an
// already-compacted value returns it unchanged.
func Entity(kind model.EntityKind, value any) (map[string]any, bool) {
	record, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		if k != editsProperty {
			out[k] = v
		}
	}

	// A malformed edits field (a bool, a string...) is discarded, and
	// the creation fields stand as the current state.
	edits, ok := record[editsProperty].(map[string]any)
	if !ok {
		return out, true
	}

	editable := make(map[string]bool)
	for _, p := range kind.EditableProperties() {
		editable[p] = true
	}

	for _, ts := range sortedEditKeys(edits) {
		entry, ok := edits[ts].(map[string]any)
		if !ok {
			continue
		}
		for _, prop := range sortedKeys(entry) {
			if !editable[prop] {
				continue
			}
			newValue := entry[prop]
			// Object-valued style edits shallow-merge into the current
			// style so a stroke-only edit does not clobber fill or
			// shadow. Everything else is a full overwrite.
			if prop == "style" {
				if patch, ok := newValue.(map[string]any); ok {
					newValue = mergeStyle(out[prop], patch)
				}
			}
			out[prop] = newValue
		}
	}
	return out, true
}

// mergeStyle overwrites the patched top-level style fields, keeping the
// rest. The current style is copied, never mutated.
func mergeStyle(current any, patch map[string]any) map[string]any {
	merged := make(map[string]any)
	if cur, ok := current.(map[string]any); ok {
		for k, v := range cur {
			merged[k] = v
		}
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// sortedEditKeys orders edit timestamps ascending. Keys are compared by
// their parsed numeric value first, then by raw bytes — so two distinct
// keys carrying the same timestamp always apply in the same order on
// every client, regardless of storage iteration order.
func sortedEditKeys(edits map[string]any) []string {
	keys := make([]string, 0, len(edits))
	for k := range edits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := editKeyTime(keys[i]), editKeyTime(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// editKeyTime parses the leading decimal run of an edit key. Keys with
// no usable timestamp sort first, among themselves by raw bytes.
func editKeyTime(key string) int64 {
	end := 0
	for end < len(key) && key[end] >= '0' && key[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.ParseInt(key[:end], 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Erased reports whether a compacted (or raw) entity carries the
// tombstone field.
func Erased(entity map[string]any) bool {
	_, ok := entity[ErasedProperty]
	return ok
}
