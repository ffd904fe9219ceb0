package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Both adapters persist at document granularity: a document is the JSON
// subtree rooted at the first two path segments ("whiteboards/w1",
// "chatPermissions/k1", ...). Deeper writes merge into the document;
// one-segment paths name a namespace of documents and are only valid for
// collection observation and PushKey.

// splitPath normalizes a slash path into its segments.
func splitPath(path string) ([]string, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 1 && segs[0] == "" {
		return nil, fmt.Errorf("%w: empty path", ErrBadPath)
	}
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrBadPath, path)
		}
	}
	return segs, nil
}

// docRef resolves a path to its document key and the remaining inner path.
func docRef(path string) (doc string, inner []string, err error) {
	segs, err := splitPath(path)
	if err != nil {
		return "", nil, err
	}
	if len(segs) < 2 {
		return "", nil, fmt.Errorf("%w: %q is not addressable (document paths need at least two segments)", ErrBadPath, path)
	}
	return segs[0] + "/" + segs[1], segs[2:], nil
}

// normalize decouples a caller-provided value from the tree by a JSON
// round trip. Store trees therefore only ever hold the JSON value set:
// map[string]any, []any, string, float64, bool, nil.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: unencodable value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("store: unencodable value: %w", err)
	}
	return out, nil
}

// getAt walks inner segments into a tree value. Missing nodes report
// exists=false.
func getAt(root any, inner []string) (any, bool) {
	cur := root
	for _, seg := range inner {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// setAt replaces the subtree at inner with value, materializing
// intermediate objects, and returns the new root. A nil value deletes the
// node; empty maps written explicitly are kept (an empty-but-present
// record is not the same as an absent one).
func setAt(root any, inner []string, value any) any {
	if len(inner) == 0 {
		return value
	}
	m, ok := root.(map[string]any)
	if !ok {
		if value == nil {
			return root
		}
		m = map[string]any{}
	}
	seg := inner[0]
	if len(inner) == 1 {
		if value == nil {
			delete(m, seg)
		} else {
			m[seg] = value
		}
		return m
	}
	child := setAt(m[seg], inner[1:], value)
	if child == nil {
		delete(m, seg)
	} else {
		m[seg] = child
	}
	return m
}

// deepCopy clones a normalized tree value.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = deepCopy(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = deepCopy(c)
		}
		return out
	default:
		return v
	}
}

// preparedWrite is one validated, normalized patch entry.
type preparedWrite struct {
	doc   string
	inner []string
	segs  []string
	value any
}

// prepareWrites validates and normalizes a whole patch up front; nothing
// is applied if any entry is bad.
func prepareWrites(writes map[string]any) ([]preparedWrite, error) {
	ws := make([]preparedWrite, 0, len(writes))
	for path, v := range writes {
		doc, inner, err := docRef(path)
		if err != nil {
			return nil, err
		}
		nv, err := normalize(v)
		if err != nil {
			return nil, err
		}
		segs, _ := splitPath(path)
		ws = append(ws, preparedWrite{doc: doc, inner: inner, segs: segs, value: nv})
	}
	return ws, nil
}

// entriesOf turns an object value into key-ordered collection entries.
func entriesOf(v any) []Entry {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: deepCopy(m[k])})
	}
	return entries
}
