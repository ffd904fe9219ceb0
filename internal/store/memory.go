package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore 인메모리 어댑터 (테스트/개발 모드용)
//
// Holds the whole tree in process memory and fans events out to local
// subscribers. Semantics are identical to the durable adapter minus
// persistence and cross-process fan-out.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string]any
	subs    map[int64]*watch
	nextSub int64
	push    *pushIDGenerator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]any),
		subs: make(map[int64]*watch),
		push: newPushIDGenerator(),
	}
}

// valueAt reads the node at segs. Caller holds mu.
func (m *MemoryStore) valueAt(segs []string) (any, bool) {
	root, ok := m.docs[segs[0]+"/"+segs[1]]
	if !ok {
		return nil, false
	}
	return getAt(root, segs[2:])
}

// snapshotFor builds the current event for a watch. Caller holds mu.
func (m *MemoryStore) snapshotFor(w *watch) any {
	if w.record {
		v, ok := m.valueAt(w.segs)
		return RecordEvent{Exists: ok, Value: deepCopy(v)}
	}
	if w.namespace != "" {
		prefix := w.namespace + "/"
		obj := map[string]any{}
		for doc, v := range m.docs {
			if strings.HasPrefix(doc, prefix) {
				obj[strings.TrimPrefix(doc, prefix)] = v
			}
		}
		return CollectionEvent{Entries: entriesOf(obj)}
	}
	v, _ := m.valueAt(w.segs)
	return CollectionEvent{Entries: entriesOf(v)}
}

func (m *MemoryStore) register(w *watch) UnsubscribeFunc {
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = w
	w.sub.add(m.snapshotFor(w))
	m.mu.Unlock()
	w.sub.drain()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			w.sub.close()
		})
	}
}

func (m *MemoryStore) ObserveRecord(path string, fn func(RecordEvent)) (UnsubscribeFunc, error) {
	if _, _, err := docRef(path); err != nil {
		return nil, err
	}
	segs, _ := splitPath(path)
	w := &watch{segs: segs, record: true}
	w.sub = newSubscriber(func(ev any) { fn(ev.(RecordEvent)) })
	return m.register(w), nil
}

func (m *MemoryStore) ObserveCollection(path string, fn func(CollectionEvent)) (UnsubscribeFunc, error) {
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
	return m.register(w), nil
}

func (m *MemoryStore) Patch(ctx context.Context, writes map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ws, err := prepareWrites(writes)
	if err != nil {
		return err
	}

	m.mu.Lock()
	written := make([][]string, 0, len(ws))
	for _, w := range ws {
		root := setAt(m.docs[w.doc], w.inner, w.value)
		if root == nil {
			delete(m.docs, w.doc)
		} else {
			m.docs[w.doc] = root
		}
		written = append(written, w.segs)
	}
	notify := make([]*watch, 0)
	for _, w := range m.subs {
		if w.affectedByAny(written) {
			w.sub.add(m.snapshotFor(w))
			notify = append(notify, w)
		}
	}
	m.mu.Unlock()

	for _, w := range notify {
		w.sub.drain()
	}
	return nil
}

func (m *MemoryStore) PushKey(path string) string {
	return m.push.next()
}

func (m *MemoryStore) Connect() Connection {
	return newConn(m)
}
