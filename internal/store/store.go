// Package store defines the remote-store contract the whiteboard core is
// written against, plus the two adapters that implement it: an in-memory
// tree (tests, dev mode) and a Postgres+Redis backed one (production).
//
// The contract is Firebase-shaped on purpose — the rest of the system was
// built around these five primitives:
//
//   - ObserveRecord: emits immediately with the current value, then on
//     every change. No callback is started after Unsubscribe returns.
//   - ObserveCollection: same contract over an ordered-by-key sequence of
//     {key, value} entries.
//   - Patch: atomically applies a mapping of path -> value; a nil value
//     deletes that path. The whole patch succeeds or fails.
//   - PushKey: allocates a unique key, lexicographically sortable by
//     creation time, without writing a value.
//   - Connection.OnDisconnectSet: registers a write applied when the
//     issuing connection drops (used by the presence hook).
package store

import (
	"context"
	"errors"
)

var (
	// ErrClosed store 자체가 닫힌 뒤의 모든 연산에 반환
	ErrClosed = errors.New("store: closed")
	// ErrBadPath 경로 형식 오류 (빈 경로, 문서 경계 미달 등)
	ErrBadPath = errors.New("store: bad path")
)

// RecordEvent 단일 레코드 구독 이벤트
type RecordEvent struct {
	Exists bool
	Value  any
	Err    error
}

// Entry 컬렉션 멤버
type Entry struct {
	Key   string
	Value any
}

// CollectionEvent 컬렉션 구독 이벤트 (전체 스냅샷, diff 아님)
type CollectionEvent struct {
	Entries []Entry
	Err     error
}

// UnsubscribeFunc tears down a subscription. Idempotent; once it returns,
// no further callback is started for that subscription.
type UnsubscribeFunc func()

// Connection is a client-connection handle. Writes registered through
// OnDisconnectSet are applied when Close is called (or, for the durable
// adapter, when the owning process flushes the connection).
type Connection interface {
	// OnDisconnectSet registers value to be written at path when the
	// connection drops. A nil value deletes the path.
	OnDisconnectSet(path string, value any)
	// Close applies all registered disconnect writes and releases the
	// connection. Idempotent.
	Close()
}

// Store 원격 저장소 계약
type Store interface {
	ObserveRecord(path string, fn func(RecordEvent)) (UnsubscribeFunc, error)
	ObserveCollection(path string, fn func(CollectionEvent)) (UnsubscribeFunc, error)
	Patch(ctx context.Context, writes map[string]any) error
	PushKey(path string) string
	Connect() Connection
}

// GetRecord reads a record once: first observation, then teardown.
func GetRecord(s Store, path string) (any, bool, error) {
	var (
		got RecordEvent
		set bool
	)
	unsub, err := s.ObserveRecord(path, func(ev RecordEvent) {
		if !set {
			got = ev
			set = true
		}
	})
	if err != nil {
		return nil, false, err
	}
	unsub()
	if got.Err != nil {
		return nil, false, got.Err
	}
	return got.Value, got.Exists, nil
}

// GetCollection reads a collection snapshot once.
func GetCollection(s Store, path string) ([]Entry, error) {
	var (
		got CollectionEvent
		set bool
	)
	unsub, err := s.ObserveCollection(path, func(ev CollectionEvent) {
		if !set {
			got = ev
			set = true
		}
	})
	if err != nil {
		return nil, err
	}
	unsub()
	if got.Err != nil {
		return nil, got.Err
	}
	return got.Entries, nil
}
