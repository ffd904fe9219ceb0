package permission

import (
	"context"
	"fmt"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/store"
)

// Grant proposes group-level scope assignments for one resource. Nil
// pointers mean "group not mentioned".
type Grant struct {
	Anonymous *ScopeSet
	LoggedIn  *ScopeSet
	User      map[string]*ScopeSet
}

// Record is a resolved permission record as stored.
type Record struct {
	Anonymous *ScopeSet
	LoggedIn  *ScopeSet
	User      map[string]ScopeSet
}

// Service 권한 레코드 생성/병합/해석
//
// Records live at <kind>Permissions/<key> and are mutated in place;
// AddScope and RemoveScope are read-modify-write against the latest
// snapshot, and concurrent scope edits to the same group may lose an
// update — accepted at this layer, not a bug to fix here.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreatePermission validates the whole grant and then writes (or fully
// replaces) the record. All-or-nothing: one mismatched group fails the
// call and nothing is written.
func (s *Service) CreatePermission(ctx context.Context, key string, kind ResourceKind, grant Grant) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}

	record := make(map[string]any)
	if grant.Anonymous != nil {
		if grant.Anonymous.Kind() != kind {
			return fmt.Errorf("%w: anonymous group is %q, want %q", ErrScopeTypeMismatch, grant.Anonymous.Kind(), kind)
		}
		record[string(GroupAnonymous)] = grant.Anonymous.value()
	}
	if grant.LoggedIn != nil {
		if grant.LoggedIn.Kind() != kind {
			return fmt.Errorf("%w: loggedIn group is %q, want %q", ErrScopeTypeMismatch, grant.LoggedIn.Kind(), kind)
		}
		record[string(GroupLoggedIn)] = grant.LoggedIn.value()
	}
	if len(grant.User) > 0 {
		users := make(map[string]any, len(grant.User))
		for uid, ss := range grant.User {
			if ss == nil || ss.Kind() != kind {
				return fmt.Errorf("%w: user %q entry does not match %q", ErrScopeTypeMismatch, uid, kind)
			}
			users[uid] = ss.value()
		}
		record[string(GroupUser)] = users
	}

	return s.store.Patch(ctx, map[string]any{kind.recordPath(key): record})
}

// GetPermission reads the raw record once.
func (s *Service) GetPermission(ctx context.Context, key string, kind ResourceKind) (Record, bool, error) {
	if !kind.Valid() {
		return Record{}, false, fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}
	value, exists, err := store.GetRecord(s.store, kind.recordPath(key))
	if err != nil || !exists {
		return Record{}, false, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return Record{}, false, nil
	}

	var rec Record
	if v, ok := obj[string(GroupAnonymous)]; ok {
		ss := lenientScopes(kind, v)
		rec.Anonymous = &ss
	}
	if v, ok := obj[string(GroupLoggedIn)]; ok {
		ss := lenientScopes(kind, v)
		rec.LoggedIn = &ss
	}
	if users, ok := obj[string(GroupUser)].(map[string]any); ok {
		rec.User = make(map[string]ScopeSet, len(users))
		for uid, v := range users {
			rec.User[uid] = lenientScopes(kind, v)
		}
	}
	return rec, true, nil
}

// GetEffectiveScope resolves the single scope set that applies to the
// actor: per-subject entry first, then loggedIn, then anonymous, then
// empty. Missing records and unresolved auth state both resolve to the
// empty set — callers treat "no scope" and "unknown auth state" the
// same way: deny.
func (s *Service) GetEffectiveScope(ctx context.Context, key string, kind ResourceKind, actor auth.Context) (ScopeSet, error) {
	empty := NewScopeSet(kind, nil)
	if !kind.Valid() {
		return empty, fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}
	if !actor.Resolved {
		return empty, nil
	}

	rec, exists, err := s.GetPermission(ctx, key, kind)
	if err != nil {
		return empty, err
	}
	if !exists {
		return empty, nil
	}

	if !actor.LoggedIn() {
		if rec.Anonymous != nil {
			return *rec.Anonymous, nil
		}
		return empty, nil
	}
	if ss, ok := rec.User[actor.UID]; ok {
		return ss, nil
	}
	if rec.LoggedIn != nil {
		return *rec.LoggedIn, nil
	}
	return empty, nil
}

// AddScope merges scopes into the group of an existing record (union by
// capability), creating the per-user entry when needed. When no record
// exists yet it creates one through CreatePermission with only this
// group populated.
func (s *Service) AddScope(ctx context.Context, key string, kind ResourceKind, scopes ScopeSet, group Group, uid string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}
	if scopes.Kind() != kind {
		return fmt.Errorf("%w: scopes are %q, want %q", ErrScopeTypeMismatch, scopes.Kind(), kind)
	}
	if !group.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	if group == GroupUser && uid == "" {
		return fmt.Errorf("%w: user group needs a subject id", ErrUnknownGroup)
	}

	rec, exists, err := s.GetPermission(ctx, key, kind)
	if err != nil {
		return err
	}
	if !exists {
		return s.CreatePermission(ctx, key, kind, grantFor(group, uid, scopes))
	}

	current := NewScopeSet(kind, nil)
	switch group {
	case GroupAnonymous:
		if rec.Anonymous != nil {
			current = *rec.Anonymous
		}
	case GroupLoggedIn:
		if rec.LoggedIn != nil {
			current = *rec.LoggedIn
		}
	case GroupUser:
		if ss, ok := rec.User[uid]; ok {
			current = ss
		}
	}
	merged := current.union(scopes)
	return s.store.Patch(ctx, map[string]any{
		s.groupPath(key, kind, group, uid): merged.value(),
	})
}

// RemoveScope clears the named capabilities from the target group. A
// record that does not exist yet has nothing to remove, so it is a
// no-op, and removing the last capability leaves an empty-but-present
// group rather than deleting the record.
func (s *Service) RemoveScope(ctx context.Context, key string, kind ResourceKind, scopes ScopeSet, group Group, uid string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}
	if scopes.Kind() != kind {
		return fmt.Errorf("%w: scopes are %q, want %q", ErrScopeTypeMismatch, scopes.Kind(), kind)
	}
	if !group.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	if group == GroupUser && uid == "" {
		return fmt.Errorf("%w: user group needs a subject id", ErrUnknownGroup)
	}

	rec, exists, err := s.GetPermission(ctx, key, kind)
	if err != nil || !exists {
		return err
	}

	var current *ScopeSet
	switch group {
	case GroupAnonymous:
		current = rec.Anonymous
	case GroupLoggedIn:
		current = rec.LoggedIn
	case GroupUser:
		if ss, ok := rec.User[uid]; ok {
			current = &ss
		}
	}
	if current == nil {
		return nil
	}

	remaining := make(map[Capability]bool)
	for _, c := range current.Capabilities() {
		if !scopes.Has(c) {
			remaining[c] = true
		}
	}
	return s.store.Patch(ctx, map[string]any{
		s.groupPath(key, kind, group, uid): NewScopeSet(kind, remaining).value(),
	})
}

func (s *Service) groupPath(key string, kind ResourceKind, group Group, uid string) string {
	if group == GroupUser {
		return kind.recordPath(key) + "/user/" + uid
	}
	return kind.recordPath(key) + "/" + string(group)
}

func grantFor(group Group, uid string, scopes ScopeSet) Grant {
	switch group {
	case GroupAnonymous:
		return Grant{Anonymous: &scopes}
	case GroupLoggedIn:
		return Grant{LoggedIn: &scopes}
	default:
		return Grant{User: map[string]*ScopeSet{uid: &scopes}}
	}
}

// lenientScopes parses a stored group value, tolerating junk the way
// compaction tolerates malformed edits: non-objects become the empty
// set rather than an error, since the data is already past validation.
func lenientScopes(kind ResourceKind, value any) ScopeSet {
	ss, err := ScopeSetFromValue(kind, value)
	if err != nil {
		return NewScopeSet(kind, nil)
	}
	return ss
}
