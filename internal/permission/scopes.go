// Package permission validates and resolves capability scopes over the
// three resource kinds (chat, session, whiteboard).
package permission

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrScopeTypeMismatch 그랜트에 리소스 종류와 맞지 않는 스코프가 포함됨
	ErrScopeTypeMismatch = errors.New("permission: scope set does not match resource kind")
	// ErrUnknownResourceKind 지원하지 않는 리소스 종류
	ErrUnknownResourceKind = errors.New("permission: unknown resource kind")
	// ErrUnknownGroup 지원하지 않는 그룹
	ErrUnknownGroup = errors.New("permission: unknown group")
)

// ResourceKind 권한 네임스페이스 (chat/session/whiteboard)
type ResourceKind string

const (
	ResourceChat       ResourceKind = "chat"
	ResourceSession    ResourceKind = "session"
	ResourceWhiteboard ResourceKind = "whiteboard"
)

func (k ResourceKind) String() string {
	return string(k)
}

func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceChat, ResourceSession, ResourceWhiteboard:
		return true
	}
	return false
}

// recordPath Firebase 시절 경로 유지: <kind>Permissions/<key>
func (k ResourceKind) recordPath(key string) string {
	return string(k) + "Permissions/" + key
}

// Capability 단일 권한
type Capability string

const (
	CapabilityRead      Capability = "read"
	CapabilityWrite     Capability = "write"
	CapabilityModerator Capability = "moderator"
)

// vocabulary is the fixed capability set per resource kind. The three
// kinds share one vocabulary today but are validated independently.
var vocabulary = map[ResourceKind]map[Capability]bool{
	ResourceChat:       {CapabilityRead: true, CapabilityWrite: true, CapabilityModerator: true},
	ResourceSession:    {CapabilityRead: true, CapabilityWrite: true, CapabilityModerator: true},
	ResourceWhiteboard: {CapabilityRead: true, CapabilityWrite: true, CapabilityModerator: true},
}

// Group 스코프가 붙는 그룹
type Group string

const (
	GroupAnonymous Group = "anonymous"
	GroupLoggedIn  Group = "loggedIn"
	GroupUser      Group = "user"
)

func (g Group) Valid() bool {
	switch g {
	case GroupAnonymous, GroupLoggedIn, GroupUser:
		return true
	}
	return false
}

// ScopeSet is a validated capability set tagged with its resource kind.
// It can only be built through the validating factories, so a ScopeSet
// in hand never contains an out-of-vocabulary or falsy-granted
// capability. The zero ScopeSet matches no resource kind.
type ScopeSet struct {
	kind ResourceKind
	caps map[Capability]bool
}

// NewScopeSet builds a ScopeSet for kind, silently dropping capabilities
// outside the kind's vocabulary and entries granted falsy.
func NewScopeSet(kind ResourceKind, grants map[Capability]bool) ScopeSet {
	vocab := vocabulary[kind]
	caps := make(map[Capability]bool)
	for c, granted := range grants {
		if granted && vocab[c] {
			caps[c] = true
		}
	}
	return ScopeSet{kind: kind, caps: caps}
}

// Factories mirroring the per-kind scope classes of the old client.

func NewChatScopes(grants map[Capability]bool) ScopeSet {
	return NewScopeSet(ResourceChat, grants)
}

func NewSessionScopes(grants map[Capability]bool) ScopeSet {
	return NewScopeSet(ResourceSession, grants)
}

func NewWhiteboardScopes(grants map[Capability]bool) ScopeSet {
	return NewScopeSet(ResourceWhiteboard, grants)
}

// ScopeSetFromValue builds a ScopeSet from an untyped store or request
// value. The value must be an object; extra keys and falsy values are
// dropped, anything else is a shape error.
func ScopeSetFromValue(kind ResourceKind, value any) (ScopeSet, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return ScopeSet{}, fmt.Errorf("%w: %T is not a scope object", ErrScopeTypeMismatch, value)
	}
	grants := make(map[Capability]bool, len(obj))
	for k, v := range obj {
		grants[Capability(k)] = truthy(v)
	}
	return NewScopeSet(kind, grants), nil
}

// truthy follows the grant convention the store inherited: false, zero,
// empty string and null are non-grants.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

func (s ScopeSet) Kind() ResourceKind {
	return s.kind
}

func (s ScopeSet) Has(c Capability) bool {
	return s.caps[c]
}

func (s ScopeSet) Empty() bool {
	return len(s.caps) == 0
}

// Capabilities returns the granted capabilities in stable order.
func (s ScopeSet) Capabilities() []Capability {
	out := make([]Capability, 0, len(s.caps))
	for c := range s.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// union merges two sets of the same kind.
func (s ScopeSet) union(other ScopeSet) ScopeSet {
	caps := make(map[Capability]bool, len(s.caps)+len(other.caps))
	for c := range s.caps {
		caps[c] = true
	}
	for c := range other.caps {
		caps[c] = true
	}
	return ScopeSet{kind: s.kind, caps: caps}
}

// value is the store representation: capability -> true, falsy entries
// never stored.
func (s ScopeSet) value() map[string]any {
	out := make(map[string]any, len(s.caps))
	for c := range s.caps {
		out[string(c)] = true
	}
	return out
}
