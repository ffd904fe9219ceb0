package auth

import "errors"

// ErrUnauthenticated 식별된 주체가 필요한 연산에 익명/미해결 상태로 접근
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Context is the resolved authentication state for one operation. It is
// passed explicitly into everything that needs identity instead of
// living in shared mutable state, so scope resolution stays testable.
//
// Resolved=false means the auth state is still unknown (a client whose
// token is still being verified); permission resolution treats that the
// same as "no scope": deny.
type Context struct {
	Resolved bool
	UID      string
}

// Pending 아직 해결되지 않은 인증 상태
var Pending = Context{}

// Anonymous 로그인하지 않은 것으로 확정된 상태
func Anonymous() Context {
	return Context{Resolved: true}
}

// Subject 로그인된 주체
func Subject(uid string) Context {
	return Context{Resolved: true, UID: uid}
}

// LoggedIn reports whether the actor is a known subject.
func (c Context) LoggedIn() bool {
	return c.Resolved && c.UID != ""
}
