// Package session holds the authorization state of one signed-in user.
//
// A Session is the single source of truth for "who is signed in" and "may they
// see the admin area". It is an owned object, never a package global:
//
//   - on the server, the auth middleware builds one Session per request from
//     the token cookie (or Bearer header) and stores it in the request context;
//   - in the API client, one Session lives as long as the client.
//
// Other components (route guards, the watchlist, the checkpointer) only read
// from it.
package session

import (
	"context"
	"sync"

	"github.com/sakif/streambox/internal/model"
)

// Session holds the current principal, its profile and the derived admin flag.
// The zero value is a signed-out session and is ready to use.
type Session struct {
	mu        sync.RWMutex
	principal *model.Principal
	profile   *model.Profile
	isAdmin   bool
}

// New returns an empty, signed-out Session.
func New() *Session {
	return &Session{}
}

// SetPrincipal replaces the authenticated identity. Passing nil clears it.
// No validation happens here; the token layer already did it.
func (s *Session) SetPrincipal(p *model.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = p
}

// SetProfile replaces the profile and recomputes the admin flag in the same
// critical section, so readers never observe a profile/flag mismatch.
func (s *Session) SetProfile(p *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.isAdmin = model.IsAdmin(p)
}

func (s *Session) Principal() *model.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

func (s *Session) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}

// ProfileID returns the id of the current profile, or "" when there is none.
// Watchlist and progress rows are keyed by this id.
func (s *Session) ProfileID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return ""
	}
	return s.profile.ID
}

// Snapshot is a consistent, read-only copy of the session state.
type Snapshot struct {
	Principal *model.Principal
	Profile   *model.Profile
	IsAdmin   bool
}

// Authenticated reports whether a principal is present.
func (s Snapshot) Authenticated() bool {
	return s.Principal != nil
}

// Snapshot copies the three fields under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Principal: s.principal, Profile: s.profile, IsAdmin: s.isAdmin}
}

// SignOuter is the remote half of sign-out (token revocation on the server,
// POST /api/auth/signout in the API client).
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// SignOutFunc adapts a plain function to SignOuter.
type SignOutFunc func(ctx context.Context) error

func (f SignOutFunc) SignOut(ctx context.Context) error { return f(ctx) }

// SignOut calls the remote sign-out and then clears the session.
//
// The local reset happens whatever the remote call returns: a user who clicked
// "sign out" must end up signed out even when the backend is unreachable.
// The remote error is still returned so the caller can log it. A nil remote
// only clears local state.
func (s *Session) SignOut(ctx context.Context, remote SignOuter) error {
	var err error
	if remote != nil {
		err = remote.SignOut(ctx)
	}
	s.clear()
	return err
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = nil
	s.profile = nil
	s.isAdmin = false
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the Session stored by NewContext. Requests that went
// through the auth middleware always have one; otherwise an empty,
// signed-out Session is returned so callers never deal with nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
