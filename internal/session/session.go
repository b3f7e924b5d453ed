// Package session carries the authenticated principal of one caller. A Session is created per request and
// handed to the facade explicitly; nothing reads identity from package state.
package session

import (
	"context"
	"sync"

	"campusrx/m/domain"
)

// Principal is who the caller is.
type Principal struct {
	UserID       string      `json:"user_id,omitempty"`
	Email        string      `json:"email,omitempty"`
	Role         domain.Role `json:"role"`
	PharmacyID   string      `json:"pharmacy_id,omitempty"`
	PharmacyName string      `json:"pharmacy_name,omitempty"`
	DisplayName  string      `json:"display_name,omitempty"`
}

// Anonymous is the principal of an unauthenticated caller.
var Anonymous = Principal{Role: domain.RoleAnonymous}

func (p Principal) IsAdmin() bool    { return p.Role == domain.RoleAdmin }
func (p Principal) IsPharmacy() bool { return p.Role == domain.RolePharmacy && p.PharmacyID != "" }

// Source resolves a bearer token into a principal.
type Source interface {
	Principal(ctx context.Context, token string) (Principal, error)
}

// Session holds the current principal and can re-resolve it from its Source.
type Session struct {
	source Source
	token  string

	mu        sync.RWMutex
	principal Principal
}

// New returns a session for token. Call Reload to resolve it.
func New(source Source, token string) *Session {
	return &Session{source: source, token: token, principal: Anonymous}
}

// Static returns a session fixed to p. Reload is a no-op.
func Static(p Principal) *Session {
	return &Session{principal: p}
}

// Principal returns the current principal. A nil session is anonymous.
func (s *Session) Principal() Principal {
	if s == nil {
		return Anonymous
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Reload re-resolves the principal from the token. An empty token resolves to Anonymous.
func (s *Session) Reload(ctx context.Context) error {
	if s == nil || s.source == nil {
		return nil
	}
	p := Anonymous
	if s.token != "" {
		var err error
		p, err = s.source.Principal(ctx, s.token)
		if err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.principal = p
	s.mu.Unlock()
	return nil
}

type ctxKey struct{}

// WithContext stores s in ctx.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
