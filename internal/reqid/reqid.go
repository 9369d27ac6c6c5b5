package reqid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the request ID.
type key struct{}

// Scope identifies one context the request ID was stored in. Two requests
// carrying the same client-supplied ID get distinct scopes, so per-request
// state keyed by Scope never collides.
type Scope struct {
	id string
}

// ID returns the request ID the scope was created for.
func (s *Scope) ID() string { return s.id }

// NewContext returns a copy of parent with a new random request ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID returns a copy of parent carrying id. Callers use it to keep an ID
// supplied by the client.
func WithID(parent context.Context, id string) (context.Context, string) {
	return context.WithValue(parent, key{}, &Scope{id: id}), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.id, true
}

// ScopeFromContext returns the scope stored by NewContext or WithID.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(key{}).(*Scope)
	return s, ok
}
