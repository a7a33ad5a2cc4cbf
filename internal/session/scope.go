package session

import "context"

// Scope is one shopper's view of the store.
type Scope struct {
	store Store
	id    string
}

func NewScope(store Store, id string) Scope {
	return Scope{store: store, id: id}
}

func (s Scope) ID() string { return s.id }

func (s Scope) Valid() bool { return s.store != nil && s.id != "" }

// Get returns def when the key is unset.
func (s Scope) Get(key string, def any) any {
	if !s.Valid() {
		return def
	}
	if v, ok := s.store.Get(s.id, key); ok {
		return v
	}
	return def
}

func (s Scope) Set(key string, v any) {
	if s.Valid() {
		s.store.Set(s.id, key, v)
	}
}

func (s Scope) Unset(key string) {
	if s.Valid() {
		s.store.Unset(s.id, key)
	}
}

// Clear drops everything stored for the session.
func (s Scope) Clear() {
	if s.Valid() {
		s.store.Destroy(s.id)
	}
}

const ownerKey = "order_notify_owner"

// BindOwner ties the session to customerID (0 for a guest). State left by a
// different logged-in customer is discarded first. A guest session is kept
// when its shopper logs in.
func BindOwner(s Scope, customerID int64) {
	prev, _ := Value[int64](s, ownerKey)
	if prev == customerID {
		return
	}
	if prev != 0 {
		s.Clear()
	}
	if customerID != 0 {
		s.Set(ownerKey, customerID)
	}
}

// Value reads a key with its concrete type. A value of another type is
// treated as absent.
func Value[T any](s Scope, key string) (T, bool) {
	v, ok := s.Get(key, nil).(T)
	return v, ok
}

type ctxKey struct{}

func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) Scope {
	s, _ := ctx.Value(ctxKey{}).(Scope)
	return s
}
