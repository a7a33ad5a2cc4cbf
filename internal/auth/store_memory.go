package auth

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type MemStore struct {
	mu      sync.RWMutex
	byEmail map[string]Customer
	nextID  int64
	cost    int
}

func NewMemStore() *MemStore {
	return &MemStore{byEmail: make(map[string]Customer), nextID: 1, cost: bcrypt.DefaultCost}
}

// NewFastMemStore uses the minimum bcrypt cost; for tests.
func NewFastMemStore() *MemStore {
	s := NewMemStore()
	s.cost = bcrypt.MinCost
	return s
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Create(_ context.Context, email, password string) (Customer, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Customer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return Customer{}, ErrEmailExists
	}

	c := Customer{ID: s.nextID, Email: email, Hash: hash, Role: RoleCustomer}
	s.nextID++
	s.byEmail[email] = c
	return c, nil
}

func (s *MemStore) Verify(_ context.Context, email, password string) (Customer, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	s.mu.RLock()
	c, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok {
		return Customer{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(c.Hash, []byte(password)); err != nil {
		return Customer{}, ErrInvalidCredentials
	}

	return c, nil
}
