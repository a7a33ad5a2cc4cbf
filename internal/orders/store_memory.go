package orders

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

type MemStore struct {
	mu     sync.RWMutex
	m      map[int64]Order
	nextID int64
	now    func() time.Time
}

func NewMemStore(seed ...Order) *MemStore {
	s := &MemStore{m: map[int64]Order{}, nextID: 1, now: time.Now}
	for _, o := range seed {
		s.put(o)
	}
	return s
}

func (s *MemStore) put(o Order) Order {
	if o.ID == 0 {
		o.ID = s.nextID
	}
	if o.ID >= s.nextID {
		s.nextID = o.ID + 1
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	o.Items = slices.Clone(o.Items)
	s.m[o.ID] = o
	return o
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) FindOrders(_ context.Context, q Query) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Order, 0, 8)
	for _, o := range s.m {
		if q.matches(o) {
			matched = append(matched, o)
		}
	}
	sortOldestFirst(matched)

	ids := make([]int64, len(matched))
	for i, o := range matched {
		ids[i] = o.ID
	}
	return ids, nil
}

func (s *MemStore) GetOrder(_ context.Context, id int64) (Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[id]
	if !ok {
		return Order{}, false, nil
	}
	o.Items = slices.Clone(o.Items)
	return o, true, nil
}

func (s *MemStore) Create(_ context.Context, o Order) (Order, error) {
	if err := validateNew(o); err != nil {
		return Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(o), nil
}

func (s *MemStore) ListByCustomer(_ context.Context, customerID int64) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, 8)
	for _, o := range s.m {
		if o.CustomerID == customerID {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	sortOldestFirst(out)
	slices.Reverse(out)
	return out, nil
}

func sortOldestFirst(list []Order) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
