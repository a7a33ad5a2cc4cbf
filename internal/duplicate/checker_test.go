package duplicate

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"OrderNotify/internal/cart"
	"OrderNotify/internal/orders"
)

const baseURL = "https://shop.example.com"

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type countingStore struct {
	*orders.MemStore

	finds int
	gets  int

	failFind func(q orders.Query) error
	failGet  func(id int64) error
}

func (s *countingStore) FindOrders(ctx context.Context, q orders.Query) ([]int64, error) {
	s.finds++
	if s.failFind != nil {
		if err := s.failFind(q); err != nil {
			return nil, err
		}
	}
	return s.MemStore.FindOrders(ctx, q)
}

func (s *countingStore) GetOrder(ctx context.Context, id int64) (orders.Order, bool, error) {
	s.gets++
	if s.failGet != nil {
		if err := s.failGet(id); err != nil {
			return orders.Order{}, false, err
		}
	}
	return s.MemStore.GetOrder(ctx, id)
}

func newStore(seed ...orders.Order) *countingStore {
	return &countingStore{MemStore: orders.NewMemStore(seed...)}
}

func newChecker(store OrderFinder) *Checker {
	return NewChecker(store, Config{BaseURL: baseURL, Now: func() time.Time { return now }})
}

func order(id, customer int64, st orders.Status, created time.Time, products ...int64) orders.Order {
	o := orders.Order{ID: id, CustomerID: customer, Status: st, CreatedAt: created}
	for _, p := range products {
		o.Items = append(o.Items, orders.Item{ProductID: p, Quantity: 1})
	}
	return o
}

func match(id int64, st orders.Status) Match {
	return Match{OrderID: id, OrderURL: orders.ViewOrderURL(baseURL, id), Status: string(st)}
}

func TestCheckDuplicates_EmptyInputsSkipStore(t *testing.T) {
	store := newStore(order(7, 1, orders.StatusProcessing, now, 42))
	c := newChecker(store)

	cases := []struct {
		name  string
		user  int64
		items []cart.Item
	}{
		{"no user", 0, []cart.Item{cart.Line{ProductID: 42, Quantity: 1}}},
		{"nil cart", 1, nil},
		{"empty cart", 1, []cart.Item{}},
		{"only unknown shapes", 1, []cart.Item{cart.Unknown{Raw: []byte(`"42"`)}, cart.ProductRef(0)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.CheckDuplicates(context.Background(), tc.user, tc.items)
			if !got.Empty() {
				t.Fatalf("expected empty set, got %v", got)
			}
		})
	}

	if store.finds != 0 || store.gets != 0 {
		t.Fatalf("store queried: finds=%d gets=%d", store.finds, store.gets)
	}
}

func TestCheckDuplicates_OpenOrderMatch(t *testing.T) {
	store := newStore(
		order(7, 1, orders.StatusProcessing, now.AddDate(-2, 0, 0), 42),
		order(8, 2, orders.StatusProcessing, now, 42),
	)
	c := newChecker(store)

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.Line{ProductID: 42, Quantity: 1}})

	want := Set{42: {match(7, orders.StatusProcessing)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestCheckDuplicates_AllOpenStatuses(t *testing.T) {
	store := newStore(
		order(1, 1, orders.StatusPending, now, 42),
		order(2, 1, orders.StatusOnHold, now, 42),
		order(3, 1, orders.StatusProcessing, now, 42),
		order(4, 1, orders.StatusCancelled, now, 42),
		order(5, 1, orders.StatusFailed, now, 42),
	)
	c := newChecker(store)

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.ProductRef(42)})

	want := Set{42: {
		match(1, orders.StatusPending),
		match(2, orders.StatusOnHold),
		match(3, orders.StatusProcessing),
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestCheckDuplicates_CompletedCutoffIsInclusive(t *testing.T) {
	cutoff := now.AddDate(0, -3, 0)
	store := newStore(
		order(10, 1, orders.StatusCompleted, cutoff.Add(-time.Second), 42),
		order(11, 1, orders.StatusCompleted, cutoff, 42),
		order(12, 1, orders.StatusCompleted, now.Add(-time.Hour), 42),
	)
	c := newChecker(store)

	if !c.Cutoff().Equal(cutoff) {
		t.Fatalf("cutoff=%s want=%s", c.Cutoff(), cutoff)
	}

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.ProductRef(42)})

	want := Set{42: {match(11, orders.StatusCompleted), match(12, orders.StatusCompleted)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestCheckDuplicates_OpenScanFirstThenCompleted(t *testing.T) {
	store := newStore(
		order(9, 1, orders.StatusCompleted, now.AddDate(0, -1, 0), 42),
		order(7, 1, orders.StatusProcessing, now, 42),
	)
	c := newChecker(store)

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.Line{ProductID: 42, Quantity: 2}})

	want := Set{42: {match(7, orders.StatusProcessing), match(9, orders.StatusCompleted)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestCheckDuplicates_OnlyCartProductsReported(t *testing.T) {
	store := newStore(
		order(7, 1, orders.StatusProcessing, now, 42, 43, 44),
		order(8, 1, orders.StatusPending, now.Add(time.Minute), 43, 43),
	)
	c := newChecker(store)

	items := []cart.Item{
		cart.ProductRef(43),
		cart.Line{ProductID: 42, Quantity: 1},
		cart.Line{ProductID: 43, Quantity: 3},
		cart.Unknown{Raw: []byte(`{"sku":"X"}`)},
		cart.ProductRef(99),
	}
	got := c.CheckDuplicates(context.Background(), 1, items)

	want := Set{
		42: {match(7, orders.StatusProcessing)},
		43: {match(7, orders.StatusProcessing), match(8, orders.StatusPending), match(8, orders.StatusPending)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if ids := got.ProductIDs(); !reflect.DeepEqual(ids, []int64{42, 43}) {
		t.Fatalf("ProductIDs=%v", ids)
	}
	if ids := got.OrderIDs(); !reflect.DeepEqual(ids, []int64{7, 8}) {
		t.Fatalf("OrderIDs=%v", ids)
	}
}

func TestCheckDuplicates_NoMatches(t *testing.T) {
	store := newStore(order(7, 1, orders.StatusProcessing, now, 42))
	c := newChecker(store)

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.Line{ProductID: 99, Quantity: 1}})
	if !got.Empty() {
		t.Fatalf("expected empty, got %v", got)
	}
	if store.finds != 2 {
		t.Fatalf("expected both scans to run, finds=%d", store.finds)
	}
}

func TestCheckDuplicates_Idempotent(t *testing.T) {
	store := newStore(
		order(7, 1, orders.StatusProcessing, now, 42),
		order(9, 1, orders.StatusCompleted, now.AddDate(0, -1, 0), 42, 43),
	)
	c := newChecker(store)
	items := []cart.Item{cart.ProductRef(42), cart.ProductRef(43)}

	first := c.CheckDuplicates(context.Background(), 1, items)
	second := c.CheckDuplicates(context.Background(), 1, items)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%v\n%v", first, second)
	}
}

func TestCheckDuplicates_FailedScanDoesNotAbortOther(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	store := newStore(
		order(7, 1, orders.StatusProcessing, now, 42),
		order(9, 1, orders.StatusCompleted, now.AddDate(0, -1, 0), 42),
	)
	store.failFind = func(q orders.Query) error {
		if q.CreatedFrom.IsZero() {
			return errors.New("connection reset")
		}
		return nil
	}
	c := NewChecker(store, Config{BaseURL: baseURL, Metrics: m, Now: func() time.Time { return now }})

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.ProductRef(42)})

	want := Set{42: {match(9, orders.StatusCompleted)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if v := testutil.ToFloat64(m.ScanFailures.WithLabelValues(scanOpen)); v != 1 {
		t.Fatalf("open scan failures=%v", v)
	}
	if v := testutil.ToFloat64(m.Checks.WithLabelValues(resultFound)); v != 1 {
		t.Fatalf("found checks=%v", v)
	}
}

func TestCheckDuplicates_GetOrderErrorDropsWholeScan(t *testing.T) {
	store := newStore(
		order(7, 1, orders.StatusProcessing, now.Add(-time.Hour), 42),
		order(8, 1, orders.StatusProcessing, now, 42),
	)
	store.failGet = func(id int64) error {
		if id == 8 {
			return errors.New("timeout")
		}
		return nil
	}
	c := newChecker(store)

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.ProductRef(42)})
	if !got.Empty() {
		t.Fatalf("partial scan leaked into result: %v", got)
	}
}

func TestCheckDuplicates_CustomConfig(t *testing.T) {
	store := newStore(
		order(1, 1, orders.StatusPending, now, 42),
		order(2, 1, orders.StatusOnHold, now, 42),
		order(3, 1, orders.StatusCompleted, now.AddDate(0, -5, 0), 42),
	)
	c := NewChecker(store, Config{
		BaseURL:        baseURL,
		OpenStatuses:   []orders.Status{orders.StatusOnHold},
		LookbackMonths: 6,
		Now:            func() time.Time { return now },
	})

	got := c.CheckDuplicates(context.Background(), 1, []cart.Item{cart.ProductRef(42)})

	want := Set{42: {match(2, orders.StatusOnHold), match(3, orders.StatusCompleted)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}
