package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newCatalogTS(t *testing.T, store Store) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Mount("/products", (&Server{Store: store, Log: zap.NewNop()}).Routes())

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_GetProduct(t *testing.T) {
	ts := newCatalogTS(t, NewMemStore(DemoProducts()...))
	c := NewClient(ts.URL + "/")

	p, found, err := c.GetProduct(context.Background(), 43)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if p.Name != "Burr Grinder" || p.PriceCents != 12900 {
		t.Fatalf("unexpected product %+v", p)
	}

	_, found, err = c.GetProduct(context.Background(), 7777)
	if err != nil || found {
		t.Fatalf("missing product: found=%v err=%v", found, err)
	}
}

func TestClient_ListAndPing(t *testing.T) {
	ts := newCatalogTS(t, NewMemStore(DemoProducts()...))
	c := NewClient(ts.URL)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	list, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != 42 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestClient_UpstreamErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	_, _, err := NewClient(ts.URL).GetProduct(context.Background(), 42)
	if !errors.Is(err, ErrCatalogBadStatus) {
		t.Fatalf("expected ErrCatalogBadStatus, got %v", err)
	}

	ts.Close()
	_, _, err = NewClient(ts.URL).GetProduct(context.Background(), 42)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestServer_Routes(t *testing.T) {
	store := NewMemStore(DemoProducts()...)
	store.Delete(99)
	store.Put(Product{ID: 100, Name: "Tamper", PriceCents: 3500})
	h := (&Server{Store: store, Log: zap.NewNop()}).Routes()

	cases := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/42", http.StatusOK},
		{"/100", http.StatusOK},
		{"/99", http.StatusNotFound},
		{"/abc", http.StatusBadRequest},
		{"/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.want {
			t.Errorf("GET %s: status=%d want=%d", tc.path, rr.Code, tc.want)
		}
	}
}
