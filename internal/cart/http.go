package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"OrderNotify/internal/catalog"
	"OrderNotify/internal/session"
	"OrderNotify/pkg/kit"
)

type Server struct {
	Catalog catalog.Reader
	Log     *zap.Logger
}

type addReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type lineView struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

type cartView struct {
	Items   []lineView `json:"items"`
	Skipped int        `json:"skipped,omitempty"`
}

// Routes is mounted under /cart behind session.Manager.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.get)
	r.Put("/", s.replace)
	r.Delete("/", s.clear)
	r.Post("/items", s.add)
	r.Delete("/items/{productID}", s.remove)

	return r
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, items []Item) {
	lines := Lines(items)
	view := cartView{Items: make([]lineView, 0, len(lines))}

	for _, l := range lines {
		lv := lineView{ProductID: l.ProductID, Quantity: l.Quantity}
		if p, ok, err := s.Catalog.GetProduct(r.Context(), l.ProductID); err == nil && ok {
			lv.ProductName = p.Name
		} else if err != nil && s.Log != nil {
			s.Log.Warn("cart product lookup failed", zap.Error(err), zap.Int64("product_id", l.ProductID))
		}
		view.Items = append(view.Items, lv)
	}
	for _, it := range items {
		if _, ok := IDOf(it); !ok {
			view.Skipped++
		}
	}

	kit.WriteJSON(w, status, view)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, Load(session.FromContext(r.Context())))
}

func (s *Server) replace(w http.ResponseWriter, r *http.Request) {
	body, err := kit.ReadBody(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad body", nil)
		return
	}

	items, err := DecodeItems(body)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sc := session.FromContext(r.Context())
	Save(sc, items)
	s.render(w, r, http.StatusOK, items)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	Clear(session.FromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ProductID <= 0 || req.Quantity < 0 || req.Quantity > MaxLineQuantity {
		kit.WriteError(w, r, http.StatusBadRequest, "bad item", nil)
		return
	}

	_, found, err := s.Catalog.GetProduct(r.Context(), req.ProductID)
	switch {
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
		return
	case err != nil:
		if s.Log != nil {
			s.Log.Warn("catalog error", zap.Error(err), zap.Int64("product_id", req.ProductID))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
		return
	case !found:
		kit.WriteError(w, r, http.StatusNotFound, "unknown product", map[string]any{"product_id": req.ProductID})
		return
	}

	items := Add(session.FromContext(r.Context()), req.ProductID, req.Quantity)
	s.render(w, r, http.StatusOK, items)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad product id", map[string]any{"product_id": raw})
		return
	}

	items := Remove(session.FromContext(r.Context()), id)
	s.render(w, r, http.StatusOK, items)
}
