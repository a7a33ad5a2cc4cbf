package orders

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"OrderNotify/internal/auth"
	"OrderNotify/pkg/kit"
)

// Server exposes a customer's own order history. Mount it under /my-account.
type Server struct {
	Store   Store
	Log     *zap.Logger
	BaseURL string
}

type orderView struct {
	ID        int64     `json:"id"`
	Status    Status    `json:"status"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	OrderURL  string    `json:"order_url"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireCustomer)

	r.Get("/orders", s.list)
	r.Get("/view-order/{id}", s.get)
	r.Get("/view-order/{id}/", s.get)

	return r
}

func (s *Server) view(o Order) orderView {
	items := o.Items
	if items == nil {
		items = []Item{}
	}
	return orderView{
		ID:        o.ID,
		Status:    o.Status,
		Items:     items,
		CreatedAt: o.CreatedAt,
		OrderURL:  ViewOrderURL(s.BaseURL, o.ID),
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.CustomerFromContext(r.Context())

	list, err := s.Store.ListByCustomer(r.Context(), c.ID)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("list orders failed", zap.Error(err), zap.Int64("customer_id", c.ID))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, s.view(o))
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.CustomerFromContext(r.Context())

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad order id", map[string]any{"id": raw})
		return
	}

	o, found, err := s.Store.GetOrder(r.Context(), id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("store get order failed", zap.Error(err), zap.Int64("order_id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	if o.CustomerID != c.ID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.view(o))
}
