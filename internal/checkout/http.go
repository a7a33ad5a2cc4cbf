package checkout

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"OrderNotify/internal/auth"
	"OrderNotify/internal/cart"
	"OrderNotify/internal/events"
	"OrderNotify/internal/orders"
	"OrderNotify/internal/session"
	"OrderNotify/pkg/kit"
)

const (
	submitLimitPerMin = 30
	limitWindow       = 60 * time.Second
)

type OrderCreator interface {
	Create(ctx context.Context, o orders.Order) (orders.Order, error)
}

// Server is mounted under /checkout behind session.Manager and
// auth.OptionalJWT.
type Server struct {
	Handler *Handler
	Orders  OrderCreator
	BaseURL string
	Log     *zap.Logger
}

type failureResp struct {
	Result     string           `json:"result"`
	Notices    []Notice         `json:"notices"`
	Duplicates []ProductSummary `json:"duplicates"`
}

type successResp struct {
	Result   string `json:"result"`
	OrderID  int64  `json:"order_id"`
	OrderURL string `json:"order_url"`
}

func (s *Server) Routes() http.Handler {
	limiter := kit.NewIPRateLimiter(submitLimitPerMin, limitWindow)

	r := chi.NewRouter()
	r.Get("/", s.page)
	r.With(limiter.Middleware).Post("/", s.submit)
	r.Get("/duplicates", s.duplicates)
	return r
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := session.FromContext(ctx)
	_, loggedIn := auth.CustomerFromContext(ctx)

	data := pageData{
		LoggedIn: loggedIn,
		Action:   "/checkout",
		Dialog:   s.Handler.DialogPayload(ctx, sc),
	}
	data.addAssets(s.Handler.Assets())

	for _, l := range cart.Lines(cart.Load(sc)) {
		pl := pageLine{ProductID: l.ProductID, Quantity: l.Quantity}
		if p, ok, err := s.Handler.Catalog.GetProduct(ctx, l.ProductID); err == nil && ok {
			pl.Name = p.Name
		} else {
			if err != nil {
				s.logger().Warn("checkout product lookup failed", zap.Error(err), zap.Int64("product_id", l.ProductID))
			}
			pl.Name = "Product #" + strconv.FormatInt(l.ProductID, 10)
		}
		data.Lines = append(data.Lines, pl)
	}

	if err := renderPage(w, data); err != nil {
		s.logger().Error("render checkout page", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad form", nil)
		return
	}

	ctx := r.Context()
	sc := session.FromContext(ctx)
	customer, _ := auth.CustomerFromContext(ctx)

	items := cart.Load(sc)
	lines := cart.Lines(items)
	if customer.ID > 0 && len(lines) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "cart is empty", nil)
		return
	}

	res := s.Handler.Validate(ctx, sc, Submission{
		UserID:           customer.ID,
		Cart:             items,
		IgnoreDuplicates: r.PostForm.Get(IgnoreField) == IgnoreValue,
	})

	switch res.Outcome {
	case OutcomeSkipped:
		kit.WriteError(w, r, http.StatusUnauthorized, "login required", nil)
		return
	case OutcomeBlocked:
		payload := s.Handler.DialogPayload(ctx, sc)
		if payload == nil {
			payload = []ProductSummary{}
		}
		kit.WriteJSON(w, http.StatusConflict, failureResp{
			Result:     "failure",
			Notices:    res.Notices,
			Duplicates: payload,
		})
		return
	}

	orderItems := make([]orders.Item, 0, len(lines))
	productIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		orderItems = append(orderItems, orders.Item{ProductID: l.ProductID, Quantity: l.Quantity})
		productIDs = append(productIDs, l.ProductID)
	}

	o, err := s.Orders.Create(ctx, orders.Order{
		CustomerID: customer.ID,
		Status:     orders.StatusPending,
		Items:      orderItems,
	})
	switch {
	case err == nil:
	case errors.Is(err, orders.ErrBadQuantity), errors.Is(err, orders.ErrNoItems), errors.Is(err, orders.ErrNoCustomer):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	default:
		s.logger().Error("place order", zap.Error(err), zap.Int64("customer_id", customer.ID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	cart.Clear(sc)
	s.Handler.publish(ctx, events.New(events.TypeOrderPlaced, customer.ID, events.OrderPlaced{
		OrderID:           o.ID,
		ProductIDs:        productIDs,
		IgnoredDuplicates: res.Outcome == OutcomeIgnored,
	}))

	s.logger().Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("customer_id", customer.ID),
		zap.Stringer("outcome", res.Outcome),
	)

	kit.WriteJSON(w, http.StatusCreated, successResp{
		Result:   "success",
		OrderID:  o.ID,
		OrderURL: orders.ViewOrderURL(s.BaseURL, o.ID),
	})
}

func (s *Server) duplicates(w http.ResponseWriter, r *http.Request) {
	payload := s.Handler.DialogPayload(r.Context(), session.FromContext(r.Context()))
	if payload == nil {
		payload = []ProductSummary{}
	}
	kit.WriteJSON(w, http.StatusOK, payload)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
