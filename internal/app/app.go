// Package app wires the storefront's HTTP surface: shopper auth, catalog,
// cart, the duplicate-guarded checkout and the customer's order pages.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"OrderNotify/internal/auth"
	"OrderNotify/internal/cart"
	"OrderNotify/internal/catalog"
	"OrderNotify/internal/checkout"
	"OrderNotify/internal/events"
	"OrderNotify/internal/orders"
	"OrderNotify/internal/session"
	"OrderNotify/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	CORSAllowOrigins []string
	SecureCookies    bool
}

type Deps struct {
	Auth    auth.Store
	JWT     *auth.TokenMaker
	Orders  orders.Store
	Catalog catalog.Store
	// CatalogURL, when set, is fronted at /products instead of Catalog's
	// own routes. Catalog is then expected to be a client for it.
	CatalogURL string

	Checker  checkout.DuplicateChecker
	Events   events.Publisher
	Sessions session.Store

	SessionTTL time.Duration
	// BaseURL is the public origin used in order links.
	BaseURL string
}

var ErrMissingDeps = errors.New("app: auth, orders, catalog, checker and sessions are required")

const readyTimeout = 2 * time.Second

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if deps.Auth == nil || deps.JWT == nil || deps.Orders == nil || deps.Catalog == nil ||
		deps.Checker == nil || deps.Sessions == nil {
		return nil, ErrMissingDeps
	}
	if httpDeps.Log == nil {
		httpDeps.Log = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}

	productsHandler, err := buildCatalogHandler(deps, httpDeps.Log)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, httpDeps.Log))
	r.Handle(checkout.AssetsPrefix+"*", http.StripPrefix(checkout.AssetsPrefix, checkout.AssetsHandler()))

	sessions := &session.Manager{
		Store:  deps.Sessions,
		TTL:    deps.SessionTTL,
		Secure: httpDeps.SecureCookies,
	}

	handler := &checkout.Handler{
		Checker: deps.Checker,
		Catalog: deps.Catalog,
		Events:  deps.Events,
		Log:     httpDeps.Log,
	}

	r.Group(func(sr chi.Router) {
		sr.Use(sessions.Middleware)
		sr.Use(auth.OptionalJWT(deps.JWT))
		sr.Use(bindSessionOwner)

		sr.Mount("/auth", (&auth.Server{
			Log:          httpDeps.Log,
			Store:        deps.Auth,
			JWT:          deps.JWT,
			Sessions:     sessions,
			SecureCookie: httpDeps.SecureCookies,
		}).Routes())

		sr.Mount("/products", productsHandler)

		sr.Mount("/cart", (&cart.Server{Catalog: deps.Catalog, Log: httpDeps.Log}).Routes())

		sr.Mount("/checkout", (&checkout.Server{
			Handler: handler,
			Orders:  deps.Orders,
			BaseURL: deps.BaseURL,
			Log:     httpDeps.Log,
		}).Routes())

		sr.Mount("/my-account", (&orders.Server{
			Store:   deps.Orders,
			Log:     httpDeps.Log,
			BaseURL: deps.BaseURL,
		}).Routes())
	})

	return r, nil
}

// bindSessionOwner drops session state left behind by another customer, so
// a cart or duplicate notice never follows the browser to a new shopper.
func bindSessionOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.CustomerFromContext(r.Context())
		session.BindOwner(session.FromContext(r.Context()), p.ID)
		next.ServeHTTP(w, r)
	})
}

func buildCatalogHandler(deps Deps, log *zap.Logger) (http.Handler, error) {
	if deps.CatalogURL == "" {
		return (&catalog.Server{Store: deps.Catalog, Log: log}).Routes(), nil
	}
	return NewReverseProxy(deps.CatalogURL, log)
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if len(deps.CORSAllowOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSAllowOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.RoutePattern))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	checks := []struct {
		name string
		p    pinger
	}{
		{"orders", deps.Orders},
		{"auth", deps.Auth},
		{"catalog", deps.Catalog},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, c := range checks {
			if err := c.p.Ping(ctx); err != nil {
				log.Warn("readyz failed: "+c.name, zap.Error(err))
				kit.WriteError(w, r, http.StatusServiceUnavailable, c.name+" not ready", nil)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}
