package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"OrderNotify/internal/app"
	"OrderNotify/internal/auth"
	"OrderNotify/internal/catalog"
	"OrderNotify/internal/config"
	"OrderNotify/internal/db"
	"OrderNotify/internal/duplicate"
	"OrderNotify/internal/events"
	"OrderNotify/internal/orders"
	"OrderNotify/internal/session"
	"OrderNotify/pkg/kit"
)

const startupTimeout = 15 * time.Second

type stores struct {
	auth    auth.Store
	orders  orders.Store
	catalog catalog.Store
	pool    *pgxpool.Pool
}

func main() {
	service := "checkout"
	cfg := config.Load()

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if cfg.JWTSecret == "" && cfg.Dev() {
		cfg.JWTSecret = uuid.NewString() + uuid.NewString()
		log.Warn("JWT_SECRET not set, using an ephemeral dev secret")
	}

	openStatuses, err := orders.ParseStatuses(cfg.OpenStatuses)
	if err != nil {
		log.Fatal("invalid open statuses", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	st, err := openStores(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("open stores failed", zap.Error(err))
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatal("events backend unavailable", zap.Error(err), zap.String("backend", cfg.EventsBackend))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checker := duplicate.NewChecker(st.orders, duplicate.Config{
		BaseURL:        cfg.StoreBaseURL,
		OpenStatuses:   openStatuses,
		LookbackMonths: cfg.LookbackMonths,
		Log:            log.Named("duplicate"),
		Metrics:        duplicate.NewMetrics(reg),
	})

	sessions := session.NewTTLStore(cfg.SessionTTL)
	sessions.Start()

	h, err := app.NewHandler(app.Deps{
		Auth:       st.auth,
		JWT:        auth.NewTokenMaker(cfg.JWTSecret),
		Orders:     st.orders,
		Catalog:    st.catalog,
		CatalogURL: cfg.CatalogURL,
		Checker:    checker,
		Events:     publisher,
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL,
		BaseURL:    cfg.StoreBaseURL,
	}, app.HTTPDeps{
		Log:              log,
		Service:          service,
		Registry:         reg,
		MetricsEnabled:   cfg.MetricsToken != "",
		MetricsToken:     cfg.MetricsToken,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		SecureCookies:    cfg.SessionCookieSecure,
	})
	if err != nil {
		log.Fatal("init handler failed", zap.Error(err))
	}

	log.Info("checkout configured",
		zap.String("env", cfg.Env),
		zap.Bool("database", st.pool != nil),
		zap.Bool("remote_catalog", cfg.CatalogURL != ""),
		zap.String("events", cfg.EventsBackend),
		zap.Int("lookback_months", cfg.LookbackMonths),
	)

	err = kit.RunHTTPServer(":"+cfg.Port, h, log, kit.ServerOptions{
		OnShutdown: []func(){
			sessions.Stop,
			func() {
				if err := publisher.Close(); err != nil {
					log.Warn("close events publisher", zap.Error(err))
				}
			},
			func() {
				if st.pool != nil {
					st.pool.Close()
				}
			},
		},
	})
	if err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	var st stores

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		st.auth = auth.NewMemStore()
		st.orders = orders.NewMemStore()
		st.catalog = catalog.NewMemStore(catalog.DemoProducts()...)
	} else {
		if cfg.MigrateOnStart {
			if err := db.RunMigrations(cfg.DatabaseURL, log); err != nil {
				return stores{}, err
			}
		}

		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		st.pool = pool
		st.auth = auth.NewPostgresStore(pool)
		st.orders = orders.NewPostgresStore(pool)
		st.catalog = catalog.NewPostgresStore(pool)
	}

	if cfg.CatalogURL != "" {
		st.catalog = catalog.NewClient(cfg.CatalogURL)
	}
	return st, nil
}

func newPublisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "nats":
		nc, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		return events.NewNATSPublisher(nc), nil
	case "amqp":
		p, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return events.Nop{}, nil
	}
}
