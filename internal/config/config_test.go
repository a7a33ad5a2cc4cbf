package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "MIGRATE_ON_START",
		"CATALOG_URL", "STORE_BASE_URL", "JWT_SECRET", "DUPLICATE_LOOKBACK_MONTHS",
		"DUPLICATE_OPEN_STATUSES", "SESSION_TTL", "SESSION_COOKIE_SECURE",
		"EVENTS_BACKEND", "NATS_URL", "AMQP_URL", "CORS_ALLOW_ORIGINS", "METRICS_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c := Load()
	if c.Port != "8080" {
		t.Fatalf("Port=%q", c.Port)
	}
	if c.LookbackMonths != 3 {
		t.Fatalf("LookbackMonths=%d", c.LookbackMonths)
	}
	if want := []string{"pending", "on-hold", "processing"}; !reflect.DeepEqual(c.OpenStatuses, want) {
		t.Fatalf("OpenStatuses=%v", c.OpenStatuses)
	}
	if c.SessionTTL != 48*time.Hour {
		t.Fatalf("SessionTTL=%s", c.SessionTTL)
	}
	if c.EventsBackend != "none" {
		t.Fatalf("EventsBackend=%q", c.EventsBackend)
	}
	if c.MigrateOnStart {
		t.Fatalf("MigrateOnStart should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DUPLICATE_LOOKBACK_MONTHS", "6")
	t.Setenv("DUPLICATE_OPEN_STATUSES", " pending , processing ,")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("EVENTS_BACKEND", "NATS")
	t.Setenv("STORE_BASE_URL", "https://shop.example.com/")
	t.Setenv("MIGRATE_ON_START", "true")

	c := Load()
	if c.LookbackMonths != 6 {
		t.Fatalf("LookbackMonths=%d", c.LookbackMonths)
	}
	if want := []string{"pending", "processing"}; !reflect.DeepEqual(c.OpenStatuses, want) {
		t.Fatalf("OpenStatuses=%v", c.OpenStatuses)
	}
	if c.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL=%s", c.SessionTTL)
	}
	if c.EventsBackend != "nats" {
		t.Fatalf("EventsBackend=%q", c.EventsBackend)
	}
	if c.StoreBaseURL != "https://shop.example.com" {
		t.Fatalf("StoreBaseURL=%q", c.StoreBaseURL)
	}
	if !c.MigrateOnStart {
		t.Fatalf("MigrateOnStart not parsed")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := Load()
	base.JWTSecret = strings.Repeat("k", 32)

	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	weak := base
	weak.JWTSecret = "short"
	if err := weak.Validate(); !errors.Is(err, ErrWeakJWTSecret) {
		t.Fatalf("weak secret err=%v", err)
	}

	weak.Env = "dev"
	if err := weak.Validate(); err != nil {
		t.Fatalf("dev mode should accept short secret: %v", err)
	}

	bad := base
	bad.EventsBackend = "kafka"
	if err := bad.Validate(); !errors.Is(err, ErrEventsBackend) {
		t.Fatalf("events backend err=%v", err)
	}

	bad = base
	bad.LookbackMonths = 0
	if err := bad.Validate(); !errors.Is(err, ErrLookbackMonths) {
		t.Fatalf("lookback err=%v", err)
	}

	bad = base
	bad.StoreBaseURL = "shop.example.com"
	if err := bad.Validate(); !errors.Is(err, ErrStoreBaseURLBad) {
		t.Fatalf("base url err=%v", err)
	}
}
