package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write app.env: %v", err)
	}
	return dir
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := writeEnv(t, strings.Join([]string{
		"STORAGE_DRIVER=memory",
		"JWT_SECRET=secret",
		"OFFER_TTL=2h",
		"NOTIFY_DRIVER=kafka",
		"KAFKA_BROKERS=k1:9092, k2:9092",
		"BLOB_DRIVER=memory",
		"MAX_UPLOAD_BYTES=1024",
	}, "\n"))

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OfferTTL != 2*time.Hour {
		t.Errorf("OfferTTL = %v", cfg.OfferTTL)
	}
	if cfg.RequestTTL != 24*time.Hour || cfg.HandlerTimeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if got := cfg.Brokers(); len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("Brokers = %v", got)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := writeEnv(t, "STORAGE_DRIVER=memory\nJWT_SECRET=file-secret\nBLOB_DRIVER=memory\n")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SWEEP_INTERVAL", "0s")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.RequestTTL != 24*time.Hour || cfg.OfferTTL != 24*time.Hour {
		t.Errorf("default TTLs = %v / %v", cfg.RequestTTL, cfg.OfferTTL)
	}
}

func TestDSN(t *testing.T) {
	parts := Config{
		PostgresUser: "rfq",
		PostgresPass: "p@ss",
		PostgresHost: "db",
		PostgresPort: "5433",
		PostgresDB:   "rfq",
	}
	if got, want := parts.DSN(), "postgres://rfq:p%40ss@db:5433/rfq?sslmode=disable"; got != want {
		t.Errorf("DSN from parts = %q, want %q", got, want)
	}

	explicit := parts
	explicit.PostgresConn = "postgres://other@host/db"
	if got := explicit.DSN(); got != explicit.PostgresConn {
		t.Errorf("DSN = %q, want POSTGRES_CONN", got)
	}

	incomplete := Config{PostgresHost: "db", PostgresPort: "5432"}
	if got := incomplete.DSN(); got != "" {
		t.Errorf("DSN from incomplete parts = %q", got)
	}

	withParts := Config{
		StorageDriver:  "postgres",
		JWTSecret:      "s",
		HandlerTimeout: time.Second,
		RequestTTL:     time.Hour,
		OfferTTL:       time.Hour,
		NotifyDriver:   "log",
		BlobDriver:     "fs",
		PostgresUser:   "rfq",
		PostgresHost:   "db",
		PostgresDB:     "rfq",
	}
	if err := withParts.Validate(); err != nil {
		t.Errorf("postgres from parts: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageDriver:  "memory",
		JWTSecret:      "s",
		HandlerTimeout: time.Second,
		RequestTTL:     time.Hour,
		OfferTTL:       time.Hour,
		NotifyDriver:   "log",
		BlobDriver:     "fs",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	cases := map[string]func(c *Config){
		"missing secret":   func(c *Config) { c.JWTSecret = "" },
		"postgres no conn": func(c *Config) { c.StorageDriver = "postgres" },
		"unknown storage":  func(c *Config) { c.StorageDriver = "sqlite" },
		"kafka no brokers": func(c *Config) { c.NotifyDriver = "kafka" },
		"s3 no bucket":     func(c *Config) { c.BlobDriver = "s3" },
		"zero ttl":         func(c *Config) { c.OfferTTL = 0 },
		"negative sweep":   func(c *Config) { c.SweepInterval = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
