package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TIMEPAY_API_URL", "TIMEPAY_STORE", "TIMEPAY_FALLBACK", "TIMEPAY_TIMEOUT", "TIMEPAY_STORE_KEY", "SMTP_HOST", "SMTP_FROM", "SMTP_USER"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://api.timepay.uz" || cfg.Store != StoreFile || !cfg.Fallback {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || cfg.CountryCode != "998" || cfg.ConsoleAddr != ":8090" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SMTP.Enabled() {
		t.Fatal("smtp should be disabled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"TIMEPAY_API_URL=http://localhost:9000",
		"TIMEPAY_FALLBACK=false",
		"TIMEPAY_TIMEOUT=5",
		"SMTP_HOST=smtp.example.uz",
		"SMTP_USER=hisobot@example.uz",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"TIMEPAY_API_URL", "TIMEPAY_FALLBACK", "TIMEPAY_TIMEOUT", "SMTP_HOST", "SMTP_USER", "SMTP_FROM"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9000" || cfg.Fallback || cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.SMTP.Enabled() || cfg.SMTP.From != "hisobot@example.uz" {
		t.Fatalf("unexpected smtp %+v", cfg.SMTP)
	}
}

func TestLoadValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("TIMEPAY_STORE", "postgres")
	t.Setenv("TIMEPAY_PG_DSN", "")
	if _, err := Load(missing); err == nil {
		t.Fatal("expected DSN error")
	}

	t.Setenv("TIMEPAY_STORE", "redis")
	if _, err := Load(missing); err == nil {
		t.Fatal("expected unknown store error")
	}

	t.Setenv("TIMEPAY_STORE", "memory")
	t.Setenv("TIMEPAY_STORE_KEY", "abcd")
	if _, err := Load(missing); err == nil {
		t.Fatal("expected key error")
	}
	t.Setenv("TIMEPAY_STORE_KEY", strings.Repeat("ab", 32))
	cfg, err := Load(missing)
	if err != nil || len(cfg.StoreKey) != 32 {
		t.Fatalf("Load: %v %d", err, len(cfg.StoreKey))
	}
}

func TestReadDuration(t *testing.T) {
	t.Setenv("X_DUR", "1m30s")
	if got := readDuration("X_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("got %v", got)
	}
	t.Setenv("X_DUR", "abc")
	if got := readDuration("X_DUR", time.Second); got != time.Second {
		t.Fatalf("got %v", got)
	}
}
