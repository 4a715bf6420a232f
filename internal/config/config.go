package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type SMTP struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Enabled reports whether reports can be mailed.
func (s SMTP) Enabled() bool { return s.Host != "" }

type Config struct {
	APIURL      string
	Store       string
	StorePath   string
	PGDSN       string
	StoreKey    []byte
	Fallback    bool
	RatePerSec  float64
	RateBurst   int
	Timeout     time.Duration
	CountryCode string

	ConsoleAddr string
	ConsoleRPS  float64
	ExportDir   string

	SMTP SMTP

	OTLPEndpoint string
	OTLPInsecure bool
}

// Load reads an optional .env file (files that do not exist are skipped)
// and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		APIURL:       readString("TIMEPAY_API_URL", "https://api.timepay.uz"),
		Store:        strings.ToLower(readString("TIMEPAY_STORE", StoreFile)),
		StorePath:    os.Getenv("TIMEPAY_STORE_PATH"),
		PGDSN:        os.Getenv("TIMEPAY_PG_DSN"),
		Fallback:     readBool("TIMEPAY_FALLBACK", true),
		RatePerSec:   readFloat("TIMEPAY_RATE_PER_SEC", 0),
		RateBurst:    readInt("TIMEPAY_RATE_BURST", 5),
		Timeout:      readDuration("TIMEPAY_TIMEOUT", 30*time.Second),
		CountryCode:  readString("TIMEPAY_COUNTRY_CODE", "998"),
		ConsoleAddr:  readString("CONSOLE_ADDR", ":8090"),
		ConsoleRPS:   readFloat("CONSOLE_RATE_PER_SEC", 20),
		ExportDir:    readString("TIMEPAY_EXPORT_DIR", "."),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SMTP: SMTP{
			Host: os.Getenv("SMTP_HOST"),
			Port: readInt("SMTP_PORT", 587),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: os.Getenv("SMTP_FROM"),
		},
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	switch cfg.Store {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if cfg.PGDSN == "" {
			return Config{}, errors.New("TIMEPAY_PG_DSN is required for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown TIMEPAY_STORE %q", cfg.Store)
	}

	if raw := strings.TrimSpace(os.Getenv("TIMEPAY_STORE_KEY")); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return Config{}, errors.New("TIMEPAY_STORE_KEY must be 64 hex characters")
		}
		cfg.StoreKey = key
	}
	return cfg, nil
}

func readString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

// readDuration accepts Go durations ("15s") or plain seconds.
func readDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
