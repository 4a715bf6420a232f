// Package app wires configuration into the storage, client, facade and
// session used by both binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"timepay.uz/crm/internal/backend"
	"timepay.uz/crm/internal/config"
	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/mailer"
	"timepay.uz/crm/internal/session"
	"timepay.uz/crm/internal/storage"
	"timepay.uz/crm/internal/telemetry"
	"timepay.uz/crm/internal/tokens"
)

// App holds the wired components. Close releases the store.
type App struct {
	Config  config.Config
	KV      storage.KV
	Tokens  *tokens.Store
	Client  *backend.Client
	CRM     *crm.Service
	Session *session.Manager
	Mailer  *mailer.Mailer

	closers []func() error
}

// OpenKV returns the store selected by cfg.Store.
func OpenKV(ctx context.Context, cfg config.Config) (storage.KV, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemory(), func() error { return nil }, nil
	case config.StorePostgres:
		pg, err := storage.OpenPG(cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := pg.Ensure(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("prepare postgres store: %w", err)
		}
		return pg, pg.Close, nil
	default:
		path := cfg.StorePath
		if path == "" {
			path = storage.DefaultFilePath()
		}
		f, err := storage.NewFile(filepath.Clean(path), storage.WithEncryptionKey(cfg.StoreKey))
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return f, func() error { return nil }, nil
	}
}

// New builds the component graph. Backend calls are traced when tracing is
// enabled.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	kv, closeKV, err := OpenKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := tokens.New(kv)
	opts := []backend.Option{
		backend.WithTokenSource(store),
		backend.WithTimeout(cfg.Timeout),
		backend.WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
	}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, backend.WithTransport(telemetry.Transport))
	}
	client := backend.New(cfg.APIURL, opts...)
	svc := crm.New(client, store,
		crm.WithFallback(cfg.Fallback),
		crm.WithCountryCode(cfg.CountryCode),
	)

	a := &App{
		Config:  cfg,
		KV:      kv,
		Tokens:  store,
		Client:  client,
		CRM:     svc,
		Session: session.New(svc, store, kv),
		closers: []func() error{closeKV},
	}
	if cfg.SMTP.Enabled() {
		a.Mailer = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
