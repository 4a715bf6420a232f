package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timepay.uz/crm/internal/app"
	"timepay.uz/crm/internal/config"
	"timepay.uz/crm/internal/console"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/session"
	"timepay.uz/crm/internal/stream"
	"timepay.uz/crm/internal/telemetry"
)

var version = "0.1.0"

const serviceName = "timepay-console"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	obs.InitBuildInfo(version, cfg.APIURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, version, cfg.OTLPEndpoint, cfg.OTLPInsecure)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("wire: %v", err)
	}

	// Restore runs in the background; private routes answer 503 until it ends.
	go func() {
		u, err := a.Session.Restore(ctx)
		switch {
		case errors.Is(err, session.ErrNoSession):
			obs.Info("session_absent", nil)
		case err != nil:
			obs.Warn("session_restore_failed", map[string]any{"error": err.Error()})
		default:
			obs.Info("session_restored", map[string]any{"user_id": u.ID, "role": string(u.Role)})
		}
	}()

	srv := console.New(a.Session, version, console.WithRateLimit(cfg.ConsoleRPS, int(cfg.ConsoleRPS*2)))
	stopFeed := srv.StartFeed(ctx, stream.DefaultInterval)
	defer stopFeed()

	var handler http.Handler = srv.Handler()
	if cfg.OTLPEndpoint != "" {
		handler = telemetry.Handler(handler, serviceName)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ConsoleAddr,
		Handler:           handler,
		ReadTimeout:       console.ReadTimeout,
		ReadHeaderTimeout: console.ReadTimeout,
		WriteTimeout:      console.WriteTimeout,
		IdleTimeout:       console.IdleTimeout,
	}

	obs.Info("console_starting", map[string]any{"version": version, "addr": httpSrv.Addr, "backend": cfg.APIURL})

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	obs.Info("console_stopping", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		obs.Warn("otel_shutdown_failed", map[string]any{"error": err.Error()})
	}
	if err := a.Close(); err != nil {
		obs.Warn("store_close_failed", map[string]any{"error": err.Error()})
	}
	obs.Info("console_stopped", nil)
}
