package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/FreshOps/MarketBox/config"
	"github.com/FreshOps/MarketBox/internal/services/dispatch"
	"github.com/go-chi/chi/v5"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	dispatcher *dispatch.Dispatcher
	cfg        *config.Config
}

// runWorkerHTTPServer exposes the dispatcher's operational surface:
// health, stats and a manual cycle trigger.
func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			_, _ = w.Write([]byte(`{"error":"dispatcher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.dispatcher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Avoid dumping secrets; show only operational worker settings.
		out := map[string]any{
			"pollIntervalSeconds":       opts.cfg.MarketBox.WorkerPollIntervalSeconds,
			"batchSize":                 opts.cfg.MarketBox.WorkerBatchSize,
			"concurrency":               opts.cfg.MarketBox.WorkerConcurrency,
			"leaseSeconds":              opts.cfg.MarketBox.WorkerLeaseSeconds,
			"rateLimitPerMinute":        opts.cfg.MarketBox.WorkerRateLimitPerMinute,
			"nextCheckMovingMinSeconds": opts.cfg.MarketBox.WorkerNextCheckMovingMinSeconds,
			"nextCheckMovingMaxSeconds": opts.cfg.MarketBox.WorkerNextCheckMovingMaxSeconds,
			"nextCheckIdleSeconds":      opts.cfg.MarketBox.WorkerNextCheckIdleSeconds,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			_, _ = w.Write([]byte(`{"error":"dispatcher not wired"}`))
			return
		}
		opts.dispatcher.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
