package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"macwatch/internal/handler"
	"macwatch/internal/hub"
	"macwatch/internal/service"
	"macwatch/internal/watcher"
)

func runServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "HTTP listen address (overrides server.addr)")
	watch := fs.Bool("watch", false, "re-ingest registry feeds when their files change (overrides registry.watch)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *addr != "" {
		a.cfg.Server.Addr = *addr
	}
	if *watch {
		a.cfg.Registry.Watch = true
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventBus := service.NewEventBus()

	resolver, err := a.resolver()
	if err != nil {
		return err
	}
	opts := []service.InventoryOption{service.WithEventBus(eventBus)}
	scanner, err := a.scanner()
	if err != nil {
		return err
	}
	if scanner != nil {
		opts = append(opts, service.WithScanner(scanner))
	} else {
		slog.Warn("no scan targets configured, POST /api/scan is disabled")
	}
	inventory, err := a.inventory(true, opts...)
	if err != nil {
		return err
	}
	devices, err := a.deviceStore()
	if err != nil {
		return err
	}
	feeds, err := a.registrySync(false, eventBus)
	if err != nil {
		return err
	}

	// background goroutines only stop once ctx is cancelled
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	// SSE hub, fed from the event bus
	sseHub := hub.New()
	wg.Add(2)
	go func() { defer wg.Done(); sseHub.Run(ctx) }()
	go func() { defer wg.Done(); sseHub.Forward(ctx, eventBus) }()

	if a.cfg.Registry.Watch {
		paths := feeds.Paths()
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := watcher.WatchMultiple(ctx, paths, func(path string) {
				if _, err := feeds.SyncFile(ctx, path); err != nil {
					slog.Error("registry re-ingest failed", "path", path, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("registry watcher stopped", "error", err)
			}
		}()
	}

	api := handler.NewAPIHandler(inventory, resolver, service.NewTimeline(devices), feeds)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      handler.Chain(mux, handler.Recover, handler.Logger, handler.Metrics),
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  a.cfg.Server.IdleTimeout.Duration(),
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
