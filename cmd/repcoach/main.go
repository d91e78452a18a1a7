package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/meltforce/repcoach/internal/config"
	"github.com/meltforce/repcoach/internal/metrics"
	"github.com/meltforce/repcoach/internal/server"
	"github.com/meltforce/repcoach/internal/storage"
	"github.com/meltforce/repcoach/internal/trainer"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("RepCoach starting", "version", Version)

	// Connect database (applies migrations for postgres)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	if !cfg.Tailscale.Enabled {
		id, err := storage.EnsureDevUser(ctx, store)
		if err != nil {
			log.Error("failed to create local user", "error", err)
			os.Exit(1)
		}
		if id != 1 {
			log.Warn("local user is not user 1; dev requests are attributed to user 1", "local_user_id", id)
		}
	}

	// Metrics
	var extra []prometheus.Collector
	if db, ok := store.(*storage.DB); ok {
		extra = append(extra, pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
	}
	mm := metrics.NewManager(metrics.NewRegistry(extra...))

	// Live attempts
	mgr := trainer.NewManager(cfg.Levels, trainer.Config{
		ProcessEveryNthFrame: cfg.Trainer.ProcessEveryNthFrame,
		Params:               cfg.ClassifierParams(),
		Retention:            time.Duration(cfg.Trainer.RetentionMinutes) * time.Minute,
	}, log, trainer.WithStore(store), trainer.WithMetrics(mm))

	srv := server.New(store, mgr, cfg.Auth.APIKey, log)
	srv.SetMetrics(mm)

	// Start server on tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mgr.Run(gctx, 30*time.Second)
		return nil
	})
	g.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}
	log.Info("server stopped", "active_attempts", mgr.Active())
}
