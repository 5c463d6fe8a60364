// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/pilrt/checkin"
	"github.com/danielhkuo/pilrt/cliparse"
	"github.com/danielhkuo/pilrt/db"
	"github.com/danielhkuo/pilrt/display"
	"github.com/danielhkuo/pilrt/eligibility"
	"github.com/danielhkuo/pilrt/feed"
	"github.com/danielhkuo/pilrt/media"
	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/queue"
	"github.com/danielhkuo/pilrt/router"
	"github.com/danielhkuo/pilrt/session"
	"github.com/danielhkuo/pilrt/store"
	"github.com/danielhkuo/pilrt/store/memstore"
	"github.com/danielhkuo/pilrt/store/sqlstore"
	"github.com/danielhkuo/pilrt/tally"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := feed.NewBroker()
	defer broker.Close()

	// Open the store
	var st store.Store
	if cfg.DatabaseType == db.DialectMemory {
		slog.Warn("using in-memory store; nothing survives a restart")
		st = memstore.New(broker)
	} else {
		conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
			slog.Error("schema creation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database schema ready", "type", cfg.DatabaseType)

		st = sqlstore.New(conn, cfg.DatabaseType, broker)
		startPGListener(ctx, cfg, broker)
	}

	if cfg.RedisURL != "" {
		relay, err := feed.NewRedisRelay(cfg.RedisURL, broker)
		if err != nil {
			slog.Error("redis relay unavailable", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		go relay.Run(ctx)
		slog.Info("redis change relay started")
	}

	// Public display
	hub := display.NewHub(display.FromStore(st, nil))
	go hub.Run(ctx)
	unfollow := hub.Follow(st)
	defer unfollow()

	// Election components
	validator := eligibility.NewValidator(st, nil)
	engine := queue.NewEngine(st, queue.Policy{
		BatchSize:       cfg.CallBatchSize,
		ReinsertBatches: cfg.SkipReinsertBatches,
		MaxSkips:        cfg.MaxSkips,
	}, hub, nil)
	desk := checkin.NewDesk(validator, checkin.Options{
		ResultWindow:    cfg.ResultWindow,
		ScanLatchWindow: cfg.ScanLatchWindow,
	})
	registry := session.NewRegistry(ctx, validator, st, openMedia(ctx, cfg), session.Options{
		ResultWindow:    cfg.ResultWindow,
		SuccessWindow:   cfg.SuccessWindow,
		ScanLatchWindow: cfg.ScanLatchWindow,
	})

	// Create router
	mux := router.NewRouter(router.Services{
		Store:     st,
		Queue:     engine,
		Desk:      desk,
		Terminals: registry,
		Tally:     tally.NewService(st),
		Display:   hub,
	}, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "store", cfg.DatabaseType)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}

	// Let pending audit uploads finish.
	registry.Wait()
}

// startPGListener feeds NOTIFY events from other instances into the broker.
// sqlite has no equivalent; a single process owns the file.
func startPGListener(ctx context.Context, cfg cliparse.Config, broker *feed.Broker) {
	if cfg.DatabaseType != db.DialectPostgres {
		return
	}
	listener, err := feed.NewPGListener(cfg.DatabaseURL, broker)
	if err != nil {
		slog.Warn("postgres change listener unavailable", "error", err)
		return
	}
	go func() {
		listener.Run(ctx)
		listener.Close()
	}()
	slog.Info("postgres change listener started", "channel", feed.NotifyChannel)
}

// openMedia returns the audit media store, or nil when audit capture is not
// configured or unreachable. Voting never depends on it.
func openMedia(ctx context.Context, cfg cliparse.Config) session.MediaStore {
	mc := media.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}
	if !mc.Enabled() {
		slog.Info("audit media disabled")
		return nil
	}
	m, err := media.NewMinioStore(ctx, mc)
	if err != nil {
		slog.Warn("audit media unavailable", "error", err)
		return nil
	}
	slog.Info("audit media enabled", "bucket", cfg.MinioBucket)
	return m
}
