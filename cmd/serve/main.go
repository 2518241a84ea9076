package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telcochurn/pkg/artifact"
	"telcochurn/pkg/audit"
	"telcochurn/pkg/config"
	"telcochurn/pkg/data"
	"telcochurn/pkg/logger"
	"telcochurn/pkg/scoring"
	"telcochurn/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	ctx := context.Background()

	// --- Dataset ---
	src, err := data.NewSource(cfg.Data.Path, log)
	if err != nil {
		log.Fatal("dataset load failed", zap.Error(err))
	}

	// --- Model ---
	store, err := cfg.Store.Open(ctx)
	if err != nil {
		log.Fatal("artifact store init failed", zap.Error(err))
	}
	defer func() {
		if err := artifact.Close(store); err != nil {
			log.Warn("artifact store close failed", zap.Error(err))
		}
	}()
	if err := artifact.Ping(ctx, store); err != nil {
		log.Warn("artifact store unreachable", zap.String("kind", cfg.Store.Kind), zap.Error(err))
	}
	svc := scoring.NewService(store, cfg.Model.Name, log)
	if err := svc.Load(ctx); err != nil {
		// scoring answers 503 until an artifact is published and reloaded
		log.Warn("starting without a model", zap.Error(err))
	}

	// --- Audit ---
	var aud server.Auditor
	if cfg.Audit.DatabaseURL != "" {
		rec, err := audit.Open(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			log.Fatal("audit database failed", zap.Error(err))
		}
		defer rec.Close()
		if err := rec.EnsureSchema(ctx); err != nil {
			log.Fatal("audit schema failed", zap.Error(err))
		}
		aud = rec
		log.Info("audit log enabled")
	}

	h := server.NewHandler(src, svc, aud, cfg.Server.SimilarK, log)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
