package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-alert/internal/infrastructure/config"
	"price-alert/internal/infrastructure/db"
	"price-alert/internal/infrastructure/logging"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("CRITICAL: init logger failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded", zap.String("http_addr", cfg.HTTP.Addr), zap.String("quote_provider", cfg.Quote.Provider))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
	pool, err := db.Connect(connectCtx, cfg.DB, logger)
	cancel()
	if err != nil {
		logger.Warn("database connection failed, falling back to in-memory store", zap.Error(err))
	} else if pool == nil {
		logger.Info("no DB_DSN provided; running with in-memory store only")
	} else {
		defer pool.Close()
		logger.Info("database connected successfully")
	}

	a, err := newApp(cfg, pool, logger)
	if err != nil {
		logger.Fatal("init application failed", zap.Error(err))
	}
	if a.worker != nil {
		a.worker.Start(ctx)
		defer a.worker.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
