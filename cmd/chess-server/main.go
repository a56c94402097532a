package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/robochess/internal/chessbuilder"
	"github.com/park285/robochess/internal/config"
	"github.com/park285/robochess/internal/obslog"
	"github.com/park285/robochess/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := obslog.New(obslog.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		ToConsole: cfg.Log.ToConsole,
		ToFile:    cfg.Log.ToFile,
		File:      cfg.Log.File,
		Caller:    cfg.Log.Caller,
	})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer closeLog()
	obslog.Set(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Fatal("telemetry_init_error", zap.Error(err))
	}

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}
	if err := deps.Start(ctx); err != nil {
		_ = deps.Close(context.Background())
		logger.Fatal("start_error", zap.Error(err))
	}

	serveErr := make(chan error, 2)
	go func() { serveErr <- deps.HTTP.ListenAndServe(cfg.HTTPAddr) }()
	if deps.Feed != nil {
		go func() { serveErr <- deps.Feed.ListenAndServe(cfg.FeedAddr) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("serve_error", zap.Error(err))
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Close(closeCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("shutdown_error", zap.Error(err))
	}
	if err := shutdownTracing(closeCtx); err != nil {
		logger.Warn("telemetry_shutdown_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
