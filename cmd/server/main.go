package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shinmj/reservecheck/internal/api"
	"github.com/shinmj/reservecheck/internal/catalog"
	"github.com/shinmj/reservecheck/internal/events"
	"github.com/shinmj/reservecheck/internal/infrastructure/config"
	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/repository"
	"github.com/shinmj/reservecheck/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(&cfg.Observability)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitializeTracing(ctx, &cfg.Observability, cfg.App.Name)
	if err != nil {
		logger.Error("failed to initialize tracing", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.ShutdownTracing(shutdownCtx, tp)
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.File), 0o755); err != nil {
		logger.Error("failed to create data directory", err)
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteRepository(cfg.Database.File, cfg.Database.MaxConnection)
	if err != nil {
		logger.Error("failed to open reservation database", err)
		os.Exit(1)
	}
	defer repo.Close()

	transitions, err := observability.NewTransitionLog(cfg.Database.File, 32)
	if err != nil {
		logger.Error("failed to open transition log", err)
		os.Exit(1)
	}
	defer transitions.Close()

	catalogClient := catalog.NewHTTPClient(&cfg.Catalog, logger, metrics)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewAMQPPublisher(cfg.Events.AMQPURL)
	}

	svc := service.NewReservationService(repo, catalogClient, publisher, transitions, logger, metrics)

	e := echo.New()
	e.HideBanner = true
	api.RegisterRoutes(e, api.NewReservationHandler(svc), cfg.Auth.JWTSecret)

	if cfg.Observability.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
			logger.Info("metrics listening on " + addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", err)
			}
		}()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Info("listening on " + addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.Timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", err)
	}
	logger.Info("server stopped")
}
