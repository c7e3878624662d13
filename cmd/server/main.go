package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/robfig/cron/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/audit"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/httpapi"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage/backend"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWith(os.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Warn("Failed to initialize AMQP publisher, continuing without events", "error", err)
		} else {
			publisher = p
			slog.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		slog.Info("AMQP disabled - domain events will not be published")
	}
	defer publisher.Close()

	m := metrics.New()
	l := ledger.New(store,
		ledger.WithPublisher(publisher),
		ledger.WithMetrics(m),
		ledger.WithRemainderPolicy(cfg.RemainderPolicy),
	)

	interceptors := connect.WithInterceptors(
		middleware.RequestIDInterceptor(),
		middleware.LoggingInterceptor(m),
	)
	router := httpapi.New(l, m, cfg.CORSOrigins)
	router.Mount(api.NewGroupServiceHandler(service.NewGroupService(l), interceptors))
	router.Mount(api.NewExpenseServiceHandler(service.NewExpenseService(l), interceptors))

	// h2c serves HTTP/2 without TLS, which gRPC clients of the Connect handlers need.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.New()
	if cfg.AuditSchedule != "" {
		if _, err := audit.Schedule(ctx, scheduler, cfg.AuditSchedule, audit.New(l, m)); err != nil {
			return err
		}
		slog.Info("Ledger audit scheduled", "schedule", cfg.AuditSchedule)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", srv.Addr, "url", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()

		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		<-scheduler.Stop().Done()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
