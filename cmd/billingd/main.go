package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hennyhux/changsheng/internal/application/usecase"
	"github.com/hennyhux/changsheng/internal/infrastructure/clock"
	"github.com/hennyhux/changsheng/internal/infrastructure/config"
	"github.com/hennyhux/changsheng/internal/infrastructure/kafka"
	pgRepo "github.com/hennyhux/changsheng/internal/infrastructure/postgres"
	grpcPresentation "github.com/hennyhux/changsheng/internal/presentation/grpc"
	"github.com/hennyhux/changsheng/internal/presentation/rest"
	"github.com/hennyhux/changsheng/pkg/auth"
	pkgkafka "github.com/hennyhux/changsheng/pkg/kafka"
	"github.com/hennyhux/changsheng/pkg/observability"
	pkgpostgres "github.com/hennyhux/changsheng/pkg/postgres"
	"github.com/hennyhux/changsheng/pkg/tlsutil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("billingd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  cfg.Telemetry.LogFormat,
		Service: cfg.ServiceName,
	})
	logger.Info("starting billingd",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"gap_policy", cfg.Billing.GapPolicy,
		"due_anchor", cfg.Billing.DueAnchor,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	switch {
	case errors.Is(err, observability.ErrTracingDisabled):
		logger.Info("tracing disabled")
	case err != nil:
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	default:
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	meterProvider, registry, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	ledgerMetrics := observability.NewLedgerMetrics(registry)

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()
	pool, err := pkgpostgres.NewPool(dbCtx, cfg.Postgres())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := pgRepo.Migrate(cfg.Postgres().DSN()); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}

	generator, allocator, evaluator, err := cfg.Billing.Services()
	if err != nil {
		return err
	}
	store := pgRepo.NewLedgerStore(pool)
	sysClock := clock.System{}
	useCases := usecase.NewSet(usecase.Dependencies{
		Store:     store,
		Generator: generator,
		Allocator: allocator,
		Evaluator: evaluator,
		Clock:     sysClock,
		Metrics:   ledgerMetrics,
		Logger:    logger,
	})

	var jwtSvc *auth.JWTService
	if !cfg.Auth.Disabled {
		jwtSvc, err = auth.NewJWTService(auth.JWTConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer})
		if err != nil {
			return fmt.Errorf("init JWT service: %w", err)
		}
	}

	grpcServer, err := grpcPresentation.NewServer(grpcPresentation.NewBillingHandler(useCases), logger, grpcPresentation.ServerOptions{
		JWT: jwtSvc,
		TLS: tlsutil.Files{
			Cert:     cfg.TLS.CertFile,
			Key:      cfg.TLS.KeyFile,
			ClientCA: cfg.TLS.CAFile,
		},
		RateLimit: grpcPresentation.RateLimit{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		Reflection: true,
	})
	if err != nil {
		return fmt.Errorf("init gRPC server: %w", err)
	}

	mux := http.NewServeMux()
	rest.NewHealthHandler(cfg.ServiceName, store, metricsHandler, logger).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		if err := startKafka(gctx, g, cfg, useCases, pgRepo.NewOutboxRepository(pool), sysClock, logger); err != nil {
			return err
		}
	} else {
		logger.Info("kafka disabled, outbox rows accumulate until a relay runs")
	}

	g.Go(func() error {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		grpcServer.GracefulStop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("billingd stopped")
	return err
}

func startKafka(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Config,
	useCases *usecase.Set,
	outbox *pgRepo.OutboxRepository,
	clk clock.System,
	logger *slog.Logger,
) error {
	producer, err := pkgkafka.NewProducer(cfg.KafkaClient())
	if err != nil {
		return fmt.Errorf("init kafka producer: %w", err)
	}

	relay := kafka.NewOutboxRelay(outbox, kafka.NewPublisher(producer, logger), clk, kafka.RelayConfig{
		Topic:     kafka.TopicLedgerEvents,
		Interval:  cfg.Kafka.RelayInterval,
		BatchSize: cfg.Kafka.RelayBatchSize,
	}, logger)
	g.Go(func() error {
		defer producer.Close()
		return relay.Run(ctx)
	})

	if !cfg.Kafka.CommandsEnabled {
		return nil
	}
	consumer, err := kafka.NewCommandConsumer(cfg.KafkaClient(), kafka.NewCommandHandler(useCases.GenerateAllInvoices, logger), logger)
	if err != nil {
		return fmt.Errorf("init command consumer: %w", err)
	}
	g.Go(func() error {
		defer consumer.Close()
		return consumer.Start(ctx)
	})
	return nil
}
