package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dockerclient "github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drydock-dev/drydock/internal/api"
	"github.com/drydock-dev/drydock/internal/auth"
	"github.com/drydock-dev/drydock/internal/capability"
	"github.com/drydock-dev/drydock/internal/config"
	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/events"
	"github.com/drydock-dev/drydock/internal/monitor"
	"github.com/drydock-dev/drydock/internal/notify"
	"github.com/drydock-dev/drydock/internal/pipeline"
	"github.com/drydock-dev/drydock/internal/remediation"
	"github.com/drydock-dev/drydock/internal/repository/postgres"
	"github.com/drydock-dev/drydock/internal/security"
	"github.com/drydock-dev/drydock/internal/service"
	"github.com/drydock-dev/drydock/internal/tracing"
	"github.com/drydock-dev/drydock/internal/webhook"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info("starting drydock",
		"listen", cfg.ListenAddr(),
		"db_host", cfg.DB.Host,
		"remediation_driver", cfg.Remediation.Driver,
	)

	// Run migrations
	log.Info("running database migrations")
	if err := postgres.RunMigrations(cfg.DB.DSN()); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations completed")

	// Database connection pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connected")

	// Repositories
	insightRepo := postgres.NewInsightRepo(pool)
	actionRepo := postgres.NewActionRepo(pool)
	auditRepo := postgres.NewAuditRepo(pool)
	webhookRepo := postgres.NewWebhookRepo(pool)
	spanRepo := postgres.NewSpanRepo(pool)

	// Event bus and notification hub
	bus := events.NewBus(log)
	hub := notify.NewHub(log)
	go hub.Run(ctx)

	// Tracing
	tracer := tracing.NewRecorder(spanRepo, "drydock", log)

	// Remediation executor; stand-alone configurations run without a
	// container runtime and simulate executions instead.
	var (
		executor  remediation.Executor
		dockerCli *dockerclient.Client
	)
	switch cfg.Remediation.Driver {
	case "docker":
		dockerCli, err = dockerclient.NewClientWithOpts(
			dockerclient.FromEnv,
			dockerclient.WithAPIVersionNegotiation(),
		)
		if err != nil {
			return fmt.Errorf("create docker client: %w", err)
		}
		dockerExec := remediation.NewDockerExecutor(dockerCli, log)
		if err := dockerExec.Ping(ctx); err != nil {
			return fmt.Errorf("docker daemon unreachable: %w", err)
		}
		executor = dockerExec
	case "noop":
		executor = remediation.NewNoopExecutor()
	default:
		return fmt.Errorf("unknown remediation driver %q", cfg.Remediation.Driver)
	}

	// Services
	auditSvc := service.NewAuditService(auditRepo, log)
	insightSvc := service.NewInsightService(insightRepo, bus, log)
	actionSvc := service.NewActionService(
		actionRepo, insightRepo, executor, auditSvc, bus, tracer,
		cfg.Remediation.Timeout, log,
	)
	webhookSvc := service.NewWebhookService(webhookRepo, auditSvc, log)
	retentionSvc := service.NewRetentionService(
		webhookRepo, spanRepo,
		cfg.Retention.DeliveryMaxAge, cfg.Retention.SpanMaxAge, log,
	)

	// Webhook delivery engine
	dispatcher := webhook.NewDispatcher(webhookRepo, webhook.DispatcherConfig{
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		BackoffBase:    cfg.Webhook.BackoffBase,
		BackoffCap:     cfg.Webhook.BackoffCap,
		RequestTimeout: cfg.Webhook.RequestTimeout,
	}, log)
	go dispatcher.StartReconciler(ctx, cfg.Webhook.ReconcileInterval)
	go retentionSvc.StartScheduler(ctx, cfg.Retention.Interval)

	// Cross-domain capabilities, resolved here at the composition root so
	// the domains never import each other.
	capabilities := capability.NewRegistry()
	capabilities.RegisterNotifier(func(_ context.Context, insight *domain.Insight) {
		hub.Publish(events.InsightCreated, insight)
	})
	capabilities.RegisterActionSuggester(actionSvc.Suggest)

	if dockerExec, ok := executor.(*remediation.DockerExecutor); ok {
		scanner := security.NewGrypeScanner(cfg.Scanner.Binary, cfg.Scanner.Timeout, log)
		scanSvc := service.NewScanService(scanner, dockerExec, insightSvc, auditSvc, bus, log)
		capabilities.RegisterSecurityScanner(func(ctx context.Context, containerID string) ([]domain.Finding, error) {
			report, err := scanSvc.ScanContainer(ctx, containerID)
			if err != nil {
				return nil, err
			}
			return report.Findings, nil
		})
	} else {
		log.Warn("no container runtime configured, security scanning disabled")
	}

	pipeline.Wire(bus, capabilities, hub, dispatcher, log)

	// Container monitor
	if cfg.Monitor.Enabled && dockerCli != nil {
		watcher := monitor.NewWatcher(dockerCli, insightSvc, monitor.Config{
			Interval:        cfg.Monitor.Interval,
			CPUThreshold:    cfg.Monitor.CPUThreshold,
			MemoryThreshold: cfg.Monitor.MemoryThreshold,
		}, log)
		go watcher.Start(ctx)
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	// Router
	router := api.NewRouter(api.RouterDeps{
		InsightSvc:    insightSvc,
		ActionSvc:     actionSvc,
		WebhookSvc:    webhookSvc,
		AuditSvc:      auditSvc,
		Capabilities:  capabilities,
		Tracer:        tracer,
		Hub:           hub,
		JWTManager:    jwtMgr,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassHash: cfg.Auth.AdminPasswordHash,
		CORSOrigins:   cfg.CORS.AllowedOrigins,
		HealthCheck: func(r *http.Request) error {
			return pool.Ping(r.Context())
		},
		Logger: log,
	})

	// HTTP Server
	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	cancel() // stop background workers

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
