package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/drydock-dev/drydock/internal/api/docs"
	"github.com/drydock-dev/drydock/internal/api/middleware"
	"github.com/drydock-dev/drydock/internal/api/operator"
	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/auth"
	"github.com/drydock-dev/drydock/internal/capability"
	"github.com/drydock-dev/drydock/internal/notify"
	"github.com/drydock-dev/drydock/internal/service"
	"github.com/drydock-dev/drydock/internal/tracing"
)

type RouterDeps struct {
	InsightSvc    *service.InsightService
	ActionSvc     *service.ActionService
	WebhookSvc    *service.WebhookService
	AuditSvc      *service.AuditService
	Capabilities  *capability.Registry
	Tracer        *tracing.Recorder
	Hub           *notify.Hub
	JWTManager    *auth.JWTManager
	AdminUsername string
	AdminPassHash string
	CORSOrigins   string
	HealthCheck   func(r *http.Request) error
	Logger        *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Metrics
	metrics := middleware.NewMetrics()
	metrics.RegisterGauge("drydock_notify_clients", "Connected notification clients.", func() int64 {
		return int64(deps.Hub.ClientCount())
	})

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(metrics.Middleware())

	// CORS
	origins := strings.Split(deps.CORSOrigins, ",")
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(req); err != nil {
				response.Error(w, http.StatusServiceUnavailable, response.KindInternal, "unhealthy")
				return
			}
		}
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Get("/metrics", metrics.Handler())

	// API docs
	r.Mount("/docs", http.StripPrefix("/docs", docs.Handler()))

	authHandler := operator.NewAuthHandler(deps.JWTManager, deps.AdminUsername, deps.AdminPassHash)
	insightHandler := operator.NewInsightHandler(deps.InsightSvc)
	actionHandler := operator.NewActionHandler(deps.ActionSvc)
	webhookHandler := operator.NewWebhookHandler(deps.WebhookSvc)
	auditHandler := operator.NewAuditHandler(deps.AuditSvc)
	scanHandler := operator.NewScanHandler(deps.Capabilities)
	traceHandler := operator.NewTraceHandler(deps.Tracer)
	wsHandler := operator.NewWSHandler(deps.Hub, deps.JWTManager, deps.CORSOrigins, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Rate limit the operator API: 30 req/s with burst of 60
		r.Use(middleware.RateLimit(30, 60))

		// Login (no auth required)
		r.Post("/auth/login", authHandler.Login)

		// Real-time channel; does its own token validation because browser
		// WebSocket clients cannot set headers.
		r.Get("/ws", wsHandler.Subscribe)

		// Authenticated operator endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.OperatorAuth(deps.JWTManager))
			r.Use(middleware.AuditContext())

			// Insights
			r.Get("/insights", insightHandler.List)
			r.Post("/insights", insightHandler.Raise)
			r.Get("/insights/{id}", insightHandler.Get)
			r.Post("/insights/{id}/acknowledge", insightHandler.Acknowledge)

			// Remediation actions
			r.Get("/actions", actionHandler.List)
			r.Post("/actions/suggest", actionHandler.Suggest)
			r.Get("/actions/{id}", actionHandler.Get)
			r.Post("/actions/{id}/approve", actionHandler.Approve)
			r.Post("/actions/{id}/reject", actionHandler.Reject)

			// Webhook subscriptions
			r.Get("/webhooks", webhookHandler.List)
			r.Post("/webhooks", webhookHandler.Create)
			r.Patch("/webhooks/{id}", webhookHandler.Update)
			r.Get("/webhooks/{id}/deliveries", webhookHandler.ListDeliveries)

			// Audit log
			r.Get("/audit-log", auditHandler.List)

			// Security scans
			r.Post("/containers/{id}/scan", scanHandler.Scan)

			// Traces
			r.Get("/traces/{trace_id}", traceHandler.Get)
		})
	})

	return r
}
