package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitflow/internal/handler"
	"habitflow/pkg/rbac"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Routines    *handler.RoutineHandler
	Completions *handler.CompletionHandler
	Analytics   *handler.AnalyticsHandler
}

type Options struct {
	JWTSecret string
	// RateLimitRPS and RateLimitBurst throttle register and login per IP.
	RateLimitRPS   float64
	RateLimitBurst int
	// Ready is probed by /readyz, typically a DB ping. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		TraceMiddleware(),
		MetricsMiddleware(),
		LoggingMiddleware(opts.Logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := opts.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Public
	public := api.Group("/auth")
	public.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
	{
		public.POST("/register", h.Auth.Register)
		public.POST("/login", h.Auth.Login)
	}

	// Protected
	auth := api.Group("")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		auth.GET("/me", h.Auth.Me)

		auth.GET("/routines", RequirePermission(rbac.PermissionReadRoutine), h.Routines.List)
		auth.POST("/routines", RequirePermission(rbac.PermissionWriteRoutine), h.Routines.Create)
		auth.PUT("/routines/:id", RequirePermission(rbac.PermissionWriteRoutine), h.Routines.Update)
		auth.POST("/routines/:id/required", RequirePermission(rbac.PermissionWriteRoutine), h.Routines.ToggleRequired)
		auth.DELETE("/routines/:id", RequirePermission(rbac.PermissionWriteRoutine), h.Routines.Delete)
		auth.POST("/reset", RequirePermission(rbac.PermissionResetRoutines), h.Routines.Reset)

		auth.GET("/completions", RequirePermission(rbac.PermissionReadCompletion), h.Completions.List)
		auth.POST("/completions/toggle", RequirePermission(rbac.PermissionToggleCompletion), h.Completions.Toggle)
		auth.DELETE("/completions", RequirePermission(rbac.PermissionClearHistory), h.Completions.Clear)

		auth.GET("/analytics", RequirePermission(rbac.PermissionReadAnalytics), h.Analytics.Report)
		auth.GET("/analytics/streaks", RequirePermission(rbac.PermissionReadAnalytics), h.Analytics.Streaks)
		auth.GET("/analytics/insights", RequirePermission(rbac.PermissionReadAnalytics), h.Analytics.Insights)
	}

	return &Router{Engine: r}
}
