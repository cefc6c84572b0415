// Package http provides the API server, the metrics server and the router
// middleware shared by both.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authHTTP "github.com/allisson/token-rest/internal/auth/http"
	authService "github.com/allisson/token-rest/internal/auth/service"
	authUseCase "github.com/allisson/token-rest/internal/auth/usecase"
	"github.com/allisson/token-rest/internal/config"
	"github.com/allisson/token-rest/internal/metrics"
	vaultHTTP "github.com/allisson/token-rest/internal/vault/http"
)

const readinessTimeout = 2 * time.Second

// Server is the API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// Handlers groups everything SetupRouter mounts.
type Handlers struct {
	TokenUseCase    authUseCase.TokenUseCase
	TokenService    authService.TokenService
	AuditLogUseCase authUseCase.AuditLogUseCase
	IssueToken      *authHTTP.TokenHandler
	AuditLogs       *authHTTP.AuditLogHandler
	Vaults          *vaultHTTP.VaultHandler
	Tokens          *vaultHTTP.TokenHandler
}

// NewServer creates a Server. db backs the readiness check and may be nil in tests.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter builds the API routes. ctx bounds the rate limiter janitors.
//
// Authenticated routes run, in order: authentication, the per-client rate
// limit, audit, then the route capability check.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	h Handlers,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	tokenRoute := []gin.HandlerFunc{}
	if cfg.RateLimitTokenEnabled {
		tokenRoute = append(tokenRoute, authHTTP.TokenRateLimitMiddleware(
			ctx, cfg.RateLimitTokenRequestsPerSec, cfg.RateLimitTokenBurst, s.logger))
	}
	tokenRoute = append(tokenRoute, h.IssueToken.IssueTokenHandler)
	v1.POST("/token", tokenRoute...)

	authed := v1.Group("")
	authed.Use(authHTTP.AuthenticationMiddleware(h.TokenUseCase, h.TokenService, s.logger))
	if cfg.RateLimitEnabled {
		authed.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	authed.Use(authHTTP.AuditMiddleware(h.AuditLogUseCase, s.logger))

	can := func(capability authDomain.Capability) gin.HandlerFunc {
		return authHTTP.AuthorizationMiddleware(capability, s.logger)
	}

	vaults := authed.Group("/vaults")
	{
		vaults.POST("", can(authDomain.WriteCapability), h.Vaults.CreateHandler)
		vaults.GET("", can(authDomain.ReadCapability), h.Vaults.ListHandler)
		vaults.GET("/:name", can(authDomain.ReadCapability), h.Vaults.StatusHandler)
		vaults.POST("/:name/rotate", can(authDomain.RotateCapability), h.Vaults.RotateHandler)

		vaults.POST("/:name/tokens", can(authDomain.TokenizeCapability), h.Tokens.TokenizeHandler)
		vaults.POST("/:name/tokens/query", can(authDomain.ReadCapability), h.Tokens.QueryHandler)
		vaults.GET("/:name/tokens/:token", can(authDomain.DetokenizeCapability), h.Tokens.DetokenizeHandler)
		vaults.DELETE("/:name/tokens/:token", can(authDomain.DeleteCapability), h.Tokens.DeleteHandler)
	}

	authed.GET("/audit-logs", can(authDomain.ReadCapability), h.AuditLogs.ListHandler)

	s.router = router
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	dbStatus := "ok"
	if s.db == nil {
		dbStatus = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			dbStatus = "error"
		}
	}

	status, code := "ready", http.StatusOK
	if dbStatus != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"components": gin.H{"database": dbStatus},
	})
}
