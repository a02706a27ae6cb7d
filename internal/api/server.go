// Package api exposes the settlement engine over HTTP. Queries are public;
// every mutating route requires a bearer token, and the engine enforces
// per-operation authority on top of that.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/siglab/settlement/config"
	"github.com/siglab/settlement/internal/engine"
	"github.com/siglab/settlement/internal/types"
)

// Server is the HTTP front of the engine.
type Server struct {
	cfg     config.APIConfig
	engine  *engine.Engine
	log     zerolog.Logger
	router  *gin.Engine
	srv     *http.Server
	auth    *AuthManager
	limiter *RateLimiter
}

// NewServer wires the routes and middleware.
func NewServer(cfg config.APIConfig, eng *engine.Engine, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		engine:  eng,
		log:     log.With().Str("component", "api").Logger(),
		router:  router,
		auth:    NewAuthManager(cfg.JWTSecret),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.routes()

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Timeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")

	// Queries are open; without an identity the limiter keys on client IP.
	public := v1.Group("", s.limiter.Middleware())
	public.GET("/oracles", s.handleListOracles)
	public.GET("/oracles/:id", s.handleGetOracle)
	public.GET("/consensus", s.handleConsensus)
	public.GET("/policies/:id", s.handleGetPolicy)
	public.GET("/payouts/ready", s.handleReadyBatch)
	public.GET("/payouts/:id", s.handleGetPayout)
	public.GET("/queue/stats", s.handleQueueStats)
	public.GET("/treasury/report", s.handleFinancialReport)

	// Mutations need a caller identity. The limiter runs after auth so each
	// token-holder gets its own bucket instead of sharing one per IP.
	authed := v1.Group("", s.auth.Middleware(), s.limiter.Middleware())
	authed.POST("/oracles", s.handleRegisterOracle)
	authed.DELETE("/oracles/:id", s.handleUnregisterOracle)
	authed.POST("/oracles/:id/readings", s.handleSubmitReading)
	authed.POST("/oracles/:id/active", s.handleSetOracleActive)
	authed.POST("/oracles/:id/override", s.handleEmergencyOverride)
	authed.POST("/oracles/:id/reset-breaker", s.handleResetBreaker)
	authed.POST("/policies", s.handleCreatePolicy)
	authed.POST("/policies/:id/premium", s.handlePayPremium)
	authed.POST("/policies/:id/cancel", s.handleCancelPolicy)
	authed.POST("/policies/:id/trigger", s.handleTriggerPayout)
	authed.POST("/payouts/:id/approve", s.handleApprovePayout)
	authed.POST("/payouts/:id/reject", s.handleRejectPayout)
	authed.POST("/payouts/:id/execute", s.handleExecutePayout)
	authed.POST("/treasury/initialize", s.handleInitializeTreasury)
	authed.POST("/treasury/deposits", s.handleDeposit)
	authed.POST("/treasury/withdrawals", s.handleWithdraw)
	authed.POST("/treasury/min-ratio", s.handleUpdateMinRatio)
	authed.POST("/admin/pause", s.handlePause)
	authed.POST("/admin/resume", s.handleResume)
}

// Start serves until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("api server listening")
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// statusFor maps engine errors onto HTTP statuses via the error taxonomy.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrOracleNotFound),
		errors.Is(err, types.ErrPolicyNotFound),
		errors.Is(err, types.ErrPayoutNotFound):
		return http.StatusNotFound
	}
	switch types.ClassOf(err) {
	case types.ClassValidation, types.ClassOverflow:
		return http.StatusBadRequest
	case types.ClassAuthorization:
		return http.StatusForbidden
	case types.ClassState, types.ClassStaleness:
		return http.StatusConflict
	case types.ClassConsensus, types.ClassSolvency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"class": types.ClassOf(err),
	})
}
