package api

import (
	"crypto/ed25519"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/siglab/settlement/internal/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if s.engine.Paused() {
		status = "paused"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// --- oracles ---

type registerOracleRequest struct {
	ID          string           `json:"id" binding:"required"`
	Authority   string           `json:"authority" binding:"required"`
	Type        types.OracleType `json:"type"`
	FeedAddress string           `json:"feed_address"`
	PublicKey   []byte           `json:"public_key" binding:"required"`
}

func (s *Server) handleRegisterOracle(c *gin.Context) {
	var req registerOracleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.RegisterOracle(caller(c), req.ID, req.Authority, req.Type, req.FeedAddress, ed25519.PublicKey(req.PublicKey)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": req.ID})
}

func (s *Server) handleUnregisterOracle(c *gin.Context) {
	if err := s.engine.UnregisterOracle(caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmitReading(c *gin.Context) {
	var reading types.Reading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.SubmitReading(caller(c), c.Param("id"), reading); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": c.Param("id")})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) handleSetOracleActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.SetOracleActive(caller(c), c.Param("id"), *req.Active); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type overrideRequest struct {
	Reading types.Reading `json:"reading" binding:"required"`
	Reason  string        `json:"reason" binding:"required"`
}

func (s *Server) handleEmergencyOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.EmergencyOverride(caller(c), c.Param("id"), req.Reading, req.Reason); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetBreaker(c *gin.Context) {
	if err := s.engine.ResetCircuitBreaker(caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListOracles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"oracles": s.engine.Oracles()})
}

func (s *Server) handleGetOracle(c *gin.Context) {
	o, err := s.engine.GetOracle(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleConsensus(c *gin.Context) {
	res, err := s.engine.Consensus()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- policies ---

func (s *Server) handleCreatePolicy(c *gin.Context) {
	var p types.Policy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.engine.CreatePolicy(caller(c), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetPolicy(c *gin.Context) {
	p, err := s.engine.GetPolicy(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handlePayPremium(c *gin.Context) {
	if err := s.engine.PayPremium(caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCancelPolicy(c *gin.Context) {
	if err := s.engine.CancelPolicy(caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- payouts ---

func (s *Server) handleTriggerPayout(c *gin.Context) {
	admitted, err := s.engine.TriggerPayout(caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, admitted)
}

func (s *Server) handleApprovePayout(c *gin.Context) {
	if err := s.engine.ApprovePayout(caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) handleRejectPayout(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.RejectPayout(caller(c), c.Param("id"), req.Reason); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExecutePayout(c *gin.Context) {
	executed, err := s.engine.ExecutePayout(caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, executed)
}

func (s *Server) handleGetPayout(c *gin.Context) {
	p, err := s.engine.GetPayout(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleReadyBatch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"payouts": s.engine.ReadyBatch(limit)})
}

func (s *Server) handleQueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.QueueStats())
}

// --- treasury ---

type initTreasuryRequest struct {
	MinReserveRatioBps uint16 `json:"min_reserve_ratio_bps" binding:"required"`
}

func (s *Server) handleInitializeTreasury(c *gin.Context) {
	var req initTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.InitializeTreasury(caller(c), req.MinReserveRatioBps); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type fundsRequest struct {
	Asset  types.AssetClass `json:"asset"`
	Amount uint64           `json:"amount" binding:"required"`
	Reason string           `json:"reason"`
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.Deposit(caller(c), req.Asset, req.Amount); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.Withdraw(caller(c), req.Asset, req.Amount, req.Reason); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdateMinRatio(c *gin.Context) {
	var req initTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.UpdateMinimumReserveRatio(caller(c), req.MinReserveRatioBps); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFinancialReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.FinancialReport())
}

// --- admin ---

func (s *Server) handlePause(c *gin.Context) {
	if err := s.engine.Pause(caller(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResume(c *gin.Context) {
	if err := s.engine.Resume(caller(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
