package handlers

import (
	"errors"
	"net/http"

	"custodial-lottery/internal/lottery"
	"custodial-lottery/internal/models"
	"custodial-lottery/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// CallerHeader carries the base58 identity of the caller.
const CallerHeader = "X-Caller"

const callerKey = "caller"

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service *services.LotteryService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterPublicRoutes registers the read-only routes.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/lottery", h.GetStatus)
	router.GET("/tickets", h.ListTickets)
	router.GET("/winners", h.GetWinners)
	router.GET("/prizes", h.GetPrizes)
}

// RegisterCallerRoutes registers the routes that act on behalf of a caller.
// The group must use CallerMiddleware.
func (h *HTTPHandler) RegisterCallerRoutes(router gin.IRouter) {
	router.POST("/lottery", h.Initialize)
	router.POST("/tickets", h.Purchase)
	router.POST("/acl", h.AddToACL)
	router.DELETE("/acl/:identity", h.RemoveFromACL)
	router.POST("/timelock", h.ActivateTimeLock)
	router.POST("/seed", h.AssignSeed)
	router.POST("/draw", h.ExecuteDraw)
	router.POST("/settle", h.Settle)
	router.POST("/fee", h.CollectOwnerFee)
}

// CallerMiddleware resolves the caller identity from CallerHeader. A missing
// header is the anonymous default identity.
func (h *HTTPHandler) CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := models.DefaultIdentity
		if raw := c.GetHeader(CallerHeader); raw != "" {
			parsed, err := models.ParseIdentityKey(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			caller = parsed
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerOf(c *gin.Context) models.IdentityKey {
	if v, ok := c.Get(callerKey); ok {
		if id, ok := v.(models.IdentityKey); ok {
			return id
		}
	}
	return models.DefaultIdentity
}

// statusFor maps lottery errors to HTTP status codes.
func statusFor(err error) int {
	var kind lottery.Error
	if !errors.As(err, &kind) {
		return http.StatusInternalServerError
	}
	switch kind {
	case lottery.ErrRateLimited:
		return http.StatusTooManyRequests
	case lottery.ErrUnauthorized, lottery.ErrInvalidAdmin, lottery.ErrAclViolation:
		return http.StatusForbidden
	case lottery.ErrAlreadyInitialized, lottery.ErrTimeLockAlreadySet, lottery.ErrDuplicateTicketPurchase:
		return http.StatusConflict
	case lottery.ErrOutOfTickets:
		return http.StatusGone
	case lottery.ErrInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": err.Error()}
	var kind lottery.Error
	if errors.As(err, &kind) {
		body["kind"] = kind.Kind
		body["code"] = kind.Code
	}
	c.JSON(status, body)
}

// GetStatus returns a snapshot of the lottery.
func (h *HTTPHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}

// Initialize handles the one-time configuration.
func (h *HTTPHandler) Initialize(c *gin.Context) {
	var cfg models.LotteryConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Initialize(cfg); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.service.Status())
}

type purchaseRequest struct {
	Deposit models.Amount `json:"deposit"`
}

// Purchase buys tickets for the caller.
func (h *HTTPHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.service.Purchase(callerOf(c), req.Deposit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ListTickets lists every ticket, or the tickets of ?owner=.
func (h *HTTPHandler) ListTickets(c *gin.Context) {
	owner := models.DefaultIdentity
	if raw := c.Query("owner"); raw != "" {
		parsed, err := models.ParseIdentityKey(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		owner = parsed
	}
	c.JSON(http.StatusOK, gin.H{"tickets": h.service.Tickets(owner)})
}

type aclRequest struct {
	Identity models.IdentityKey `json:"identity"`
}

// AddToACL allowlists an identity.
func (h *HTTPHandler) AddToACL(c *gin.Context) {
	var req aclRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AddToACL(callerOf(c), req.Identity); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFromACL drops an identity from the allowlist.
func (h *HTTPHandler) RemoveFromACL(c *gin.Context) {
	id, err := models.ParseIdentityKey(c.Param("identity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RemoveFromACL(callerOf(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type timeLockRequest struct {
	DurationSeconds uint64 `json:"durationSeconds"`
}

// ActivateTimeLock arms the draw deadline.
func (h *HTTPHandler) ActivateTimeLock(c *gin.Context) {
	var req timeLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	drawTime, err := h.service.ActivateTimeLock(callerOf(c), req.DurationSeconds)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drawTime": drawTime})
}

type seedRequest struct {
	Seed *uint64 `json:"seed"`
}

// AssignSeed takes an explicit seed (the oracle callback) or, without one,
// asks the configured oracle.
func (h *HTTPHandler) AssignSeed(c *gin.Context) {
	var req seedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	caller := callerOf(c)
	if req.Seed != nil {
		if err := h.service.AssignSeed(caller, *req.Seed); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"seed": *req.Seed})
		return
	}

	seed, err := h.service.RequestSeed(c.Request.Context(), caller)
	if errors.Is(err, services.ErrNoOracle) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seed": seed})
}

// ExecuteDraw reorders the tickets and returns the winners.
func (h *HTTPHandler) ExecuteDraw(c *gin.Context) {
	winners, err := h.service.ExecuteDraw(callerOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// GetWinners returns the winners of the current order.
func (h *HTTPHandler) GetWinners(c *gin.Context) {
	winners, err := h.service.Winners()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// GetPrizes returns the prize amounts for the current balance.
func (h *HTTPHandler) GetPrizes(c *gin.Context) {
	prizes, err := h.service.Prizes()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prizes)
}

// Settle transfers the winnings.
func (h *HTTPHandler) Settle(c *gin.Context) {
	winners, err := h.service.Settle(callerOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// CollectOwnerFee transfers the owner's fee to the admin.
func (h *HTTPHandler) CollectOwnerFee(c *gin.Context) {
	fee, err := h.service.CollectOwnerFee(callerOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee": fee})
}
