package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/SscSPs/voledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// paymentHandler handles HTTP requests that mint, move or destroy value.
// The authenticated subject is always the owner whose value is spent.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

func newPaymentHandler(ps portssvc.PaymentSvcFacade) *paymentHandler {
	return &paymentHandler{
		paymentService: ps,
	}
}

// RegisterPaymentRoutes registers routes that change balances. Minting needs the issuer role.
func RegisterPaymentRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	registerValidators()
	h := newPaymentHandler(paymentService)

	rg.POST("/mints", middleware.RequireRole(middleware.RoleIssuer), h.mint)
	rg.POST("/transfers", h.transfer)
	rg.POST("/burns", h.burn)
	rg.POST("/reservations", h.reserve)
}

// callerID returns the authenticated owner or writes 401.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return id, ok
}

// mint godoc
// @Summary Mint value
// @Description Creates value for an owner and records it (issuer only)
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   mint body dto.MintRequest true "Mint details"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Asset not found"
// @Failure 409 {object} map[string]string "Duplicate idempotency key"
// @Security BearerAuth
// @Router /mints [post]
func (h *paymentHandler) mint(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Mint", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	issuerID, ok := callerID(c)
	if !ok {
		return
	}

	receipt, err := h.paymentService.Mint(c.Request.Context(), req, issuerID)
	if err != nil {
		respondError(c, err, "mint")
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// transfer godoc
// @Summary Transfer value
// @Description Pays one or more recipients from the caller's balance in a single atomic block
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Payments"
// @Success 201 {object} dto.ReceiptsResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Asset not found"
// @Failure 409 {object} map[string]string "Insufficient funds or duplicate idempotency key"
// @Security BearerAuth
// @Router /transfers [post]
func (h *paymentHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	senderID, ok := callerID(c)
	if !ok {
		return
	}

	receipts, err := h.paymentService.Transfer(c.Request.Context(), req, senderID)
	if err != nil {
		respondError(c, err, "transfer")
		return
	}
	c.JSON(http.StatusCreated, receipts)
}

// burn godoc
// @Summary Burn value
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   burn body dto.BurnRequest true "Burn details"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 409 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /burns [post]
func (h *paymentHandler) burn(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Burn", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	ownerID, ok := callerID(c)
	if !ok {
		return
	}

	receipt, err := h.paymentService.Burn(c.Request.Context(), req, ownerID)
	if err != nil {
		respondError(c, err, "burn")
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// reserve godoc
// @Summary Reserve value for an authority
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   reservation body dto.ReserveRequest true "Reservation details"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 409 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /reservations [post]
func (h *paymentHandler) reserve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Reserve", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	ownerID, ok := callerID(c)
	if !ok {
		return
	}

	receipt, err := h.paymentService.Reserve(c.Request.Context(), req, ownerID)
	if err != nil {
		respondError(c, err, "reserve")
		return
	}
	c.JSON(http.StatusCreated, receipt)
}
