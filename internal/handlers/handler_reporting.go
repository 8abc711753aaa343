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

// reportingHandler handles HTTP requests for balances and transaction history
type reportingHandler struct {
	reportingService portssvc.ReportingSvcFacade
}

// newReportingHandler creates a new reportingHandler
func newReportingHandler(rs portssvc.ReportingSvcFacade) *reportingHandler {
	return &reportingHandler{
		reportingService: rs,
	}
}

// RegisterReportingRoutes registers read-only routes. Owners read their own data;
// the issuer role may read anyone's.
func RegisterReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingSvcFacade) {
	h := newReportingHandler(reportingService)

	owners := rg.Group("/owners/:owner")
	{
		owners.GET("/balances/:asset", h.getBalance)
		owners.GET("/holdings", h.getHoldings)
		owners.GET("/transactions", h.listTransactions)
	}
	rg.GET("/transactions/:id", h.getTransaction)
}

// ownerAndCaller parses the :owner path parameter and the authenticated caller.
func ownerAndCaller(c *gin.Context) (owner, caller uuid.UUID, ok bool) {
	owner, err := uuid.Parse(c.Param("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Owner must be a UUID"})
		return uuid.Nil, uuid.Nil, false
	}
	caller, ok = callerID(c)
	return owner, caller, ok
}

// getBalance godoc
// @Summary Get an owner's balance in one asset
// @Tags reports
// @Produce json
// @Param owner path string true "Owner ID"
// @Param asset path string true "Asset code"
// @Success 200 {object} dto.BalanceResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Asset not found"
// @Security BearerAuth
// @Router /owners/{owner}/balances/{asset} [get]
func (h *reportingHandler) getBalance(c *gin.Context) {
	owner, caller, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	balance, err := h.reportingService.GetBalance(c.Request.Context(), owner, c.Param("asset"), caller,
		middleware.HasRole(c, middleware.RoleIssuer))
	if err != nil {
		respondError(c, err, "retrieve balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

// getHoldings godoc
// @Summary Get every non-empty balance of an owner
// @Tags reports
// @Produce json
// @Param owner path string true "Owner ID"
// @Success 200 {object} dto.HoldingsResponse
// @Security BearerAuth
// @Router /owners/{owner}/holdings [get]
func (h *reportingHandler) getHoldings(c *gin.Context) {
	owner, caller, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	holdings, err := h.reportingService.GetHoldings(c.Request.Context(), owner, caller,
		middleware.HasRole(c, middleware.RoleIssuer))
	if err != nil {
		respondError(c, err, "retrieve holdings")
		return
	}
	c.JSON(http.StatusOK, holdings)
}

// listTransactions godoc
// @Summary List an owner's transactions
// @Tags reports
// @Produce json
// @Param owner path string true "Owner ID"
// @Param from query string false "Inclusive lower bound (RFC 3339)"
// @Param to query string false "Exclusive upper bound (RFC 3339)"
// @Param limit query int false "Page size (1-500); the whole window when omitted"
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Security BearerAuth
// @Router /owners/{owner}/transactions [get]
func (h *reportingHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	owner, caller, ok := ownerAndCaller(c)
	if !ok {
		return
	}

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Invalid transaction query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: dates must be RFC 3339 and limit between 1 and 500"})
		return
	}

	txns, err := h.reportingService.ListTransactions(c.Request.Context(), owner, params, caller,
		middleware.HasRole(c, middleware.RoleIssuer))
	if err != nil {
		respondError(c, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, txns)
}

// getTransaction godoc
// @Summary Get one transaction
// @Tags reports
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *reportingHandler) getTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction ID must be a UUID"})
		return
	}
	caller, ok := callerID(c)
	if !ok {
		return
	}

	txn, err := h.reportingService.GetTransaction(c.Request.Context(), id, caller,
		middleware.HasRole(c, middleware.RoleIssuer))
	if err != nil {
		respondError(c, err, "retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, txn)
}
