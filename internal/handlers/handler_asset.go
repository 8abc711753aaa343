package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/SscSPs/voledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// assetHandler handles HTTP requests related to the asset registry.
type assetHandler struct {
	assetService portssvc.AssetSvcFacade
}

// newAssetHandler creates a new assetHandler.
func newAssetHandler(as portssvc.AssetSvcFacade) *assetHandler {
	return &assetHandler{
		assetService: as,
	}
}

// RegisterAssetRoutes registers routes related to assets. Creating assets needs the issuer role.
func RegisterAssetRoutes(rg *gin.RouterGroup, assetService portssvc.AssetSvcFacade) {
	registerValidators()
	h := newAssetHandler(assetService)

	assets := rg.Group("/assets")
	{
		assets.POST("", middleware.RequireRole(middleware.RoleIssuer), h.createAsset)
		assets.GET("", h.listAssets)
		assets.GET("/:code", h.getAssetByCode)
	}
}

// createAsset godoc
// @Summary Register a new asset
// @Description Registers an asset with its base unit size and display decimals (issuer only)
// @Tags assets
// @Accept  json
// @Produce  json
// @Param   asset body dto.CreateAssetRequest true "Asset details"
// @Success 201 {object} dto.AssetResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Asset code registered with a different definition"
// @Security BearerAuth
// @Router /assets [post]
func (h *assetHandler) createAsset(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAsset", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received request to create asset", slog.String("code", req.Code))
	asset, err := h.assetService.CreateAsset(c.Request.Context(), req, creatorID)
	if err != nil {
		respondError(c, err, "create asset")
		return
	}

	c.JSON(http.StatusCreated, dto.ToAssetResponse(asset))
}

// getAssetByCode godoc
// @Summary Get an asset by code
// @Tags assets
// @Produce  json
// @Param   code path string true "Asset code"
// @Success 200 {object} dto.AssetResponse
// @Failure 404 {object} map[string]string "Asset not found"
// @Security BearerAuth
// @Router /assets/{code} [get]
func (h *assetHandler) getAssetByCode(c *gin.Context) {
	code := c.Param("code")
	if !assetCodePattern.MatchString(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset code"})
		return
	}

	asset, err := h.assetService.GetAssetByCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err, "retrieve asset")
		return
	}
	c.JSON(http.StatusOK, dto.ToAssetResponse(asset))
}

// listAssets godoc
// @Summary List all assets
// @Tags assets
// @Produce  json
// @Success 200 {array} dto.AssetResponse
// @Security BearerAuth
// @Router /assets [get]
func (h *assetHandler) listAssets(c *gin.Context) {
	assets, err := h.assetService.ListAssets(c.Request.Context())
	if err != nil {
		respondError(c, err, "list assets")
		return
	}
	c.JSON(http.StatusOK, dto.ToListAssetResponse(assets))
}
