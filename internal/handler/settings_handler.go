package handler

import (
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/model"
	"erp-backend/internal/service"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService   service.SettingsService
	permissionService service.PermissionService
}

func NewSettingsHandler(settingsService service.SettingsService, permissionService service.PermissionService) *SettingsHandler {
	return &SettingsHandler{
		settingsService:   settingsService,
		permissionService: permissionService,
	}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/api/settings", middleware.RequirePermission(h.permissionService, model.ModuleSettings, model.PermUpdate))
	{
		settings.GET("/permissions", h.GetPermissions)
		settings.PUT("/permissions", h.ReplacePermissions)
		settings.GET("/flows", h.GetFlows)
		settings.PUT("/flows", h.ReplaceFlows)
		settings.GET("/export", h.Export)
		settings.POST("/import", h.Import)
		settings.POST("/reset", h.Reset)
	}
}

// PermissionMatrixRequest replaces the role list and matrix as one unit.
type PermissionMatrixRequest struct {
	Roles       []model.RoleConfig          `json:"roles" binding:"required"`
	Permissions []model.ModulePermissionSet `json:"permissions"`
}

// FlowsRequest replaces every approval flow as one unit.
type FlowsRequest struct {
	Flows []model.FlowConfig `json:"flows"`
}

// GetPermissions returns the role list and permission matrix
// @Summary      Get permission matrix
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/settings/permissions [get]
func (h *SettingsHandler) GetPermissions(c *gin.Context) {
	roles, err := h.permissionService.GetRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	matrix, err := h.permissionService.GetMatrix(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"roles":       roles,
		"permissions": matrix,
	}))
}

// ReplacePermissions swaps the role list and matrix atomically
// @Summary      Replace permission matrix
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      PermissionMatrixRequest  true  "New roles and matrix"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/settings/permissions [put]
func (h *SettingsHandler) ReplacePermissions(c *gin.Context) {
	var req PermissionMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.settingsService.ReplacePermissions(c.Request.Context(), req.Roles, req.Permissions, actorFrom(c)); err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetFlows returns every approval flow
// @Summary      Get approval flows
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.ApprovalFlow}
// @Router       /api/settings/flows [get]
func (h *SettingsHandler) GetFlows(c *gin.Context) {
	flows, err := h.settingsService.GetFlows(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, flows))
}

// ReplaceFlows swaps every approval flow atomically
// @Summary      Replace approval flows
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      FlowsRequest  true  "New flow definitions"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/settings/flows [put]
func (h *SettingsHandler) ReplaceFlows(c *gin.Context) {
	var req FlowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.settingsService.ReplaceFlows(c.Request.Context(), req.Flows, actorFrom(c)); err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// Export returns the full configuration snapshot
// @Summary      Export settings snapshot
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.SettingsSnapshot}
// @Router       /api/settings/export [get]
func (h *SettingsHandler) Export(c *gin.Context) {
	snapshot, err := h.settingsService.Export(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}

// Import validates and applies a configuration snapshot
// @Summary      Import settings snapshot
// @Description  Validates the snapshot and swaps the whole configuration atomically
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      model.SettingsSnapshot  true  "Settings snapshot"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/settings/import [post]
func (h *SettingsHandler) Import(c *gin.Context) {
	var snapshot model.SettingsSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.settingsService.Import(c.Request.Context(), snapshot, actorFrom(c)); err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// Reset restores the default configuration
// @Summary      Reset settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/settings/reset [post]
func (h *SettingsHandler) Reset(c *gin.Context) {
	if err := h.settingsService.Reset(c.Request.Context(), actorFrom(c)); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
