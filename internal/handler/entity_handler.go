package handler

import (
	"io"
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/model"
	"erp-backend/internal/service"
	"erp-backend/internal/workflow"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EntityHandler struct {
	entityService   service.EntityService
	approvalService service.ApprovalService
	permissions     middleware.PermissionChecker
}

func NewEntityHandler(
	entityService service.EntityService,
	approvalService service.ApprovalService,
	permissions middleware.PermissionChecker,
) *EntityHandler {
	return &EntityHandler{
		entityService:   entityService,
		approvalService: approvalService,
		permissions:     permissions,
	}
}

func (h *EntityHandler) RegisterRoutes(router *gin.RouterGroup) {
	entities := router.Group("/api/entities/:kind")
	{
		entities.POST("", middleware.RequireKindPermission(h.permissions, model.PermCreate), h.CreateEntity)
		entities.GET("", middleware.RequireKindPermission(h.permissions, model.PermRead), h.ListEntities)
		entities.GET("/:id", middleware.RequireKindPermission(h.permissions, model.PermRead), h.GetEntity)
		entities.POST("/:id/nudge", middleware.RequireKindPermission(h.permissions, model.PermUpdate), h.NudgeEntity)
		entities.POST("/:id/submit", middleware.RequireKindPermission(h.permissions, model.PermUpdate), h.SubmitEntity)
	}

	lattices := router.Group("/api/lattices")
	{
		lattices.GET("", middleware.RequireAuth(), h.ListLattices)
		lattices.GET("/:kind", middleware.RequireAuth(), h.GetLattice)
	}
}

// NudgeRequest selects the direction of a single-step status move.
type NudgeRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next back"`
}

// CreateEntity creates a business record of the given kind
// @Summary      Create entity
// @Description  Creates a record of the given kind at its initial status
// @Tags         entities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string  true  "Entity kind"
// @Param        payload  body      object  true  "Kind-specific payload"
// @Success      201      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Router       /api/entities/{kind} [post]
func (h *EntityHandler) CreateEntity(c *gin.Context) {
	kind := model.Kind(c.Param("kind"))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read request body"))
		return
	}

	entity, err := h.entityService.Create(c.Request.Context(), kind, payload, actorFrom(c))
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entity))
}

// ListEntities returns a paginated list of records of the given kind
// @Summary      List entities
// @Description  Retrieves a paginated list of records of the given kind
// @Tags         entities
// @Security     BearerAuth
// @Produce      json
// @Param        kind   path      string  true   "Entity kind"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Paginated}
// @Failure      500    {object}  response.Response
// @Router       /api/entities/{kind} [get]
func (h *EntityHandler) ListEntities(c *gin.Context) {
	kind := model.Kind(c.Param("kind"))
	params := pagination.Parse(c)

	entities, total, err := h.entityService.List(c.Request.Context(), kind, params.Page, params.Limit)
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items: entities,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetEntity returns one record by id
// @Summary      Get entity
// @Description  Retrieves one record of the given kind by ID
// @Tags         entities
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "Entity kind"
// @Param        id    path      string  true  "Entity ID"
// @Success      200   {object}  response.Response{data=object}
// @Failure      404   {object}  response.Response
// @Router       /api/entities/{kind}/{id} [get]
func (h *EntityHandler) GetEntity(c *gin.Context) {
	kind := model.Kind(c.Param("kind"))

	entity, err := h.entityService.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entity))
}

// NudgeEntity moves a record one adjacent step along its status chain
// @Summary      Nudge entity status
// @Description  Moves the record one adjacent step forward or back along its status chain
// @Tags         entities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path      string        true  "Entity kind"
// @Param        id       path      string        true  "Entity ID"
// @Param        payload  body      NudgeRequest  true  "Nudge direction"
// @Success      200      {object}  response.Response{data=object}
// @Failure      409      {object}  response.Response
// @Router       /api/entities/{kind}/{id}/nudge [post]
func (h *EntityHandler) NudgeEntity(c *gin.Context) {
	kind := model.Kind(c.Param("kind"))

	var req NudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entity, err := h.entityService.Nudge(c.Request.Context(), kind, c.Param("id"), workflow.Direction(req.Direction), actorFrom(c))
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entity))
}

// SubmitEntity opens an approval request for the record
// @Summary      Submit entity for approval
// @Description  Opens a pending approval request; duplicate submits return the existing request
// @Tags         entities
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "Entity kind"
// @Param        id    path      string  true  "Entity ID"
// @Success      201   {object}  response.Response{data=service.SubmitResult}
// @Failure      409   {object}  response.Response
// @Router       /api/entities/{kind}/{id}/submit [post]
func (h *EntityHandler) SubmitEntity(c *gin.Context) {
	kind := model.Kind(c.Param("kind"))

	result, err := h.approvalService.Submit(c.Request.Context(), kind, c.Param("id"), actorFrom(c))
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, result))
}

// ListLattices returns every status lattice
// @Summary      List status lattices
// @Description  Returns the status chain, branches and submit jumps for every entity kind
// @Tags         lattices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.LatticeResponse}
// @Router       /api/lattices [get]
func (h *EntityHandler) ListLattices(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.entityService.Lattices()))
}

// GetLattice returns the status lattice for one kind
// @Summary      Get status lattice
// @Description  Returns the status chain, branches and submit jumps for one entity kind
// @Tags         lattices
// @Security     BearerAuth
// @Produce      json
// @Param        kind  path      string  true  "Entity kind"
// @Success      200   {object}  response.Response{data=service.LatticeResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/lattices/{kind} [get]
func (h *EntityHandler) GetLattice(c *gin.Context) {
	lattice, err := h.entityService.GetLattice(model.Kind(c.Param("kind")))
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, lattice))
}
