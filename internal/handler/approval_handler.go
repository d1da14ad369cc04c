package handler

import (
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	inboxService    service.InboxService
}

func NewApprovalHandler(approvalService service.ApprovalService, inboxService service.InboxService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		inboxService:    inboxService,
	}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", middleware.RequireAuth(), h.ListApprovalRequests)
		approvals.PUT("/:id/approve", middleware.RequireAuth(), h.ApproveRequest)
		approvals.PUT("/:id/reject", middleware.RequireAuth(), h.RejectRequest)
	}
}

// DecisionRequest carries the optional comment attached to a decision.
type DecisionRequest struct {
	Comment string `json:"comment"`
}

// ListApprovalRequests returns the approval inbox
// @Summary      List approval requests
// @Description  Retrieves approval requests filtered by status, kind, module or requester
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        status         query     string  false  "Filter by status (pending, approved, rejected)"
// @Param        kind           query     string  false  "Filter by entity kind"
// @Param        module         query     string  false  "Filter by module"
// @Param        requested_by   query     string  false  "Filter by requester user ID"
// @Param        assignee_role  query     string  false  "Only pending requests this role must act on"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Number of items per page (default 20)"
// @Success      200            {object}  response.Response{data=response.Paginated}
// @Failure      500            {object}  response.Response
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListApprovalRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.InboxFilter{
		Status:       c.Query("status"),
		Kind:         c.Query("kind"),
		Module:       c.Query("module"),
		RequestedBy:  c.Query("requested_by"),
		AssigneeRole: c.Query("assignee_role"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	approvals, total, err := h.inboxService.List(c.Request.Context(), filter)
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items: approvals,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// ApproveRequest approves the current step of a pending approval request
// @Summary      Approve request
// @Description  Approves the current step; the final step applies the status transition
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "Approval request ID"
// @Param        payload  body      DecisionRequest  false  "Optional comment"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/approve [put]
func (h *ApprovalHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, service.DecisionApprove)
}

// RejectRequest rejects a pending approval request
// @Summary      Reject request
// @Description  Rejects the request at any step and applies the reject transition
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "Approval request ID"
// @Param        payload  body      DecisionRequest  false  "Optional comment"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/reject [put]
func (h *ApprovalHandler) RejectRequest(c *gin.Context) {
	h.decide(c, service.DecisionReject)
}

func (h *ApprovalHandler) decide(c *gin.Context, decision string) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Allow empty body — comment is optional
		req.Comment = ""
	}

	result, err := h.approvalService.Decide(c.Request.Context(), c.Param("id"), decision, actorFrom(c), req.Comment)
	if err != nil {
		status := errStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
