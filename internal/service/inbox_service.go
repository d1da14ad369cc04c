package service

import (
	"context"
	"fmt"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
)

// InboxFilter narrows the approval listing consumed by UI inboxes.
// AssigneeRole restricts the listing to pending requests the role must act on:
// on flow-routed modules the rows whose current step the role approves, on
// single-approval modules every pending row where the role holds approve.
type InboxFilter struct {
	Status       string
	Kind         string
	Module       string
	RequestedBy  string
	AssigneeRole string
	Page         int
	Limit        int
}

// InboxService is the read-side projection over the approval ledger. It never
// mutates; listings reflect ledger state at the moment of the query.
type InboxService interface {
	List(ctx context.Context, filter InboxFilter) ([]ApprovalResponse, int64, error)
}

type inboxService struct {
	approvalRepo repository.ApprovalRepository
	flowRepo     repository.FlowRepository
	permissions  PermissionChecker
}

func NewInboxService(approvalRepo repository.ApprovalRepository, flowRepo repository.FlowRepository, permissions PermissionChecker) InboxService {
	return &inboxService{
		approvalRepo: approvalRepo,
		flowRepo:     flowRepo,
		permissions:  permissions,
	}
}

func (s *inboxService) List(ctx context.Context, filter InboxFilter) ([]ApprovalResponse, int64, error) {
	repoFilter := repository.InboxFilter{
		Status: filter.Status,
		Kind:   model.Kind(filter.Kind),
		Module: model.Module(filter.Module),
		Page:   filter.Page,
		Limit:  filter.Limit,
	}

	if filter.RequestedBy != "" {
		id, err := uuid.Parse(filter.RequestedBy)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed requested_by id %q", workflow.ErrInvalidPayload, filter.RequestedBy)
		}
		repoFilter.RequestedBy = &id
	}

	if filter.AssigneeRole != "" {
		// Only pending rows have an assignee.
		repoFilter.Status = model.ApprovalPending
		steps, modules, err := s.assigneeTargets(ctx, filter.AssigneeRole)
		if err != nil {
			return nil, 0, err
		}
		if len(steps) == 0 && len(modules) == 0 {
			return []ApprovalResponse{}, 0, nil
		}
		repoFilter.AssigneeSteps = steps
		repoFilter.AssigneeModules = modules
	}

	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	requests, total, err := s.approvalRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	result := make([]ApprovalResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toApprovalResponse(r))
	}
	return result, total, nil
}

// assigneeTargets resolves where a role is the acting approver: the steps it
// owns on modules with an enabled flow, and the single-approval modules where
// it holds approve permission. Admin owns every step; CanAct already treats
// admin as a wildcard on the module path.
func (s *inboxService) assigneeTargets(ctx context.Context, role string) ([]repository.ModuleStep, []model.Module, error) {
	flows, err := s.flowRepo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch approval flows: %w", err)
	}

	flowRouted := make(map[model.Module]bool)
	var steps []repository.ModuleStep
	for _, flow := range flows {
		if !flow.IsEnabled || len(flow.Steps) == 0 {
			continue
		}
		flowRouted[flow.Module] = true
		for _, step := range flow.Steps {
			if role == model.AdminRole || step.ApproverRole == role {
				steps = append(steps, repository.ModuleStep{Module: flow.Module, Step: step.StepOrder})
			}
		}
	}

	var modules []model.Module
	for _, m := range model.Modules() {
		if flowRouted[m] {
			continue
		}
		allowed, err := s.permissions.CanAct(ctx, role, m, model.PermApprove)
		if err != nil {
			return nil, nil, err
		}
		if allowed {
			modules = append(modules, m)
		}
	}
	return steps, modules, nil
}
