package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Actor identifies the authenticated caller of a command.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Decision values accepted by Decide.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// EventBroadcaster pushes engine events to connected UI clients. Nil-safe:
// services treat a nil broadcaster as "no listeners".
type EventBroadcaster interface {
	Broadcast(message []byte)
}

// --- DTOs ---

type ApprovalResponse struct {
	ID          string  `json:"id"`
	EntityKind  string  `json:"entity_kind"`
	EntityID    string  `json:"entity_id"`
	Module      string  `json:"module"`
	ItemCode    string  `json:"item_code"`
	ItemName    string  `json:"item_name"`
	FromStatus  string  `json:"from_status"`
	Status      string  `json:"status"`
	RequestedBy *string `json:"requested_by"`
	Requester   string  `json:"requester_name"`
	RequestedAt string  `json:"requested_at"`
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	DueAt       *string `json:"due_at"`
	DecidedBy   *string `json:"decided_by"`
	Decider     string  `json:"decider_name"`
	DecidedAt   *string `json:"decided_at"`
	Comment     string  `json:"comment"`
}

// SubmitResult carries the ledger row plus the duplicate-pending signal, which
// is informational rather than a failure.
type SubmitResult struct {
	Approval  ApprovalResponse `json:"approval"`
	Duplicate bool             `json:"duplicate"`
}

// --- Interface ---

// ApprovalService is the approval request ledger plus the transition executor.
// It is the only writer of entity status on the approval-authorized path.
type ApprovalService interface {
	Submit(ctx context.Context, kind model.Kind, entityID string, actor Actor) (SubmitResult, error)
	Decide(ctx context.Context, approvalID string, decision string, actor Actor, comment string) (ApprovalResponse, error)
}

type approvalService struct {
	txManager    repository.TransactionManager
	entityRepo   repository.EntityRepository
	approvalRepo repository.ApprovalRepository
	flowRepo     repository.FlowRepository
	auditRepo    repository.AuditRepository
	permissions  PermissionChecker
	hub          EventBroadcaster
	log          zerolog.Logger
}

func NewApprovalService(
	txManager repository.TransactionManager,
	entityRepo repository.EntityRepository,
	approvalRepo repository.ApprovalRepository,
	flowRepo repository.FlowRepository,
	auditRepo repository.AuditRepository,
	permissions PermissionChecker,
	hub EventBroadcaster,
	log zerolog.Logger,
) ApprovalService {
	return &approvalService{
		txManager:    txManager,
		entityRepo:   entityRepo,
		approvalRepo: approvalRepo,
		flowRepo:     flowRepo,
		auditRepo:    auditRepo,
		permissions:  permissions,
		hub:          hub,
		log:          log,
	}
}

// --- Implementation ---

// Submit opens an approval request for the entity. The duplicate-pending check
// runs with the entity row locked, so two concurrent submits cannot both
// insert. Kinds with a configured submit jump are moved to the jump target in
// the same transaction; the approval snapshots the resulting status.
func (s *approvalService) Submit(ctx context.Context, kind model.Kind, entityID string, actor Actor) (SubmitResult, error) {
	id, err := uuid.Parse(entityID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: malformed entity id %q", workflow.ErrInvalidPayload, entityID)
	}

	lattice, err := workflow.Get(kind)
	if err != nil {
		return SubmitResult{}, err
	}
	if !lattice.Approvable {
		return SubmitResult{}, workflow.ErrNotApprovable
	}

	module, ok := model.ModuleFor(kind)
	if !ok {
		return SubmitResult{}, workflow.ErrUnknownKind
	}

	var (
		approval  model.ApprovalRequest
		duplicate *model.ApprovalRequest
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entity, txErr := s.entityRepo.GetForUpdate(txCtx, kind, id)
		if txErr != nil {
			return txErr
		}

		if entity.CurrentStatus() == model.AllocationLocked && kind == model.KindAllocation {
			return workflow.ErrAllocationLocked
		}

		existing, txErr := s.approvalRepo.FindPending(txCtx, kind, id)
		if txErr != nil {
			return txErr
		}
		if existing != nil {
			duplicate = existing
			return workflow.ErrDuplicatePending
		}

		fromStatus := lattice.SubmitTarget(entity.CurrentStatus())
		if lattice.IsTerminal(fromStatus) {
			return workflow.ErrInvalidTransition
		}

		if fromStatus != entity.CurrentStatus() {
			if txErr := s.entityRepo.SetStatus(txCtx, kind, id, fromStatus); txErr != nil {
				return txErr
			}
		}

		totalSteps := 1
		var dueAt *time.Time
		flow, txErr := s.flowRepo.FindByModule(txCtx, module)
		if txErr != nil {
			return txErr
		}
		if flow != nil && flow.IsEnabled && len(flow.Steps) > 0 {
			totalSteps = len(flow.Steps)
			dueAt = stepDeadline(flow.Steps[0], time.Now())
		}

		actorID := actor.ID
		approval = model.ApprovalRequest{
			EntityKind:  kind,
			EntityID:    id,
			Module:      module,
			ItemCode:    entity.RefCode(),
			ItemName:    entity.DisplayName(),
			FromStatus:  fromStatus,
			Status:      model.ApprovalPending,
			RequestedBy: &actorID,
			TotalSteps:  totalSteps,
			DueAt:       dueAt,
		}
		if txErr := s.approvalRepo.Create(txCtx, &approval); txErr != nil {
			return fmt.Errorf("failed to create approval request: %w", txErr)
		}

		return s.audit(txCtx, &actorID, model.ActionCreateApprovalRequest, approval.ID.String(), entity.DisplayName(), map[string]interface{}{
			"entity_kind": kind,
			"entity_id":   entityID,
			"from_status": fromStatus,
			"total_steps": totalSteps,
		})
	})

	if errors.Is(err, workflow.ErrDuplicatePending) && duplicate != nil {
		return SubmitResult{Approval: toApprovalResponse(*duplicate), Duplicate: true}, nil
	}
	if err != nil {
		return SubmitResult{}, err
	}

	s.broadcast("approval_submitted", approval)
	s.log.Info().
		Str("approval_id", approval.ID.String()).
		Str("entity_kind", string(kind)).
		Str("entity_id", entityID).
		Str("from_status", approval.FromStatus).
		Msg("approval request submitted")

	return SubmitResult{Approval: toApprovalResponse(approval)}, nil
}

// Decide resolves one step of a pending approval. Re-delivery of the decision
// already recorded is a no-op; a conflicting decision fails AlreadyDecided.
// The final approve (or any reject) applies the status transition from the
// snapshot taken at submit time.
func (s *approvalService) Decide(ctx context.Context, approvalID string, decision string, actor Actor, comment string) (ApprovalResponse, error) {
	id, err := uuid.Parse(approvalID)
	if err != nil {
		return ApprovalResponse{}, fmt.Errorf("%w: malformed approval request id %q", workflow.ErrInvalidPayload, approvalID)
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return ApprovalResponse{}, fmt.Errorf("%w: unknown decision %q", workflow.ErrInvalidPayload, decision)
	}

	var (
		approval *model.ApprovalRequest
		event    string
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		approval, txErr = s.approvalRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			return txErr
		}

		if approval.Status != model.ApprovalPending {
			if sameDecision(approval.Status, decision) {
				return nil // idempotent replay, first decision stands
			}
			return workflow.ErrAlreadyDecided
		}

		lattice, txErr := workflow.Get(approval.EntityKind)
		if txErr != nil {
			return txErr
		}

		flow, txErr := s.flowRepo.FindByModule(txCtx, approval.Module)
		if txErr != nil {
			return txErr
		}
		multiStep := flow != nil && flow.IsEnabled && len(flow.Steps) > 0

		if txErr := s.authorize(txCtx, actor, approval, flow, multiStep); txErr != nil {
			return txErr
		}

		entity, txErr := s.entityRepo.GetForUpdate(txCtx, approval.EntityKind, approval.EntityID)
		if txErr != nil {
			return txErr
		}
		if entity.CurrentStatus() != approval.FromStatus {
			return workflow.ErrEntityDrifted
		}

		actorID := actor.ID

		// Intermediate step approval: advance the cursor, stay pending. The
		// flow may have been swapped since submit, so the cursor is checked
		// against the live steps; a cursor at or past their end resolves as
		// the final step instead of advancing.
		if decision == DecisionApprove && multiStep &&
			approval.CurrentStep < approval.TotalSteps-1 &&
			approval.CurrentStep+1 < len(flow.Steps) {
			approval.CurrentStep++
			approval.DueAt = stepDeadline(flow.Steps[approval.CurrentStep], time.Now())
			if txErr := s.approvalRepo.Update(txCtx, approval); txErr != nil {
				return txErr
			}
			event = "approval_step_advanced"
			return s.audit(txCtx, &actorID, model.ActionApproveStep, approval.ID.String(), approval.ItemName, map[string]interface{}{
				"step":    approval.CurrentStep,
				"of":      approval.TotalSteps,
				"comment": comment,
			})
		}

		// Final decision.
		now := time.Now()
		approval.DecidedBy = &actorID
		approval.DecidedAt = &now
		approval.Comment = comment

		var target string
		action := model.ActionApproveRequest
		if decision == DecisionApprove {
			approval.Status = model.ApprovalApproved
			target = lattice.Next(approval.FromStatus)
			event = "approval_approved"
		} else {
			approval.Status = model.ApprovalRejected
			target = lattice.RejectTarget(approval.FromStatus)
			action = model.ActionRejectRequest
			event = "approval_rejected"
		}

		if !approval.Executed && target != approval.FromStatus {
			if txErr := s.applyTransition(txCtx, entity, target); txErr != nil {
				return txErr
			}
			if txErr := s.audit(txCtx, &actorID, model.ActionApplyTransition, approval.EntityID.String(), approval.ItemName, map[string]interface{}{
				"entity_kind": approval.EntityKind,
				"from":        approval.FromStatus,
				"to":          target,
			}); txErr != nil {
				return txErr
			}
		}
		approval.Executed = true

		if txErr := s.approvalRepo.Update(txCtx, approval); txErr != nil {
			return fmt.Errorf("failed to update approval request: %w", txErr)
		}

		return s.audit(txCtx, &actorID, action, approval.ID.String(), approval.ItemName, map[string]interface{}{
			"entity_kind": approval.EntityKind,
			"entity_id":   approval.EntityID.String(),
			"decision":    decision,
			"comment":     comment,
		})
	})

	if err != nil {
		return ApprovalResponse{}, err
	}

	if event != "" {
		s.broadcast(event, *approval)
		s.log.Info().
			Str("approval_id", approval.ID.String()).
			Str("decision", decision).
			Str("status", approval.Status).
			Int("step", approval.CurrentStep).
			Msg("approval decision recorded")
	}

	if loaded, loadErr := s.approvalRepo.FindByIDWithRelations(ctx, id); loadErr == nil {
		return toApprovalResponse(*loaded), nil
	}
	return toApprovalResponse(*approval), nil
}

// authorize enforces the permission gate: on the single-step path any role
// with approve permission on the module; on the multi-step path the current
// step's approver role. Admin always passes. A cursor past the live flow's
// steps (the flow shrank since submit) falls back to the module gate.
func (s *approvalService) authorize(ctx context.Context, actor Actor, approval *model.ApprovalRequest, flow *model.ApprovalFlow, multiStep bool) error {
	if actor.Role == model.AdminRole {
		return nil
	}

	if multiStep && approval.CurrentStep < len(flow.Steps) {
		step := flow.Steps[approval.CurrentStep]
		if actor.Role != step.ApproverRole {
			return workflow.ErrUnauthorized
		}
		return nil
	}

	allowed, err := s.permissions.CanAct(ctx, actor.Role, approval.Module, model.PermApprove)
	if err != nil {
		return err
	}
	if !allowed {
		return workflow.ErrUnauthorized
	}
	return nil
}

// applyTransition writes the entity status. Allocations cascade the tri-state
// onto their items so a locked allocation is locked item by item.
func (s *approvalService) applyTransition(ctx context.Context, entity model.Entity, target string) error {
	if alloc, ok := entity.(*model.Allocation); ok {
		alloc.Status = target
		for i := range alloc.Items {
			alloc.Items[i].State = target
		}
		return s.entityRepo.Update(ctx, alloc)
	}
	return s.entityRepo.SetStatus(ctx, entity.EntityKind(), entity.EntityID(), target)
}

func (s *approvalService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.auditRepo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *approvalService) broadcast(event string, approval model.ApprovalRequest) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":        event,
		"approval_id": approval.ID.String(),
		"entity_kind": approval.EntityKind,
		"entity_id":   approval.EntityID.String(),
		"module":      approval.Module,
		"status":      approval.Status,
		"step":        approval.CurrentStep,
	})
	if err != nil {
		return
	}
	s.hub.Broadcast(payload)
}

func sameDecision(status, decision string) bool {
	return (status == model.ApprovalApproved && decision == DecisionApprove) ||
		(status == model.ApprovalRejected && decision == DecisionReject)
}

// stepDeadline converts a step's advisory SLA hours into a due timestamp.
func stepDeadline(step model.ApprovalStep, from time.Time) *time.Time {
	if step.SLAHours <= 0 {
		return nil
	}
	due := from.Add(time.Duration(step.SLAHours) * time.Hour)
	return &due
}

// --- Helpers ---

func toApprovalResponse(a model.ApprovalRequest) ApprovalResponse {
	resp := ApprovalResponse{
		ID:          a.ID.String(),
		EntityKind:  string(a.EntityKind),
		EntityID:    a.EntityID.String(),
		Module:      string(a.Module),
		ItemCode:    a.ItemCode,
		ItemName:    a.ItemName,
		FromStatus:  a.FromStatus,
		Status:      a.Status,
		RequestedAt: a.RequestedAt.Format(time.RFC3339),
		CurrentStep: a.CurrentStep,
		TotalSteps:  a.TotalSteps,
		Comment:     a.Comment,
	}

	if a.RequestedBy != nil {
		v := a.RequestedBy.String()
		resp.RequestedBy = &v
	}
	if a.Requester != nil {
		resp.Requester = a.Requester.Username
	}
	if a.DueAt != nil {
		v := a.DueAt.Format(time.RFC3339)
		resp.DueAt = &v
	}
	if a.DecidedBy != nil {
		v := a.DecidedBy.String()
		resp.DecidedBy = &v
	}
	if a.Decider != nil {
		resp.Decider = a.Decider.Username
	}
	if a.DecidedAt != nil {
		v := a.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}

	return resp
}
