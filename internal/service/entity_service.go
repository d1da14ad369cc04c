package service

import (
	"context"
	"encoding/json"
	"fmt"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// --- DTOs ---

type LatticeResponse struct {
	Kind        string            `json:"kind"`
	Module      string            `json:"module"`
	Statuses    []string          `json:"statuses"`
	Initial     string            `json:"initial"`
	Terminals   []string          `json:"terminals"`
	Branches    map[string]string `json:"branches,omitempty"`
	SubmitJumps map[string]string `json:"submit_jumps,omitempty"`
	Approvable  bool              `json:"approvable"`
}

// --- Interface ---

// EntityService owns entity creation, queries and the manual nudge path.
// Nudges move one step along the main chain and are refused anywhere the
// adjacency rule would be violated; non-adjacent moves go through the
// approval ledger instead.
type EntityService interface {
	Create(ctx context.Context, kind model.Kind, payload []byte, actor Actor) (model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	List(ctx context.Context, kind model.Kind, page, limit int) ([]model.Entity, int64, error)
	Nudge(ctx context.Context, kind model.Kind, id string, direction workflow.Direction, actor Actor) (model.Entity, error)
	GetLattice(kind model.Kind) (LatticeResponse, error)
	Lattices() []LatticeResponse
}

type entityService struct {
	txManager  repository.TransactionManager
	entityRepo repository.EntityRepository
	auditRepo  repository.AuditRepository
	log        zerolog.Logger
}

func NewEntityService(
	txManager repository.TransactionManager,
	entityRepo repository.EntityRepository,
	auditRepo repository.AuditRepository,
	log zerolog.Logger,
) EntityService {
	return &entityService{
		txManager:  txManager,
		entityRepo: entityRepo,
		auditRepo:  auditRepo,
		log:        log,
	}
}

// --- Implementation ---

// Create decodes the kind-specific payload, forces the lattice's initial
// status and persists the record. Client-supplied id and status are ignored.
func (s *entityService) Create(ctx context.Context, kind model.Kind, payload []byte, actor Actor) (model.Entity, error) {
	lattice, err := workflow.Get(kind)
	if err != nil {
		return nil, err
	}

	entity, err := repository.NewEntity(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, entity); err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", workflow.ErrInvalidPayload, kind, err)
	}

	if alloc, ok := entity.(*model.Allocation); ok {
		if err := validateAllocation(alloc); err != nil {
			return nil, err
		}
		for i := range alloc.Items {
			alloc.Items[i].ID = uuid.Nil
			alloc.Items[i].State = model.AllocationProposed
		}
	}

	scrub(entity, lattice.Initial())

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.entityRepo.Create(txCtx, entity); txErr != nil {
			return fmt.Errorf("failed to create %s: %w", kind, txErr)
		}
		actorID := actor.ID
		return s.auditEntry(txCtx, &actorID, model.ActionCreateEntity, entity, map[string]interface{}{
			"entity_kind": kind,
			"status":      entity.CurrentStatus(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entity_kind", string(kind)).
		Str("entity_id", entity.EntityID().String()).
		Str("status", entity.CurrentStatus()).
		Msg("entity created")

	return entity, nil
}

func (s *entityService) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	entityID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed entity id %q", workflow.ErrInvalidPayload, id)
	}
	return s.entityRepo.Get(ctx, kind, entityID)
}

func (s *entityService) List(ctx context.Context, kind model.Kind, page, limit int) ([]model.Entity, int64, error) {
	if _, err := workflow.Get(kind); err != nil {
		return nil, 0, err
	}
	return s.entityRepo.List(ctx, kind, page, limit)
}

// Nudge applies a single adjacent step in the requested direction. The
// lattice boundaries are identities: nudging past an end returns the entity
// unchanged rather than erroring, keeping edge calls side-effect-free.
func (s *entityService) Nudge(ctx context.Context, kind model.Kind, id string, direction workflow.Direction, actor Actor) (model.Entity, error) {
	entityID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed entity id %q", workflow.ErrInvalidPayload, id)
	}

	lattice, err := workflow.Get(kind)
	if err != nil {
		return nil, err
	}

	var entity model.Entity
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		entity, txErr = s.entityRepo.GetForUpdate(txCtx, kind, entityID)
		if txErr != nil {
			return txErr
		}

		current := entity.CurrentStatus()
		if kind == model.KindAllocation && current == model.AllocationLocked {
			return workflow.ErrAllocationLocked
		}

		var target string
		switch direction {
		case workflow.DirectionNext:
			target = lattice.Next(current)
		case workflow.DirectionBack:
			target = lattice.Prev(current)
		default:
			return fmt.Errorf("%w: unknown direction %q", workflow.ErrInvalidPayload, direction)
		}

		if target == current {
			return nil // boundary identity, nothing to do
		}
		if !lattice.CanTransition(current, target) {
			return workflow.ErrInvalidTransition
		}

		if txErr := s.entityRepo.SetStatus(txCtx, kind, entityID, target); txErr != nil {
			return txErr
		}
		entity.ApplyStatus(target)

		actorID := actor.ID
		return s.auditEntry(txCtx, &actorID, model.ActionNudgeStatus, entity, map[string]interface{}{
			"entity_kind": kind,
			"direction":   direction,
			"from":        current,
			"to":          target,
		})
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func (s *entityService) GetLattice(kind model.Kind) (LatticeResponse, error) {
	lattice, err := workflow.Get(kind)
	if err != nil {
		return LatticeResponse{}, err
	}
	return toLatticeResponse(lattice), nil
}

func (s *entityService) Lattices() []LatticeResponse {
	out := make([]LatticeResponse, 0, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		if lattice, err := workflow.Get(kind); err == nil {
			out = append(out, toLatticeResponse(lattice))
		}
	}
	return out
}

// --- Helpers ---

// scrub clears client-supplied identity and pins the initial status.
func scrub(entity model.Entity, initial string) {
	switch e := entity.(type) {
	case *model.PaymentRequest:
		e.ID = uuid.Nil
	case *model.DesignRequest:
		e.ID = uuid.Nil
	case *model.Drawing:
		e.ID = uuid.Nil
	case *model.Allocation:
		e.ID = uuid.Nil
	case *model.Tender:
		e.ID = uuid.Nil
	case *model.WorkPackage:
		e.ID = uuid.Nil
	case *model.Contract:
		e.ID = uuid.Nil
	case *model.Employee:
		e.ID = uuid.Nil
	}
	entity.ApplyStatus(initial)
}

func validateAllocation(alloc *model.Allocation) error {
	for _, item := range alloc.Items {
		if item.Percent < 0 || item.Percent > 100 {
			return workflow.ErrInvalidPercent
		}
	}
	return nil
}

func (s *entityService) auditEntry(ctx context.Context, userID *uuid.UUID, action string, entity model.Entity, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entity.EntityID().String(),
		EntityName: entity.DisplayName(),
		Details:    string(payload),
	}
	if err := s.auditRepo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toLatticeResponse(l *workflow.Lattice) LatticeResponse {
	module, _ := model.ModuleFor(l.Kind)
	var terminals []string
	for _, s := range l.Statuses() {
		if l.IsTerminal(s) {
			terminals = append(terminals, s)
		}
	}
	return LatticeResponse{
		Kind:        string(l.Kind),
		Module:      string(module),
		Statuses:    l.Statuses(),
		Initial:     l.Initial(),
		Terminals:   terminals,
		Branches:    l.Branches,
		SubmitJumps: l.SubmitJumps,
		Approvable:  l.Approvable,
	}
}
