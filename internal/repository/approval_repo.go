package repository

import (
	"context"
	"errors"
	"strings"

	"erp-backend/internal/model"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModuleStep pins one step of a module's flow; the assignee filter matches
// rows whose cursor sits on it.
type ModuleStep struct {
	Module model.Module
	Step   int
}

// InboxFilter narrows the pending-approval listing for the read-side inbox.
type InboxFilter struct {
	Status      string // pending, approved, rejected or empty for all
	Kind        model.Kind
	Module      model.Module
	RequestedBy *uuid.UUID

	// AssigneeSteps and AssigneeModules restrict the listing to rows a role
	// must act on: (module, current_step) pairs on flow-routed modules, whole
	// modules on the single-approval path.
	AssigneeSteps   []ModuleStep
	AssigneeModules []model.Module

	Page  int
	Limit int
}

// ApprovalRepository owns the append-only approval ledger rows.
type ApprovalRepository interface {
	Create(ctx context.Context, req *model.ApprovalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	// FindByIDForUpdate loads the row FOR UPDATE inside a transaction context.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	// FindPending returns the pending request for an entity, or nil when none exists.
	FindPending(ctx context.Context, kind model.Kind, entityID uuid.UUID) (*model.ApprovalRequest, error)
	List(ctx context.Context, filter InboxFilter) ([]model.ApprovalRequest, int64, error)
	Update(ctx context.Context, req *model.ApprovalRequest) error
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, req *model.ApprovalRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *approvalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrUnknownApproval
		}
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrUnknownApproval
		}
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Decider").
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrUnknownApproval
		}
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) FindPending(ctx context.Context, kind model.Kind, entityID uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := GetDB(ctx, r.db).
		Where("entity_kind = ? AND entity_id = ? AND status = ?", kind, entityID, model.ApprovalPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) List(ctx context.Context, filter InboxFilter) ([]model.ApprovalRequest, int64, error) {
	db := GetDB(ctx, r.db)

	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Kind != "" {
			q = q.Where("entity_kind = ?", filter.Kind)
		}
		if filter.Module != "" {
			q = q.Where("module = ?", filter.Module)
		}
		if filter.RequestedBy != nil {
			q = q.Where("requested_by = ?", *filter.RequestedBy)
		}
		if len(filter.AssigneeSteps) > 0 || len(filter.AssigneeModules) > 0 {
			var conds []string
			var args []interface{}
			for _, t := range filter.AssigneeSteps {
				conds = append(conds, "(module = ? AND current_step = ?)")
				args = append(args, t.Module, t.Step)
			}
			if len(filter.AssigneeModules) > 0 {
				conds = append(conds, "module IN ?")
				args = append(args, filter.AssigneeModules)
			}
			q = q.Where(strings.Join(conds, " OR "), args...)
		}
		return q
	}

	var total int64
	if err := applyFilter(db.Model(&model.ApprovalRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var requests []model.ApprovalRequest
	err := applyFilter(db.Preload("Requester").Preload("Decider")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *approvalRepository) Update(ctx context.Context, req *model.ApprovalRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}
