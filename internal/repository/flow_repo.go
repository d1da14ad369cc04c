package repository

import (
	"context"
	"errors"

	"erp-backend/internal/model"

	"gorm.io/gorm"
)

// FlowRepository owns the per-module approval flow definitions.
type FlowRepository interface {
	// FindByModule returns the flow for a module with steps ordered, or nil
	// when the module has no flow configured.
	FindByModule(ctx context.Context, module model.Module) (*model.ApprovalFlow, error)
	List(ctx context.Context) ([]model.ApprovalFlow, error)
	ReplaceAll(ctx context.Context, flows []model.ApprovalFlow) error
}

type flowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) FlowRepository {
	return &flowRepository{db: db}
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("approval_steps.step_order ASC")
}

func (r *flowRepository) FindByModule(ctx context.Context, module model.Module) (*model.ApprovalFlow, error) {
	var flow model.ApprovalFlow
	err := GetDB(ctx, r.db).
		Preload("Steps", orderedSteps).
		Where("module = ?", module).
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flow, nil
}

func (r *flowRepository) List(ctx context.Context) ([]model.ApprovalFlow, error) {
	var flows []model.ApprovalFlow
	err := GetDB(ctx, r.db).
		Preload("Steps", orderedSteps).
		Order("module ASC").
		Find(&flows).Error
	if err != nil {
		return nil, err
	}
	return flows, nil
}

func (r *flowRepository) ReplaceAll(ctx context.Context, flows []model.ApprovalFlow) error {
	db := GetDB(ctx, r.db)

	if err := db.Where("1 = 1").Delete(&model.ApprovalStep{}).Error; err != nil {
		return err
	}
	if err := db.Where("1 = 1").Delete(&model.ApprovalFlow{}).Error; err != nil {
		return err
	}
	if len(flows) > 0 {
		if err := db.Create(&flows).Error; err != nil {
			return err
		}
	}
	return nil
}
