package repository

import (
	"context"
	"errors"

	"erp-backend/internal/model"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityRepository is the kind-dispatched store for every lattice-governed
// business record. Status is written only through SetStatus; the service layer
// keeps that path restricted to the adjacency-checked nudge and the approval
// executor.
type EntityRepository interface {
	Get(ctx context.Context, kind model.Kind, id uuid.UUID) (model.Entity, error)
	// GetForUpdate loads the entity row FOR UPDATE. Callers must hold a
	// transaction context from TransactionManager.
	GetForUpdate(ctx context.Context, kind model.Kind, id uuid.UUID) (model.Entity, error)
	List(ctx context.Context, kind model.Kind, page, limit int) ([]model.Entity, int64, error)
	Create(ctx context.Context, entity model.Entity) error
	Update(ctx context.Context, entity model.Entity) error
	SetStatus(ctx context.Context, kind model.Kind, id uuid.UUID, status string) error
}

type entityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &entityRepository{db: db}
}

// NewEntity returns an empty concrete record for a kind.
func NewEntity(kind model.Kind) (model.Entity, error) {
	switch kind {
	case model.KindPaymentRequest:
		return &model.PaymentRequest{}, nil
	case model.KindDesignRequest:
		return &model.DesignRequest{}, nil
	case model.KindDrawing:
		return &model.Drawing{}, nil
	case model.KindAllocation:
		return &model.Allocation{}, nil
	case model.KindTender:
		return &model.Tender{}, nil
	case model.KindWorkPackage:
		return &model.WorkPackage{}, nil
	case model.KindContract:
		return &model.Contract{}, nil
	case model.KindEmployee:
		return &model.Employee{}, nil
	default:
		return nil, workflow.ErrUnknownKind
	}
}

func (r *entityRepository) find(ctx context.Context, kind model.Kind, id uuid.UUID, lock bool) (model.Entity, error) {
	entity, err := NewEntity(kind)
	if err != nil {
		return nil, err
	}

	query := GetDB(ctx, r.db)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if kind == model.KindAllocation {
		query = query.Preload("Items")
	}

	if err := query.First(entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrUnknownEntity
		}
		return nil, err
	}
	return entity, nil
}

func (r *entityRepository) Get(ctx context.Context, kind model.Kind, id uuid.UUID) (model.Entity, error) {
	return r.find(ctx, kind, id, false)
}

func (r *entityRepository) GetForUpdate(ctx context.Context, kind model.Kind, id uuid.UUID) (model.Entity, error) {
	return r.find(ctx, kind, id, true)
}

func (r *entityRepository) List(ctx context.Context, kind model.Kind, page, limit int) ([]model.Entity, int64, error) {
	blank, err := NewEntity(kind)
	if err != nil {
		return nil, 0, err
	}

	db := GetDB(ctx, r.db)

	var total int64
	if err := db.Model(blank).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := db.Order("created_at DESC").Offset(offset).Limit(limit)
	if kind == model.KindAllocation {
		query = query.Preload("Items")
	}

	entities, err := fetchKind(query, kind)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

// fetchKind runs the query against the concrete slice type for the kind and
// widens the result to the Entity interface.
func fetchKind(query *gorm.DB, kind model.Kind) ([]model.Entity, error) {
	switch kind {
	case model.KindPaymentRequest:
		return widen[model.PaymentRequest](query, func(v *model.PaymentRequest) model.Entity { return v })
	case model.KindDesignRequest:
		return widen[model.DesignRequest](query, func(v *model.DesignRequest) model.Entity { return v })
	case model.KindDrawing:
		return widen[model.Drawing](query, func(v *model.Drawing) model.Entity { return v })
	case model.KindAllocation:
		return widen[model.Allocation](query, func(v *model.Allocation) model.Entity { return v })
	case model.KindTender:
		return widen[model.Tender](query, func(v *model.Tender) model.Entity { return v })
	case model.KindWorkPackage:
		return widen[model.WorkPackage](query, func(v *model.WorkPackage) model.Entity { return v })
	case model.KindContract:
		return widen[model.Contract](query, func(v *model.Contract) model.Entity { return v })
	case model.KindEmployee:
		return widen[model.Employee](query, func(v *model.Employee) model.Entity { return v })
	default:
		return nil, workflow.ErrUnknownKind
	}
}

func widen[T any](query *gorm.DB, asEntity func(*T) model.Entity) ([]model.Entity, error) {
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Entity, 0, len(rows))
	for i := range rows {
		out = append(out, asEntity(&rows[i]))
	}
	return out, nil
}

func (r *entityRepository) Create(ctx context.Context, entity model.Entity) error {
	return GetDB(ctx, r.db).Create(entity).Error
}

func (r *entityRepository) Update(ctx context.Context, entity model.Entity) error {
	return GetDB(ctx, r.db).Save(entity).Error
}

func (r *entityRepository) SetStatus(ctx context.Context, kind model.Kind, id uuid.UUID, status string) error {
	blank, err := NewEntity(kind)
	if err != nil {
		return err
	}

	res := GetDB(ctx, r.db).Model(blank).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrUnknownEntity
	}
	return nil
}
