package repository

import (
	"context"

	"erp-backend/internal/model"

	"gorm.io/gorm"
)

// PermissionRepository owns the role registry and the role x module matrix.
// ReplaceAll swaps the whole configuration; callers wrap it in a transaction
// so no reader ever observes a half-updated matrix.
type PermissionRepository interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListMatrix(ctx context.Context) ([]model.RoleModulePermission, error)
	FindRoleModule(ctx context.Context, role string, module model.Module) (*model.RoleModulePermission, error)
	ReplaceAll(ctx context.Context, roles []model.Role, matrix []model.RoleModulePermission) error
	CountRoles(ctx context.Context) (int64, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *permissionRepository) ListMatrix(ctx context.Context) ([]model.RoleModulePermission, error) {
	var matrix []model.RoleModulePermission
	if err := GetDB(ctx, r.db).Order("role ASC, module ASC").Find(&matrix).Error; err != nil {
		return nil, err
	}
	return matrix, nil
}

func (r *permissionRepository) FindRoleModule(ctx context.Context, role string, module model.Module) (*model.RoleModulePermission, error) {
	var perm model.RoleModulePermission
	err := GetDB(ctx, r.db).
		Where("role = ? AND module = ?", role, module).
		First(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) ReplaceAll(ctx context.Context, roles []model.Role, matrix []model.RoleModulePermission) error {
	db := GetDB(ctx, r.db)

	if err := db.Where("1 = 1").Delete(&model.RoleModulePermission{}).Error; err != nil {
		return err
	}
	if err := db.Where("1 = 1").Delete(&model.Role{}).Error; err != nil {
		return err
	}
	if len(roles) > 0 {
		if err := db.Create(&roles).Error; err != nil {
			return err
		}
	}
	if len(matrix) > 0 {
		if err := db.Create(&matrix).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *permissionRepository) CountRoles(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Role{}).Count(&count).Error
	return count, err
}
