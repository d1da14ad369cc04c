package database

import (
	"erp-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.RoleModulePermission{},
		&model.ApprovalFlow{},
		&model.ApprovalStep{},
		&model.ApprovalRequest{},
		&model.AuditLog{},
		&model.PaymentRequest{},
		&model.DesignRequest{},
		&model.Drawing{},
		&model.Allocation{},
		&model.AllocationItem{},
		&model.Tender{},
		&model.WorkPackage{},
		&model.Contract{},
		&model.Employee{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
