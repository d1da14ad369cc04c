package model

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole always passes every permission check.
const AdminRole = "admin"

// Role is a named actor role referenced by the permission matrix and by
// approval flow steps.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsSystem    bool      `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission kinds checkable against the matrix.
const (
	PermRead    = "read"
	PermCreate  = "create"
	PermUpdate  = "update"
	PermApprove = "approve"
	PermExport  = "export"
)

// RoleModulePermission is one row of the role x module permission matrix.
// The matrix is replaced as a whole on edit, never patched row by row.
type RoleModulePermission struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Role      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_module" json:"role"`
	Module    Module    `gorm:"type:varchar(30);not null;uniqueIndex:idx_role_module" json:"module"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	Create    bool      `gorm:"not null;default:false" json:"create"`
	Update    bool      `gorm:"not null;default:false" json:"update"`
	Approve   bool      `gorm:"not null;default:false" json:"approve"`
	Export    bool      `gorm:"not null;default:false" json:"export"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Allows reports whether the row grants the named permission.
func (p RoleModulePermission) Allows(perm string) bool {
	switch perm {
	case PermRead:
		return p.Read
	case PermCreate:
		return p.Create
	case PermUpdate:
		return p.Update
	case PermApprove:
		return p.Approve
	case PermExport:
		return p.Export
	default:
		return false
	}
}
