package model

// SettingsSnapshotVersion is the current export blob schema version. Imports
// of other versions are rejected before any write.
const SettingsSnapshotVersion = 1

// SettingsSnapshot is the versioned configuration blob exported from and
// imported into the admin settings surface. The whole snapshot is swapped
// atomically; it is never merged field by field.
type SettingsSnapshot struct {
	Version     int                   `json:"version" binding:"required"`
	Roles       []RoleConfig          `json:"roles"`
	Permissions []ModulePermissionSet `json:"permissions"`
	Flows       []FlowConfig          `json:"flows"`
}

// RoleConfig is a role entry in the snapshot.
type RoleConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsSystem    bool   `json:"is_system"`
}

// ModulePermissionSet is one row of the matrix in snapshot form.
type ModulePermissionSet struct {
	Role    string `json:"role"`
	Module  Module `json:"module"`
	Read    bool   `json:"read"`
	Create  bool   `json:"create"`
	Update  bool   `json:"update"`
	Approve bool   `json:"approve"`
	Export  bool   `json:"export"`
}

// FlowConfig is an approval flow entry in the snapshot.
type FlowConfig struct {
	Module    Module           `json:"module"`
	Name      string           `json:"name"`
	IsEnabled bool             `json:"is_enabled"`
	Steps     []FlowStepConfig `json:"steps"`
}

// FlowStepConfig is one ordered step of a flow in snapshot form.
type FlowStepConfig struct {
	Title        string `json:"title"`
	ApproverRole string `json:"approver_role"`
	SLAHours     int    `json:"sla_hours"`
}
