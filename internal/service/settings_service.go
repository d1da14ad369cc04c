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

// SettingsService owns the versioned configuration blob: the role registry,
// the role x module permission matrix and the approval flow definitions.
// Every write path validates the whole snapshot first, then swaps it in one
// transaction, so no caller ever observes a half-updated configuration.
type SettingsService interface {
	Export(ctx context.Context) (model.SettingsSnapshot, error)
	Import(ctx context.Context, snapshot model.SettingsSnapshot, actor Actor) error
	Reset(ctx context.Context, actor Actor) error
	GetFlows(ctx context.Context) ([]model.ApprovalFlow, error)
	ReplaceFlows(ctx context.Context, flows []model.FlowConfig, actor Actor) error
	ReplacePermissions(ctx context.Context, roles []model.RoleConfig, matrix []model.ModulePermissionSet, actor Actor) error
}

type settingsService struct {
	txManager   repository.TransactionManager
	permRepo    repository.PermissionRepository
	flowRepo    repository.FlowRepository
	auditRepo   repository.AuditRepository
	permissions PermissionService
	log         zerolog.Logger
}

func NewSettingsService(
	txManager repository.TransactionManager,
	permRepo repository.PermissionRepository,
	flowRepo repository.FlowRepository,
	auditRepo repository.AuditRepository,
	permissions PermissionService,
	log zerolog.Logger,
) SettingsService {
	return &settingsService{
		txManager:   txManager,
		permRepo:    permRepo,
		flowRepo:    flowRepo,
		auditRepo:   auditRepo,
		permissions: permissions,
		log:         log,
	}
}

// --- Implementation ---

func (s *settingsService) Export(ctx context.Context) (model.SettingsSnapshot, error) {
	roles, err := s.permRepo.ListRoles(ctx)
	if err != nil {
		return model.SettingsSnapshot{}, fmt.Errorf("failed to fetch roles: %w", err)
	}
	matrix, err := s.permRepo.ListMatrix(ctx)
	if err != nil {
		return model.SettingsSnapshot{}, fmt.Errorf("failed to fetch permission matrix: %w", err)
	}
	flows, err := s.flowRepo.List(ctx)
	if err != nil {
		return model.SettingsSnapshot{}, fmt.Errorf("failed to fetch approval flows: %w", err)
	}

	snapshot := model.SettingsSnapshot{Version: model.SettingsSnapshotVersion}
	for _, r := range roles {
		snapshot.Roles = append(snapshot.Roles, model.RoleConfig{
			Name:        r.Name,
			Description: r.Description,
			IsSystem:    r.IsSystem,
		})
	}
	for _, p := range matrix {
		snapshot.Permissions = append(snapshot.Permissions, model.ModulePermissionSet{
			Role:    p.Role,
			Module:  p.Module,
			Read:    p.Read,
			Create:  p.Create,
			Update:  p.Update,
			Approve: p.Approve,
			Export:  p.Export,
		})
	}
	for _, f := range flows {
		fc := model.FlowConfig{Module: f.Module, Name: f.Name, IsEnabled: f.IsEnabled}
		for _, step := range f.Steps {
			fc.Steps = append(fc.Steps, model.FlowStepConfig{
				Title:        step.Title,
				ApproverRole: step.ApproverRole,
				SLAHours:     step.SLAHours,
			})
		}
		snapshot.Flows = append(snapshot.Flows, fc)
	}

	return snapshot, nil
}

// Import validates the snapshot and swaps the whole configuration atomically.
func (s *settingsService) Import(ctx context.Context, snapshot model.SettingsSnapshot, actor Actor) error {
	if err := ValidateSnapshot(snapshot); err != nil {
		return err
	}

	roles, matrix := snapshotPermissionRows(snapshot)
	flows := snapshotFlowRows(snapshot)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.permRepo.ReplaceAll(txCtx, roles, matrix); txErr != nil {
			return fmt.Errorf("failed to replace permission matrix: %w", txErr)
		}
		if txErr := s.flowRepo.ReplaceAll(txCtx, flows); txErr != nil {
			return fmt.Errorf("failed to replace approval flows: %w", txErr)
		}
		return s.audit(txCtx, actor, model.ActionImportSettings, map[string]interface{}{
			"roles":       len(roles),
			"permissions": len(matrix),
			"flows":       len(flows),
		})
	})
	if err != nil {
		return err
	}

	s.permissions.ClearCache()
	s.log.Info().Int("roles", len(roles)).Int("flows", len(flows)).Msg("settings snapshot imported")
	return nil
}

// Reset restores the seeded default configuration.
func (s *settingsService) Reset(ctx context.Context, actor Actor) error {
	snapshot := DefaultSnapshot()

	roles, matrix := snapshotPermissionRows(snapshot)
	flows := snapshotFlowRows(snapshot)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.permRepo.ReplaceAll(txCtx, roles, matrix); txErr != nil {
			return fmt.Errorf("failed to reset permission matrix: %w", txErr)
		}
		if txErr := s.flowRepo.ReplaceAll(txCtx, flows); txErr != nil {
			return fmt.Errorf("failed to reset approval flows: %w", txErr)
		}
		return s.audit(txCtx, actor, model.ActionResetSettings, nil)
	})
	if err != nil {
		return err
	}

	s.permissions.ClearCache()
	return nil
}

func (s *settingsService) GetFlows(ctx context.Context) ([]model.ApprovalFlow, error) {
	return s.flowRepo.List(ctx)
}

func (s *settingsService) ReplaceFlows(ctx context.Context, configs []model.FlowConfig, actor Actor) error {
	roles, err := s.permRepo.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch roles: %w", err)
	}
	known := roleSet(roles)
	for _, fc := range configs {
		if err := validateFlowConfig(fc, known); err != nil {
			return err
		}
	}

	flows := flowRows(configs)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.flowRepo.ReplaceAll(txCtx, flows); txErr != nil {
			return fmt.Errorf("failed to replace approval flows: %w", txErr)
		}
		return s.audit(txCtx, actor, model.ActionReplaceFlows, map[string]interface{}{"flows": len(flows)})
	})
	if err != nil {
		return err
	}

	s.log.Info().Int("flows", len(flows)).Msg("approval flows replaced")
	return nil
}

func (s *settingsService) ReplacePermissions(ctx context.Context, roleConfigs []model.RoleConfig, matrixConfigs []model.ModulePermissionSet, actor Actor) error {
	if err := validatePermissionConfig(roleConfigs, matrixConfigs); err != nil {
		return err
	}

	// Flow steps must keep referencing roles that exist after the swap.
	flows, err := s.flowRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch approval flows: %w", err)
	}
	known := make(map[string]bool, len(roleConfigs)+1)
	known[model.AdminRole] = true
	for _, r := range roleConfigs {
		known[r.Name] = true
	}
	for _, f := range flows {
		for _, step := range f.Steps {
			if !known[step.ApproverRole] {
				return fmt.Errorf("%w: flow step for module %s references removed role %q",
					workflow.ErrInvalidConfig, f.Module, step.ApproverRole)
			}
		}
	}

	roles, matrix := permissionRows(roleConfigs, matrixConfigs)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.permRepo.ReplaceAll(txCtx, roles, matrix); txErr != nil {
			return fmt.Errorf("failed to replace permission matrix: %w", txErr)
		}
		return s.audit(txCtx, actor, model.ActionReplacePermissions, map[string]interface{}{
			"roles":       len(roles),
			"permissions": len(matrix),
		})
	})
	if err != nil {
		return err
	}

	s.permissions.ClearCache()
	return nil
}

// --- Validation ---

// ValidateSnapshot rejects malformed or referentially broken blobs before any
// write: wrong version, unknown modules, matrix rows or flow steps naming
// roles absent from the snapshot's own role list.
func ValidateSnapshot(snapshot model.SettingsSnapshot) error {
	if snapshot.Version != model.SettingsSnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", workflow.ErrInvalidConfig, snapshot.Version)
	}
	if err := validatePermissionConfig(snapshot.Roles, snapshot.Permissions); err != nil {
		return err
	}

	known := make(map[string]bool, len(snapshot.Roles)+1)
	known[model.AdminRole] = true
	for _, r := range snapshot.Roles {
		known[r.Name] = true
	}
	seenModules := make(map[model.Module]bool)
	for _, fc := range snapshot.Flows {
		if seenModules[fc.Module] {
			return fmt.Errorf("%w: duplicate flow for module %s", workflow.ErrInvalidConfig, fc.Module)
		}
		seenModules[fc.Module] = true
		if err := validateFlowConfig(fc, known); err != nil {
			return err
		}
	}
	return nil
}

func validatePermissionConfig(roles []model.RoleConfig, matrix []model.ModulePermissionSet) error {
	known := make(map[string]bool, len(roles)+1)
	known[model.AdminRole] = true
	for _, r := range roles {
		if r.Name == "" {
			return fmt.Errorf("%w: role with empty name", workflow.ErrInvalidConfig)
		}
		if known[r.Name] && r.Name != model.AdminRole {
			return fmt.Errorf("%w: duplicate role %q", workflow.ErrInvalidConfig, r.Name)
		}
		known[r.Name] = true
	}

	validModules := make(map[model.Module]bool)
	for _, m := range model.Modules() {
		validModules[m] = true
	}

	seen := make(map[string]bool, len(matrix))
	for _, p := range matrix {
		if !known[p.Role] {
			return fmt.Errorf("%w: matrix row references unknown role %q", workflow.ErrInvalidConfig, p.Role)
		}
		if !validModules[p.Module] {
			return fmt.Errorf("%w: matrix row references unknown module %q", workflow.ErrInvalidConfig, p.Module)
		}
		key := p.Role + "|" + string(p.Module)
		if seen[key] {
			return fmt.Errorf("%w: duplicate matrix row for %s/%s", workflow.ErrInvalidConfig, p.Role, p.Module)
		}
		seen[key] = true
	}
	return nil
}

func validateFlowConfig(fc model.FlowConfig, knownRoles map[string]bool) error {
	if _, ok := moduleKnown(fc.Module); !ok {
		return fmt.Errorf("%w: flow references unknown module %q", workflow.ErrInvalidConfig, fc.Module)
	}
	if fc.IsEnabled && len(fc.Steps) == 0 {
		return fmt.Errorf("%w: enabled flow for module %s has no steps", workflow.ErrInvalidConfig, fc.Module)
	}
	for _, step := range fc.Steps {
		if step.ApproverRole == "" || !knownRoles[step.ApproverRole] {
			return fmt.Errorf("%w: flow step %q references unknown role %q",
				workflow.ErrInvalidConfig, step.Title, step.ApproverRole)
		}
		if step.SLAHours < 0 {
			return fmt.Errorf("%w: flow step %q has negative SLA", workflow.ErrInvalidConfig, step.Title)
		}
	}
	return nil
}

func moduleKnown(m model.Module) (model.Module, bool) {
	for _, known := range model.Modules() {
		if known == m {
			return m, true
		}
	}
	return m, false
}

// --- Row builders ---

func snapshotPermissionRows(snapshot model.SettingsSnapshot) ([]model.Role, []model.RoleModulePermission) {
	return permissionRows(snapshot.Roles, snapshot.Permissions)
}

func permissionRows(roleConfigs []model.RoleConfig, matrixConfigs []model.ModulePermissionSet) ([]model.Role, []model.RoleModulePermission) {
	roles := make([]model.Role, 0, len(roleConfigs))
	for _, r := range roleConfigs {
		roles = append(roles, model.Role{
			Name:        r.Name,
			Description: r.Description,
			IsSystem:    r.IsSystem,
		})
	}
	matrix := make([]model.RoleModulePermission, 0, len(matrixConfigs))
	for _, p := range matrixConfigs {
		matrix = append(matrix, model.RoleModulePermission{
			Role:    p.Role,
			Module:  p.Module,
			Read:    p.Read,
			Create:  p.Create,
			Update:  p.Update,
			Approve: p.Approve,
			Export:  p.Export,
		})
	}
	return roles, matrix
}

func snapshotFlowRows(snapshot model.SettingsSnapshot) []model.ApprovalFlow {
	return flowRows(snapshot.Flows)
}

func flowRows(configs []model.FlowConfig) []model.ApprovalFlow {
	flows := make([]model.ApprovalFlow, 0, len(configs))
	for _, fc := range configs {
		flow := model.ApprovalFlow{
			Module:    fc.Module,
			Name:      fc.Name,
			IsEnabled: fc.IsEnabled,
		}
		for i, sc := range fc.Steps {
			flow.Steps = append(flow.Steps, model.ApprovalStep{
				StepOrder:    i,
				Title:        sc.Title,
				ApproverRole: sc.ApproverRole,
				SLAHours:     sc.SLAHours,
			})
		}
		flows = append(flows, flow)
	}
	return flows
}

func roleSet(roles []model.Role) map[string]bool {
	out := make(map[string]bool, len(roles)+1)
	out[model.AdminRole] = true
	for _, r := range roles {
		out[r.Name] = true
	}
	return out
}

func (s *settingsService) audit(ctx context.Context, actor Actor, action string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	actorID := actor.ID
	var userID *uuid.UUID
	if actorID != uuid.Nil {
		userID = &actorID
	}
	entry := model.AuditLog{
		UserID:  userID,
		Action:  action,
		Details: string(payload),
	}
	if err := s.auditRepo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// DefaultSnapshot is the factory configuration: one role per department plus
// a read-only staff role, a matrix granting each department role full control
// of its own module, and a two-step finance flow shipped disabled.
func DefaultSnapshot() model.SettingsSnapshot {
	fullControl := func(role string, module model.Module) model.ModulePermissionSet {
		return model.ModulePermissionSet{
			Role: role, Module: module,
			Read: true, Create: true, Update: true, Approve: true, Export: true,
		}
	}
	readOnly := func(role string, module model.Module) model.ModulePermissionSet {
		return model.ModulePermissionSet{Role: role, Module: module, Read: true}
	}

	snapshot := model.SettingsSnapshot{
		Version: model.SettingsSnapshotVersion,
		Roles: []model.RoleConfig{
			{Name: model.AdminRole, Description: "System administrator", IsSystem: true},
			{Name: "finance_manager", Description: "Finance department manager", IsSystem: true},
			{Name: "finance_director", Description: "Finance director", IsSystem: true},
			{Name: "chief_engineer", Description: "Engineering lead", IsSystem: true},
			{Name: "hr_manager", Description: "HR department manager", IsSystem: true},
			{Name: "legal_lead", Description: "Legal and bidding lead", IsSystem: true},
			{Name: "site_manager", Description: "Construction site manager", IsSystem: true},
			{Name: "staff", Description: "General staff, read-only", IsSystem: true},
		},
		Permissions: []model.ModulePermissionSet{
			fullControl("finance_manager", model.ModuleFinance),
			fullControl("finance_director", model.ModuleFinance),
			fullControl("chief_engineer", model.ModuleEngineering),
			fullControl("hr_manager", model.ModuleHR),
			fullControl("legal_lead", model.ModuleLegal),
			fullControl("site_manager", model.ModuleConstruction),
			readOnly("staff", model.ModuleFinance),
			readOnly("staff", model.ModuleEngineering),
			readOnly("staff", model.ModuleHR),
			readOnly("staff", model.ModuleLegal),
			readOnly("staff", model.ModuleConstruction),
		},
		Flows: []model.FlowConfig{
			{
				Module:    model.ModuleFinance,
				Name:      "Payment sign-off",
				IsEnabled: false,
				Steps: []model.FlowStepConfig{
					{Title: "Manager review", ApproverRole: "finance_manager", SLAHours: 24},
					{Title: "Director sign-off", ApproverRole: "finance_director", SLAHours: 48},
				},
			},
		},
	}
	return snapshot
}
