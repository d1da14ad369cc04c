package service

import (
	"context"
	"errors"
	"testing"

	"erp-backend/internal/model"
	"erp-backend/internal/workflow"

	"github.com/rs/zerolog"
)

func newSettingsFixture(t *testing.T) (SettingsService, PermissionService, *fakePermRepo, *fakeFlowRepo, *fakeAuditRepo) {
	t.Helper()
	permRepo := &fakePermRepo{}
	flowRepo := newFakeFlowRepo()
	audit := &fakeAuditRepo{}
	permissions := NewPermissionService(permRepo, zerolog.Nop())
	svc := NewSettingsService(&fakeTxManager{}, permRepo, flowRepo, audit, permissions, zerolog.Nop())
	return svc, permissions, permRepo, flowRepo, audit
}

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.SettingsSnapshot)
		wantErr bool
	}{
		{"default snapshot is valid", func(*model.SettingsSnapshot) {}, false},
		{"wrong version", func(s *model.SettingsSnapshot) { s.Version = 2 }, true},
		{"matrix row with unknown role", func(s *model.SettingsSnapshot) {
			s.Permissions = append(s.Permissions, model.ModulePermissionSet{Role: "intern", Module: model.ModuleFinance, Read: true})
		}, true},
		{"matrix row with unknown module", func(s *model.SettingsSnapshot) {
			s.Permissions = append(s.Permissions, model.ModulePermissionSet{Role: "staff", Module: "warehouse", Read: true})
		}, true},
		{"duplicate matrix row", func(s *model.SettingsSnapshot) {
			s.Permissions = append(s.Permissions, s.Permissions[0])
		}, true},
		{"duplicate role", func(s *model.SettingsSnapshot) {
			s.Roles = append(s.Roles, s.Roles[1])
		}, true},
		{"flow step with unknown role", func(s *model.SettingsSnapshot) {
			s.Flows[0].Steps[0].ApproverRole = "ghost"
		}, true},
		{"flow for unknown module", func(s *model.SettingsSnapshot) {
			s.Flows[0].Module = "warehouse"
		}, true},
		{"enabled flow without steps", func(s *model.SettingsSnapshot) {
			s.Flows[0].IsEnabled = true
			s.Flows[0].Steps = nil
		}, true},
		{"negative SLA", func(s *model.SettingsSnapshot) {
			s.Flows[0].Steps[0].SLAHours = -1
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := DefaultSnapshot()
			tt.mutate(&snapshot)
			err := ValidateSnapshot(snapshot)
			if tt.wantErr && !errors.Is(err, workflow.ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	svc, _, _, _, audit := newSettingsFixture(t)
	ctx := context.Background()

	snapshot := DefaultSnapshot()
	if err := svc.Import(ctx, snapshot, Actor{Role: model.AdminRole}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	exported, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if exported.Version != model.SettingsSnapshotVersion {
		t.Errorf("version = %d", exported.Version)
	}
	if len(exported.Roles) != len(snapshot.Roles) {
		t.Errorf("roles = %d, want %d", len(exported.Roles), len(snapshot.Roles))
	}
	if len(exported.Permissions) != len(snapshot.Permissions) {
		t.Errorf("permissions = %d, want %d", len(exported.Permissions), len(snapshot.Permissions))
	}
	if len(exported.Flows) != len(snapshot.Flows) {
		t.Errorf("flows = %d, want %d", len(exported.Flows), len(snapshot.Flows))
	}

	if got := audit.actions(); len(got) != 1 || got[0] != model.ActionImportSettings {
		t.Errorf("audit actions = %v", got)
	}
}

func TestImportRejectsInvalidSnapshotWithoutWriting(t *testing.T) {
	svc, _, permRepo, _, _ := newSettingsFixture(t)

	bad := DefaultSnapshot()
	bad.Version = 99
	if err := svc.Import(context.Background(), bad, Actor{Role: model.AdminRole}); !errors.Is(err, workflow.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
	if count, _ := permRepo.CountRoles(context.Background()); count != 0 {
		t.Errorf("roles written despite invalid snapshot: %d", count)
	}
}

func TestImportClearsPermissionCache(t *testing.T) {
	svc, permissions, _, _, _ := newSettingsFixture(t)
	ctx := context.Background()

	if err := svc.Reset(ctx, Actor{Role: model.AdminRole}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// Warm the cache with the seeded grant.
	allowed, err := permissions.CanAct(ctx, "finance_manager", model.ModuleFinance, model.PermApprove)
	if err != nil || !allowed {
		t.Fatalf("seeded grant missing: allowed=%v err=%v", allowed, err)
	}

	// Revoke everything; the swap must not leave the stale grant cached.
	revoked := DefaultSnapshot()
	revoked.Permissions = nil
	revoked.Flows = nil
	if err := svc.Import(ctx, revoked, Actor{Role: model.AdminRole}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	allowed, err = permissions.CanAct(ctx, "finance_manager", model.ModuleFinance, model.PermApprove)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if allowed {
		t.Error("stale grant survived the configuration swap")
	}
}

func TestReplacePermissionsKeepsFlowRolesConsistent(t *testing.T) {
	svc, _, _, _, _ := newSettingsFixture(t)
	ctx := context.Background()

	if err := svc.Reset(ctx, Actor{Role: model.AdminRole}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// Dropping finance_manager would orphan the seeded finance flow step.
	var kept []model.RoleConfig
	for _, r := range DefaultSnapshot().Roles {
		if r.Name != "finance_manager" {
			kept = append(kept, r)
		}
	}
	err := svc.ReplacePermissions(ctx, kept, nil, Actor{Role: model.AdminRole})
	if !errors.Is(err, workflow.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig for orphaned flow step", err)
	}
}

func TestReplaceFlowsValidatesRoles(t *testing.T) {
	svc, _, _, flowRepo, _ := newSettingsFixture(t)
	ctx := context.Background()

	if err := svc.Reset(ctx, Actor{Role: model.AdminRole}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	err := svc.ReplaceFlows(ctx, []model.FlowConfig{{
		Module:    model.ModuleLegal,
		Name:      "Contract sign-off",
		IsEnabled: true,
		Steps:     []model.FlowStepConfig{{Title: "Review", ApproverRole: "ghost", SLAHours: 8}},
	}}, Actor{Role: model.AdminRole})
	if !errors.Is(err, workflow.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig for unknown approver role", err)
	}

	err = svc.ReplaceFlows(ctx, []model.FlowConfig{{
		Module:    model.ModuleLegal,
		Name:      "Contract sign-off",
		IsEnabled: true,
		Steps:     []model.FlowStepConfig{{Title: "Review", ApproverRole: "legal_lead", SLAHours: 8}},
	}}, Actor{Role: model.AdminRole})
	if err != nil {
		t.Fatalf("replace flows failed: %v", err)
	}

	flow, _ := flowRepo.FindByModule(ctx, model.ModuleLegal)
	if flow == nil || len(flow.Steps) != 1 || flow.Steps[0].StepOrder != 0 {
		t.Errorf("flow not stored with ordered steps: %+v", flow)
	}
}
