package service

import (
	"context"
	"testing"

	"erp-backend/internal/model"

	"github.com/rs/zerolog"
)

func TestCanActMatrix(t *testing.T) {
	repo := &fakePermRepo{
		roles: []model.Role{{Name: "finance_manager"}, {Name: "staff"}},
		matrix: []model.RoleModulePermission{
			{Role: "finance_manager", Module: model.ModuleFinance, Read: true, Approve: true},
			{Role: "staff", Module: model.ModuleFinance, Read: true},
		},
	}
	svc := NewPermissionService(repo, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		role string
		perm string
		want bool
	}{
		{"granted approve", "finance_manager", model.PermApprove, true},
		{"granted read", "staff", model.PermRead, true},
		{"missing approve", "staff", model.PermApprove, false},
		{"no matrix row", "site_manager", model.PermRead, false},
		{"admin wildcard", model.AdminRole, model.PermExport, true},
		{"unknown permission kind", "finance_manager", "delete", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanAct(ctx, tt.role, model.ModuleFinance, tt.perm)
			if err != nil {
				t.Fatalf("CanAct failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanAct(%s, finance, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestCanActCachesUntilCleared(t *testing.T) {
	repo := &fakePermRepo{
		roles:  []model.Role{{Name: "staff"}},
		matrix: []model.RoleModulePermission{{Role: "staff", Module: model.ModuleHR, Read: true}},
	}
	svc := NewPermissionService(repo, zerolog.Nop())
	ctx := context.Background()

	if ok, _ := svc.CanAct(ctx, "staff", model.ModuleHR, model.PermRead); !ok {
		t.Fatal("expected read grant")
	}

	// Mutate the store behind the cache: the cached row still answers.
	repo.matrix = nil
	if ok, _ := svc.CanAct(ctx, "staff", model.ModuleHR, model.PermRead); !ok {
		t.Fatal("cached grant should survive a direct store mutation")
	}

	svc.ClearCache()
	if ok, _ := svc.CanAct(ctx, "staff", model.ModuleHR, model.PermRead); ok {
		t.Fatal("grant survived ClearCache")
	}
}

func TestRoleExists(t *testing.T) {
	repo := &fakePermRepo{roles: []model.Role{{Name: "legal_lead"}}}
	svc := NewPermissionService(repo, zerolog.Nop())
	ctx := context.Background()

	if ok, _ := svc.RoleExists(ctx, "legal_lead"); !ok {
		t.Error("existing role not found")
	}
	if ok, _ := svc.RoleExists(ctx, model.AdminRole); !ok {
		t.Error("admin must always exist")
	}
	if ok, _ := svc.RoleExists(ctx, "ghost"); ok {
		t.Error("unknown role reported as existing")
	}
}
