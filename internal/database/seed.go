package database

import (
	"context"
	"os"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed installs the default configuration and the bootstrap admin account on
// an empty database. Existing data is left untouched.
func Seed(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	permRepo := repository.NewPermissionRepository(db)
	flowRepo := repository.NewFlowRepository(db)
	userRepo := repository.NewUserRepository(db)
	txManager := repository.NewTransactionManager(db)

	roleCount, err := permRepo.CountRoles(ctx)
	if err != nil {
		return err
	}
	if roleCount == 0 {
		snapshot := service.DefaultSnapshot()
		var roles []model.Role
		var matrix []model.RoleModulePermission
		for _, r := range snapshot.Roles {
			roles = append(roles, model.Role{Name: r.Name, Description: r.Description, IsSystem: r.IsSystem})
		}
		for _, p := range snapshot.Permissions {
			matrix = append(matrix, model.RoleModulePermission{
				Role: p.Role, Module: p.Module,
				Read: p.Read, Create: p.Create, Update: p.Update, Approve: p.Approve, Export: p.Export,
			})
		}
		var flows []model.ApprovalFlow
		for _, fc := range snapshot.Flows {
			flow := model.ApprovalFlow{Module: fc.Module, Name: fc.Name, IsEnabled: fc.IsEnabled}
			for i, sc := range fc.Steps {
				flow.Steps = append(flow.Steps, model.ApprovalStep{
					StepOrder: i, Title: sc.Title, ApproverRole: sc.ApproverRole, SLAHours: sc.SLAHours,
				})
			}
			flows = append(flows, flow)
		}

		err = txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if txErr := permRepo.ReplaceAll(txCtx, roles, matrix); txErr != nil {
				return txErr
			}
			return flowRepo.ReplaceAll(txCtx, flows)
		})
		if err != nil {
			return err
		}
		log.Info().Int("roles", len(roles)).Int("flows", len(flows)).Msg("seeded default configuration")
	}

	userCount, err := userRepo.Count(ctx)
	if err != nil {
		return err
	}
	if userCount == 0 {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := &model.User{
			Username: "admin",
			Email:    "admin@example.com",
			Password: string(hashed),
			Role:     model.AdminRole,
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			return err
		}
		log.Info().Str("email", admin.Email).Msg("seeded bootstrap admin user")
	}

	return nil
}
