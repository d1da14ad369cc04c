package service

import (
	"context"
	"sync"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory stand-ins for the repository layer so the engine services can be
// exercised without a database. They preserve the contracts the services rely
// on: not-found sentinels, nil-when-none lookups, copy-on-read rows.

// fakeTxManager runs transaction bodies under a single lock, standing in for
// the FOR UPDATE row locks that serialize conflicting writers in Postgres.
type fakeTxManager struct {
	mu sync.Mutex
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

type fakeEntityRepo struct {
	mu       sync.Mutex
	entities map[uuid.UUID]model.Entity
}

func newFakeEntityRepo(entities ...model.Entity) *fakeEntityRepo {
	repo := &fakeEntityRepo{entities: make(map[uuid.UUID]model.Entity)}
	for _, e := range entities {
		repo.entities[e.EntityID()] = e
	}
	return repo
}

func (r *fakeEntityRepo) Get(_ context.Context, _ model.Kind, id uuid.UUID) (model.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, workflow.ErrUnknownEntity
	}
	return e, nil
}

func (r *fakeEntityRepo) GetForUpdate(ctx context.Context, kind model.Kind, id uuid.UUID) (model.Entity, error) {
	return r.Get(ctx, kind, id)
}

func (r *fakeEntityRepo) List(_ context.Context, kind model.Kind, _, _ int) ([]model.Entity, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Entity
	for _, e := range r.entities {
		if e.EntityKind() == kind {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEntityRepo) Create(_ context.Context, entity model.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.EntityID() == uuid.Nil {
		assignEntityID(entity, uuid.New())
	}
	r.entities[entity.EntityID()] = entity
	return nil
}

func (r *fakeEntityRepo) Update(_ context.Context, entity model.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[entity.EntityID()]; !ok {
		return workflow.ErrUnknownEntity
	}
	r.entities[entity.EntityID()] = entity
	return nil
}

func (r *fakeEntityRepo) SetStatus(_ context.Context, _ model.Kind, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return workflow.ErrUnknownEntity
	}
	e.ApplyStatus(status)
	return nil
}

func assignEntityID(entity model.Entity, id uuid.UUID) {
	switch e := entity.(type) {
	case *model.PaymentRequest:
		e.ID = id
	case *model.DesignRequest:
		e.ID = id
	case *model.Drawing:
		e.ID = id
	case *model.Allocation:
		e.ID = id
	case *model.Tender:
		e.ID = id
	case *model.WorkPackage:
		e.ID = id
	case *model.Contract:
		e.ID = id
	case *model.Employee:
		e.ID = id
	}
}

type fakeApprovalRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.ApprovalRequest
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{requests: make(map[uuid.UUID]model.ApprovalRequest)}
}

func (r *fakeApprovalRepo) Create(_ context.Context, req *model.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *fakeApprovalRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, workflow.ErrUnknownApproval
	}
	copied := req
	return &copied, nil
}

func (r *fakeApprovalRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeApprovalRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeApprovalRepo) FindPending(_ context.Context, kind model.Kind, entityID uuid.UUID) (*model.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.EntityKind == kind && req.EntityID == entityID && req.Status == model.ApprovalPending {
			copied := req
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeApprovalRepo) List(_ context.Context, filter repository.InboxFilter) ([]model.ApprovalRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ApprovalRequest
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && req.EntityKind != filter.Kind {
			continue
		}
		if filter.Module != "" && req.Module != filter.Module {
			continue
		}
		if filter.RequestedBy != nil && (req.RequestedBy == nil || *req.RequestedBy != *filter.RequestedBy) {
			continue
		}
		if (len(filter.AssigneeSteps) > 0 || len(filter.AssigneeModules) > 0) && !matchesAssignee(req, filter) {
			continue
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func matchesAssignee(req model.ApprovalRequest, filter repository.InboxFilter) bool {
	for _, t := range filter.AssigneeSteps {
		if req.Module == t.Module && req.CurrentStep == t.Step {
			return true
		}
	}
	for _, m := range filter.AssigneeModules {
		if req.Module == m {
			return true
		}
	}
	return false
}

func (r *fakeApprovalRepo) Update(_ context.Context, req *model.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return workflow.ErrUnknownApproval
	}
	r.requests[req.ID] = *req
	return nil
}

type fakeFlowRepo struct {
	flows map[model.Module]model.ApprovalFlow
}

func newFakeFlowRepo(flows ...model.ApprovalFlow) *fakeFlowRepo {
	repo := &fakeFlowRepo{flows: make(map[model.Module]model.ApprovalFlow)}
	for _, f := range flows {
		repo.flows[f.Module] = f
	}
	return repo
}

func (r *fakeFlowRepo) FindByModule(_ context.Context, module model.Module) (*model.ApprovalFlow, error) {
	f, ok := r.flows[module]
	if !ok {
		return nil, nil
	}
	copied := f
	return &copied, nil
}

func (r *fakeFlowRepo) List(_ context.Context) ([]model.ApprovalFlow, error) {
	var out []model.ApprovalFlow
	for _, f := range r.flows {
		out = append(out, f)
	}
	return out, nil
}

func (r *fakeFlowRepo) ReplaceAll(_ context.Context, flows []model.ApprovalFlow) error {
	r.flows = make(map[model.Module]model.ApprovalFlow)
	for _, f := range flows {
		r.flows[f.Module] = f
	}
	return nil
}

type fakePermRepo struct {
	mu     sync.Mutex
	roles  []model.Role
	matrix []model.RoleModulePermission
}

func (r *fakePermRepo) ListRoles(_ context.Context) ([]model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Role(nil), r.roles...), nil
}

func (r *fakePermRepo) ListMatrix(_ context.Context) ([]model.RoleModulePermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RoleModulePermission(nil), r.matrix...), nil
}

func (r *fakePermRepo) FindRoleModule(_ context.Context, role string, module model.Module) (*model.RoleModulePermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.matrix {
		if p.Role == role && p.Module == module {
			copied := p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePermRepo) ReplaceAll(_ context.Context, roles []model.Role, matrix []model.RoleModulePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = roles
	r.matrix = matrix
	return nil
}

func (r *fakePermRepo) CountRoles(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.roles)), nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for _, e := range r.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakePermissions grants by "role|module|permission" key; admin is handled by
// the services themselves.
type fakePermissions struct {
	grants map[string]bool
}

func grant(role string, module model.Module, perms ...string) map[string]bool {
	out := make(map[string]bool)
	for _, p := range perms {
		out[role+"|"+string(module)+"|"+p] = true
	}
	return out
}

func (p *fakePermissions) CanAct(_ context.Context, role string, module model.Module, permission string) (bool, error) {
	return p.grants[role+"|"+string(module)+"|"+permission], nil
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
}

func (b *fakeBroadcaster) Broadcast(message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}
