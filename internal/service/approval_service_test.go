package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type approvalFixture struct {
	svc      ApprovalService
	entities *fakeEntityRepo
	ledger   *fakeApprovalRepo
	flows    *fakeFlowRepo
	audit    *fakeAuditRepo
	hub      *fakeBroadcaster
}

func newApprovalFixture(t *testing.T, grants map[string]bool, flows []model.ApprovalFlow, entities ...model.Entity) *approvalFixture {
	t.Helper()
	entityRepo := newFakeEntityRepo(entities...)
	ledger := newFakeApprovalRepo()
	flowRepo := newFakeFlowRepo(flows...)
	audit := &fakeAuditRepo{}
	hub := &fakeBroadcaster{}
	svc := NewApprovalService(
		&fakeTxManager{},
		entityRepo,
		ledger,
		flowRepo,
		audit,
		&fakePermissions{grants: grants},
		hub,
		zerolog.Nop(),
	)
	return &approvalFixture{svc: svc, entities: entityRepo, ledger: ledger, flows: flowRepo, audit: audit, hub: hub}
}

func paymentAt(status string) *model.PaymentRequest {
	return &model.PaymentRequest{
		ID:     uuid.New(),
		Code:   "PAY-001",
		Title:  "Steel delivery invoice",
		Status: status,
	}
}

func requester() Actor {
	return Actor{ID: uuid.New(), Role: "staff"}
}

func TestSubmitSnapshotsStatus(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)

	result, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("first submit flagged as duplicate")
	}
	if result.Approval.FromStatus != model.PaymentSubmitted {
		t.Errorf("from_status = %q, want submitted", result.Approval.FromStatus)
	}
	if result.Approval.Status != model.ApprovalPending {
		t.Errorf("status = %q, want pending", result.Approval.Status)
	}
	if result.Approval.TotalSteps != 1 {
		t.Errorf("total_steps = %d, want 1 without a flow", result.Approval.TotalSteps)
	}
	if payment.Status != model.PaymentSubmitted {
		t.Errorf("entity moved to %q on submit without a jump", payment.Status)
	}
	if len(f.hub.messages) != 1 {
		t.Errorf("expected one broadcast, got %d", len(f.hub.messages))
	}
}

func TestSubmitJumpMovesDesignToReview(t *testing.T) {
	design := &model.DesignRequest{ID: uuid.New(), Title: "Foundation rework", Status: model.DesignNew}
	f := newApprovalFixture(t, nil, nil, design)

	result, err := f.svc.Submit(context.Background(), model.KindDesignRequest, design.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if design.Status != model.DesignReview {
		t.Errorf("design status = %q, want review after submit jump", design.Status)
	}
	if result.Approval.FromStatus != model.DesignReview {
		t.Errorf("from_status = %q, want the post-jump status", result.Approval.FromStatus)
	}
}

func TestSubmitDuplicateReturnsExisting(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)
	actor := requester()

	first, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), actor)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), actor)
	if err != nil {
		t.Fatalf("duplicate submit errored: %v", err)
	}
	if !second.Duplicate {
		t.Error("duplicate submit not flagged")
	}
	if second.Approval.ID != first.Approval.ID {
		t.Errorf("duplicate returned a different request: %s vs %s", second.Approval.ID, first.Approval.ID)
	}

	rows, _, _ := f.ledger.List(context.Background(), repository.InboxFilter{Page: 1, Limit: 100})
	if len(rows) != 1 {
		t.Errorf("ledger has %d rows, want 1", len(rows))
	}
}

func TestSubmitRefusals(t *testing.T) {
	employee := &model.Employee{ID: uuid.New(), FullName: "Jordan Vu", Status: model.EmployeeActive}
	reconciled := paymentAt(model.PaymentReconciled)
	locked := &model.Allocation{ID: uuid.New(), Title: "Crane crew Q3", Status: model.AllocationLocked}
	f := newApprovalFixture(t, nil, nil, employee, reconciled, locked)

	if _, err := f.svc.Submit(context.Background(), model.KindEmployee, employee.ID.String(), requester()); !errors.Is(err, workflow.ErrNotApprovable) {
		t.Errorf("employee submit: got %v, want ErrNotApprovable", err)
	}
	if _, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, reconciled.ID.String(), requester()); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("terminal submit: got %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Submit(context.Background(), model.KindAllocation, locked.ID.String(), requester()); !errors.Is(err, workflow.ErrAllocationLocked) {
		t.Errorf("locked allocation submit: got %v, want ErrAllocationLocked", err)
	}
	if _, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, uuid.New().String(), requester()); !errors.Is(err, workflow.ErrUnknownEntity) {
		t.Errorf("missing entity submit: got %v, want ErrUnknownEntity", err)
	}
}

func TestApproveAdvancesEntity(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, grant("finance_manager", model.ModuleFinance, model.PermApprove), nil, payment)

	submitted, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	decided, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: "finance_manager"}, "looks good")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if decided.Status != model.ApprovalApproved {
		t.Errorf("approval status = %q, want approved", decided.Status)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q, want approved", payment.Status)
	}
	if decided.Comment != "looks good" {
		t.Errorf("comment = %q", decided.Comment)
	}
}

func TestRejectTakesBranch(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, grant("finance_manager", model.ModuleFinance, model.PermApprove), nil, payment)

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionReject, Actor{ID: uuid.New(), Role: "finance_manager"}, "missing invoice"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if payment.Status != model.PaymentRejected {
		t.Errorf("entity status = %q, want the rejected branch", payment.Status)
	}
}

func TestRejectRevertsWithoutBranch(t *testing.T) {
	design := &model.DesignRequest{ID: uuid.New(), Title: "HVAC revision", Status: model.DesignInProgress}
	f := newApprovalFixture(t, grant("chief_engineer", model.ModuleEngineering, model.PermApprove), nil, design)

	submitted, _ := f.svc.Submit(context.Background(), model.KindDesignRequest, design.ID.String(), requester())
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionReject, Actor{ID: uuid.New(), Role: "chief_engineer"}, ""); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if design.Status != model.DesignInProgress {
		t.Errorf("design status = %q, want in_progress after reject from review", design.Status)
	}
}

func TestDecideUnauthorizedRole(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, grant("finance_manager", model.ModuleFinance, model.PermApprove), nil, payment)

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	_, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: "staff"}, "")
	if !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if payment.Status != model.PaymentSubmitted {
		t.Errorf("entity moved to %q on refused decision", payment.Status)
	}
}

func TestDecideAdminWildcard(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: model.AdminRole}, ""); err != nil {
		t.Fatalf("admin approve failed: %v", err)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q, want approved", payment.Status)
	}
}

func TestDecideIdempotentReplay(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)
	approver := Actor{ID: uuid.New(), Role: model.AdminRole}

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, approver, ""); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	// Same decision again is a no-op and must not advance the entity further.
	replayed, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, approver, "")
	if err != nil {
		t.Fatalf("replayed approve errored: %v", err)
	}
	if replayed.Status != model.ApprovalApproved {
		t.Errorf("replay status = %q", replayed.Status)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q after replay, want approved exactly once", payment.Status)
	}

	// The conflicting decision fails.
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionReject, approver, ""); !errors.Is(err, workflow.ErrAlreadyDecided) {
		t.Errorf("conflicting decision: got %v, want ErrAlreadyDecided", err)
	}
}

func TestDecideEntityDrifted(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())

	// Someone nudged the entity behind the approval's back.
	payment.Status = model.PaymentDraft

	_, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: model.AdminRole}, "")
	if !errors.Is(err, workflow.ErrEntityDrifted) {
		t.Fatalf("got %v, want ErrEntityDrifted", err)
	}

	row, _ := f.ledger.FindByID(context.Background(), uuid.MustParse(submitted.Approval.ID))
	if row.Status != model.ApprovalPending {
		t.Errorf("approval status = %q after drift failure, want still pending", row.Status)
	}
}

func financeTwoStepFlow() model.ApprovalFlow {
	return model.ApprovalFlow{
		Module:    model.ModuleFinance,
		Name:      "Payment sign-off",
		IsEnabled: true,
		Steps: []model.ApprovalStep{
			{StepOrder: 0, Title: "Manager review", ApproverRole: "finance_manager", SLAHours: 24},
			{StepOrder: 1, Title: "Director sign-off", ApproverRole: "finance_director", SLAHours: 48},
		},
	}
}

func TestMultiStepFlowHappyPath(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, []model.ApprovalFlow{financeTwoStepFlow()}, payment)

	submitted, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submitted.Approval.TotalSteps != 2 {
		t.Fatalf("total_steps = %d, want 2", submitted.Approval.TotalSteps)
	}
	if submitted.Approval.DueAt == nil {
		t.Error("due_at not set from the first step SLA")
	}

	manager := Actor{ID: uuid.New(), Role: "finance_manager"}
	director := Actor{ID: uuid.New(), Role: "finance_director"}

	// Director cannot decide the manager's step.
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, director, ""); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("out-of-order approver: got %v, want ErrUnauthorized", err)
	}

	stepped, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, manager, "ok")
	if err != nil {
		t.Fatalf("manager approve failed: %v", err)
	}
	if stepped.Status != model.ApprovalPending {
		t.Errorf("status = %q after intermediate step, want still pending", stepped.Status)
	}
	if stepped.CurrentStep != 1 {
		t.Errorf("current_step = %d, want 1", stepped.CurrentStep)
	}
	if payment.Status != model.PaymentSubmitted {
		t.Errorf("entity status = %q after intermediate step, want unchanged", payment.Status)
	}

	final, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, director, "")
	if err != nil {
		t.Fatalf("director approve failed: %v", err)
	}
	if final.Status != model.ApprovalApproved {
		t.Errorf("final status = %q, want approved", final.Status)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q, want approved after the final step", payment.Status)
	}
}

func TestMultiStepRejectFailsFast(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, []model.ApprovalFlow{financeTwoStepFlow()}, payment)

	submitted, _ := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	manager := Actor{ID: uuid.New(), Role: "finance_manager"}

	rejected, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionReject, manager, "over budget")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != model.ApprovalRejected {
		t.Errorf("status = %q, want rejected at the first step", rejected.Status)
	}
	if payment.Status != model.PaymentRejected {
		t.Errorf("entity status = %q, want the rejected branch", payment.Status)
	}
}

func financeThreeStepFlow() model.ApprovalFlow {
	return model.ApprovalFlow{
		Module:    model.ModuleFinance,
		Name:      "Payment sign-off",
		IsEnabled: true,
		Steps: []model.ApprovalStep{
			{StepOrder: 0, Title: "Manager review", ApproverRole: "finance_manager", SLAHours: 24},
			{StepOrder: 1, Title: "Controller review", ApproverRole: "finance_controller", SLAHours: 24},
			{StepOrder: 2, Title: "Director sign-off", ApproverRole: "finance_director", SLAHours: 48},
		},
	}
}

func TestFlowShrunkBeforeDecisionResolvesAsFinal(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	three := financeThreeStepFlow()
	f := newApprovalFixture(t, nil, []model.ApprovalFlow{three}, payment)

	submitted, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submitted.Approval.TotalSteps != 3 {
		t.Fatalf("total_steps = %d, want 3", submitted.Approval.TotalSteps)
	}

	// An admin swaps in a one-step flow while the request is pending.
	one := three
	one.Steps = three.Steps[:1]
	if err := f.flows.ReplaceAll(context.Background(), []model.ApprovalFlow{one}); err != nil {
		t.Fatalf("flow swap failed: %v", err)
	}

	decided, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: "finance_manager"}, "")
	if err != nil {
		t.Fatalf("approve after flow swap failed: %v", err)
	}
	if decided.Status != model.ApprovalApproved {
		t.Errorf("status = %q, want approved when the live flow ends at the cursor", decided.Status)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q, want approved", payment.Status)
	}
}

func TestFlowShrunkPastCursorUsesModuleGate(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	three := financeThreeStepFlow()
	f := newApprovalFixture(t, grant("finance_manager", model.ModuleFinance, model.PermApprove), []model.ApprovalFlow{three}, payment)

	submitted, err := f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	manager := Actor{ID: uuid.New(), Role: "finance_manager"}
	stepped, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, manager, "")
	if err != nil {
		t.Fatalf("manager approve failed: %v", err)
	}
	if stepped.CurrentStep != 1 {
		t.Fatalf("current_step = %d, want 1", stepped.CurrentStep)
	}

	one := three
	one.Steps = three.Steps[:1]
	if err := f.flows.ReplaceAll(context.Background(), []model.ApprovalFlow{one}); err != nil {
		t.Fatalf("flow swap failed: %v", err)
	}

	// The cursor sits past the live steps, so step-role matching cannot
	// apply; the module permission gate decides instead.
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: "finance_director"}, ""); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("ungranted role after flow swap: got %v, want ErrUnauthorized", err)
	}

	final, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, manager, "")
	if err != nil {
		t.Fatalf("final approve failed: %v", err)
	}
	if final.Status != model.ApprovalApproved {
		t.Errorf("status = %q, want approved", final.Status)
	}
	if payment.Status != model.PaymentApproved {
		t.Errorf("entity status = %q, want approved", payment.Status)
	}
}

func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	payment := paymentAt(model.PaymentSubmitted)
	f := newApprovalFixture(t, nil, nil, payment)

	// The transaction fake serializes bodies the way the entity row lock does
	// in Postgres, so racing submits observe each other's pending row.
	const submitters = 8
	results := make([]SubmitResult, submitters)
	errs := make([]error, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Submit(context.Background(), model.KindPaymentRequest, payment.ID.String(), requester())
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("submit %d failed: %v", i, errs[i])
		}
		if !results[i].Duplicate {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("non-duplicate submits = %d, want exactly 1", winners)
	}

	rows, _, _ := f.ledger.List(context.Background(), repository.InboxFilter{Page: 1, Limit: 100})
	if len(rows) != 1 {
		t.Errorf("ledger has %d rows, want 1", len(rows))
	}
}

func TestAllocationApprovalCascadesItems(t *testing.T) {
	alloc := &model.Allocation{
		ID:     uuid.New(),
		Title:  "Crane crew Q3",
		Status: model.AllocationProposed,
		Items: []model.AllocationItem{
			{ResourceName: "Tower crane", Percent: 100, State: model.AllocationProposed},
			{ResourceName: "Operator", Percent: 50, State: model.AllocationProposed},
		},
	}
	f := newApprovalFixture(t, nil, nil, alloc)

	submitted, err := f.svc.Submit(context.Background(), model.KindAllocation, alloc.ID.String(), requester())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := f.svc.Decide(context.Background(), submitted.Approval.ID, DecisionApprove, Actor{ID: uuid.New(), Role: model.AdminRole}, ""); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if alloc.Status != model.AllocationApproved {
		t.Errorf("allocation status = %q, want approved", alloc.Status)
	}
	for _, item := range alloc.Items {
		if item.State != model.AllocationApproved {
			t.Errorf("item %q state = %q, want cascaded approved", item.ResourceName, item.State)
		}
	}
}

func TestDecideUnknownApproval(t *testing.T) {
	f := newApprovalFixture(t, nil, nil)
	_, err := f.svc.Decide(context.Background(), uuid.New().String(), DecisionApprove, Actor{ID: uuid.New(), Role: model.AdminRole}, "")
	if !errors.Is(err, workflow.ErrUnknownApproval) {
		t.Fatalf("got %v, want ErrUnknownApproval", err)
	}
}
