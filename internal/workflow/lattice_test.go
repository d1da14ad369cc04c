package workflow

import (
	"testing"

	"erp-backend/internal/model"
)

func TestGetUnknownKind(t *testing.T) {
	if _, err := Get(model.Kind("purchase_order")); err != ErrUnknownKind {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestEveryKindHasLattice(t *testing.T) {
	for _, kind := range model.Kinds() {
		l, err := Get(kind)
		if err != nil {
			t.Fatalf("no lattice for kind %s: %v", kind, err)
		}
		if len(l.Chain) < 2 {
			t.Errorf("%s: chain too short: %v", kind, l.Chain)
		}
		if l.Initial() != l.Chain[0] {
			t.Errorf("%s: initial %q is not chain head", kind, l.Initial())
		}
	}
}

// Away from the boundaries, stepping forward then back must return to the
// starting status.
func TestNextPrevRoundTrip(t *testing.T) {
	for _, kind := range model.Kinds() {
		l, _ := Get(kind)
		for i, status := range l.Chain {
			if i == len(l.Chain)-1 {
				continue
			}
			if got := l.Prev(l.Next(status)); got != status {
				t.Errorf("%s: prev(next(%q)) = %q", kind, status, got)
			}
		}
	}
}

func TestBoundaryIdentity(t *testing.T) {
	for _, kind := range model.Kinds() {
		l, _ := Get(kind)
		first := l.Chain[0]
		last := l.Chain[len(l.Chain)-1]

		if got := l.Prev(first); got != first {
			t.Errorf("%s: prev at initial moved to %q", kind, got)
		}
		if got := l.Next(last); got != last {
			t.Errorf("%s: next at terminal moved to %q", kind, got)
		}
	}
}

func TestBranchStatusesAreTerminal(t *testing.T) {
	for _, kind := range model.Kinds() {
		l, _ := Get(kind)
		for from, branch := range l.Branches {
			if !l.IsTerminal(branch) {
				t.Errorf("%s: branch %q from %q is not terminal", kind, branch, from)
			}
			if got := l.Next(branch); got != branch {
				t.Errorf("%s: next from branch %q moved to %q", kind, branch, got)
			}
		}
	}
}

func TestCanTransition(t *testing.T) {
	l, _ := Get(model.KindPaymentRequest)

	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"adjacent forward", model.PaymentDraft, model.PaymentSubmitted, true},
		{"adjacent back", model.PaymentSubmitted, model.PaymentDraft, true},
		{"no-op", model.PaymentDraft, model.PaymentDraft, true},
		{"skip two", model.PaymentDraft, model.PaymentApproved, false},
		{"into branch", model.PaymentSubmitted, model.PaymentRejected, false},
		{"out of branch", model.PaymentRejected, model.PaymentSubmitted, false},
		{"unknown status", model.PaymentDraft, "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRejectTarget(t *testing.T) {
	payment, _ := Get(model.KindPaymentRequest)
	if got := payment.RejectTarget(model.PaymentSubmitted); got != model.PaymentRejected {
		t.Errorf("payment reject from submitted = %q, want rejected branch", got)
	}
	if got := payment.RejectTarget(model.PaymentApproved); got != model.PaymentSubmitted {
		t.Errorf("payment reject from approved = %q, want one step back", got)
	}

	design, _ := Get(model.KindDesignRequest)
	if got := design.RejectTarget(model.DesignReview); got != model.DesignInProgress {
		t.Errorf("design reject from review = %q, want in_progress", got)
	}
}

func TestSubmitTarget(t *testing.T) {
	design, _ := Get(model.KindDesignRequest)
	if got := design.SubmitTarget(model.DesignNew); got != model.DesignReview {
		t.Errorf("design submit from new = %q, want review", got)
	}
	if got := design.SubmitTarget(model.DesignInProgress); got != model.DesignReview {
		t.Errorf("design submit from in_progress = %q, want review", got)
	}

	payment, _ := Get(model.KindPaymentRequest)
	if got := payment.SubmitTarget(model.PaymentSubmitted); got != model.PaymentSubmitted {
		t.Errorf("payment submit from submitted = %q, want no jump", got)
	}
}

func TestEmployeeNotApprovable(t *testing.T) {
	l, _ := Get(model.KindEmployee)
	if l.Approvable {
		t.Error("employee lattice must be manual-only")
	}
}

func TestStatusesContainsChainAndBranches(t *testing.T) {
	l, _ := Get(model.KindContract)
	seen := make(map[string]bool)
	for _, s := range l.Statuses() {
		seen[s] = true
	}
	for _, s := range []string{model.ContractDraft, model.ContractReview, model.ContractSigned, model.ContractActive, model.ContractClosed, model.ContractVoid} {
		if !seen[s] {
			t.Errorf("statuses missing %q", s)
		}
	}
	if !l.Contains(model.ContractVoid) {
		t.Error("lattice should contain the void branch")
	}
}
