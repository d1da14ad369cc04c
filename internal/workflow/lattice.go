package workflow

import (
	"erp-backend/internal/model"
)

// Direction of a manual status nudge.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionBack Direction = "back"
)

// Lattice defines the legal statuses and transitions for one entity kind: an
// ordered main chain, optional terminal side branches entered on rejection,
// and optional jump targets applied when an approval is opened.
type Lattice struct {
	Kind model.Kind

	// Chain is the ordered main sequence; Chain[0] is the only initial status.
	Chain []string

	// Branches maps a chain status to a terminal side-branch status used as
	// its reject target (e.g. submitted -> rejected). Statuses without a
	// branch revert one step on rejection.
	Branches map[string]string

	// SubmitJumps maps a status to the status the entity is moved to when an
	// approval is opened there. The approval itself authorizes the jump, which
	// may skip chain steps the manual path would refuse.
	SubmitJumps map[string]string

	// Approvable is false for kinds whose lifecycle is manual-only.
	Approvable bool
}

var lattices = map[model.Kind]*Lattice{
	model.KindPaymentRequest: {
		Kind:       model.KindPaymentRequest,
		Chain:      []string{model.PaymentDraft, model.PaymentSubmitted, model.PaymentApproved, model.PaymentPaid, model.PaymentReconciled},
		Branches:   map[string]string{model.PaymentSubmitted: model.PaymentRejected},
		Approvable: true,
	},
	model.KindDesignRequest: {
		Kind:  model.KindDesignRequest,
		Chain: []string{model.DesignNew, model.DesignInProgress, model.DesignReview, model.DesignApproved},
		SubmitJumps: map[string]string{
			model.DesignNew:        model.DesignReview,
			model.DesignInProgress: model.DesignReview,
		},
		Approvable: true,
	},
	model.KindDrawing: {
		Kind:       model.KindDrawing,
		Chain:      []string{model.DrawingDraft, model.DrawingReview, model.DrawingApproved, model.DrawingReleased},
		Approvable: true,
	},
	model.KindAllocation: {
		Kind:       model.KindAllocation,
		Chain:      []string{model.AllocationProposed, model.AllocationApproved, model.AllocationLocked},
		Approvable: true,
	},
	model.KindTender: {
		Kind:       model.KindTender,
		Chain:      []string{model.TenderLead, model.TenderPreparation, model.TenderSubmitted, model.TenderNegotiating, model.TenderWon},
		Branches:   map[string]string{model.TenderNegotiating: model.TenderLost},
		Approvable: true,
	},
	model.KindWorkPackage: {
		Kind:       model.KindWorkPackage,
		Chain:      []string{model.WorkPackagePlanned, model.WorkPackageInProgress, model.WorkPackageCompleted},
		Approvable: true,
	},
	model.KindContract: {
		Kind:       model.KindContract,
		Chain:      []string{model.ContractDraft, model.ContractReview, model.ContractSigned, model.ContractActive, model.ContractClosed},
		Branches:   map[string]string{model.ContractReview: model.ContractVoid},
		Approvable: true,
	},
	model.KindEmployee: {
		Kind:       model.KindEmployee,
		Chain:      []string{model.EmployeeOnboarding, model.EmployeeActive, model.EmployeeOffboarded},
		Approvable: false,
	},
}

// Get returns the lattice for a kind.
func Get(kind model.Kind) (*Lattice, error) {
	l, ok := lattices[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return l, nil
}

// Initial returns the only status entities of this kind may be created in.
func (l *Lattice) Initial() string {
	return l.Chain[0]
}

func (l *Lattice) chainIndex(status string) int {
	for i, s := range l.Chain {
		if s == status {
			return i
		}
	}
	return -1
}

// Contains reports whether status is a member of the lattice, side branches
// included.
func (l *Lattice) Contains(status string) bool {
	if l.chainIndex(status) >= 0 {
		return true
	}
	for _, b := range l.Branches {
		if b == status {
			return true
		}
	}
	return false
}

// Statuses returns every member of the lattice: the main chain in order,
// then side-branch terminals.
func (l *Lattice) Statuses() []string {
	out := make([]string, 0, len(l.Chain)+len(l.Branches))
	out = append(out, l.Chain...)
	for _, s := range l.Chain {
		if b, ok := l.Branches[s]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Next returns the status one step forward on the main chain. Terminal and
// side-branch statuses return themselves; the boundary is an identity, never
// an error.
func (l *Lattice) Next(status string) string {
	i := l.chainIndex(status)
	if i < 0 || i == len(l.Chain)-1 {
		return status
	}
	return l.Chain[i+1]
}

// Prev returns the status one step back on the main chain, with the same
// identity behavior at the initial status and on side branches.
func (l *Lattice) Prev(status string) string {
	if i := l.chainIndex(status); i > 0 {
		return l.Chain[i-1]
	}
	return status
}

// CanTransition reports whether a direct (non-approval) transition is legal:
// either a no-op or a single step along the main chain in either direction.
func (l *Lattice) CanTransition(from, to string) bool {
	if from == to {
		return l.Contains(from)
	}
	i, j := l.chainIndex(from), l.chainIndex(to)
	if i < 0 || j < 0 {
		return false
	}
	return j-i == 1 || i-j == 1
}

// RejectTarget returns the status a rejection moves the entity to from the
// given status: the configured side branch when one exists, otherwise one
// step back.
func (l *Lattice) RejectTarget(status string) string {
	if b, ok := l.Branches[status]; ok {
		return b
	}
	return l.Prev(status)
}

// SubmitTarget returns the status the entity is moved to when an approval is
// opened at the given status. Without a configured jump the entity stays put.
func (l *Lattice) SubmitTarget(status string) string {
	if t, ok := l.SubmitJumps[status]; ok {
		return t
	}
	return status
}

// IsTerminal reports whether no forward transition is defined from status.
func (l *Lattice) IsTerminal(status string) bool {
	if i := l.chainIndex(status); i >= 0 {
		return i == len(l.Chain)-1
	}
	for _, b := range l.Branches {
		if b == status {
			return true
		}
	}
	return false
}
