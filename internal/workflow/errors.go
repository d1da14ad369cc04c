package workflow

import "errors"

// Engine error taxonomy. Every error is a per-request rejection; none is fatal
// and none leaves partial state behind.
var (
	// ErrInvalidTransition rejects a manual nudge to a non-adjacent status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicatePending signals that an approval is already pending for the
	// entity. Informational: submit returns the existing request alongside it.
	ErrDuplicatePending = errors.New("approval already pending for entity")

	// ErrAlreadyDecided rejects a decision that conflicts with one already made.
	// Re-delivery of the same decision is a no-op, not an error.
	ErrAlreadyDecided = errors.New("approval request already decided")

	// ErrEntityDrifted rejects a decision whose entity no longer sits at the
	// status snapshotted when the approval was created.
	ErrEntityDrifted = errors.New("entity status drifted since approval was created")

	// ErrUnauthorized rejects an actor whose role lacks the module permission.
	ErrUnauthorized = errors.New("role lacks required module permission")

	ErrUnknownEntity   = errors.New("entity not found")
	ErrUnknownApproval = errors.New("approval request not found")
	ErrUnknownKind     = errors.New("unknown entity kind")

	// ErrNotApprovable rejects submit-for-approval on kinds whose lifecycle is
	// manual-only (Employee).
	ErrNotApprovable = errors.New("entity kind does not support approval requests")

	// ErrAllocationLocked rejects any mutation of a locked allocation.
	ErrAllocationLocked = errors.New("allocation is locked")

	// ErrInvalidPercent rejects allocation items outside 0..100.
	ErrInvalidPercent = errors.New("allocation percent must be between 0 and 100")

	// ErrInvalidConfig rejects a malformed or referentially broken settings
	// blob before any write.
	ErrInvalidConfig = errors.New("invalid configuration snapshot")

	// ErrInvalidPayload rejects malformed identifiers or request bodies
	// before any state is touched.
	ErrInvalidPayload = errors.New("invalid request payload")
)
