package sim

import "errors"

// Fatal conditions surfaced by RunUntilDecision and SetAction. Test with errors.Is.
var (
	// ErrNotSupported marks branches the engine deliberately does not model.
	ErrNotSupported = errors.New("not supported")
	// ErrNoEligibleWorkstation means no workstation can ever execute a required operation.
	ErrNoEligibleWorkstation = errors.New("no eligible workstation")
	// ErrNoEligibleTransport means no transport machine can carry a required delivery.
	ErrNoEligibleTransport = errors.New("no eligible transport machine")
	// ErrNoEligibleWorker means a workstation needs worker capabilities it has no pool for.
	ErrNoEligibleWorker = errors.New("no eligible worker")
	// ErrNoSourceInventory means a raw material has no source inventory.
	ErrNoSourceInventory = errors.New("no source inventory")
	// ErrOutputInvariant means finished output fits no output buffer although fit was checked at start.
	ErrOutputInvariant = errors.New("output fits no output buffer")
	// ErrInvalidAction is returned by SetAction for actions outside the legal set.
	ErrInvalidAction = errors.New("invalid action")
	// ErrNoDecisionPending is returned when a decision is applied while none is pending.
	ErrNoDecisionPending = errors.New("no decision pending")
	// ErrStalled means the scheduler kept selecting events without making progress.
	ErrStalled = errors.New("scheduler stalled")
)
