package market

import "errors"

// Engine error taxonomy. Together with the store-level sentinels in
// pkg/repository (ErrNotFound, ErrConditionFailed, ErrConstraintViolation)
// these are the complete failure vocabulary of the lifecycle engine. The
// engine never swallows them; callers classify with errors.Is and own the
// user-facing messaging.
var (
	// ErrUnauthorized means the actor lacks rights for the requested
	// transition (wrong role or not the entity's designated mutator).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition means the entity is not in a state from which the
	// requested transition is legal.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidAmount means the bid amount is below the listing floor price.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrListingUnavailable means the target listing is not active.
	ErrListingUnavailable = errors.New("listing unavailable")
	// ErrListingExists means the owner already has a non-deleted listing.
	ErrListingExists = errors.New("listing already exists")
)
