package entity

import (
	"errors"
	"fmt"
)

// Domain errors shared between the services and the HTTP layer. Validation
// failures are recoverable by resubmission; quota errors recover on the next
// day or with a fresh code; the rest are terminal for the request.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateOffer = errors.New("an active help offer for this listing already exists")

	ErrInviteRequired     = errors.New(SignupInviteRequired)
	ErrInvalidInvite      = errors.New(SignupInvalidInvite)
	ErrInviteLimitReached = errors.New(SignupInviteLimitReached)
)

// QuotaExceededError reports a daily posting limit hit, carrying the limit
// so the caller can surface it.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily post limit (%d) reached, try again tomorrow", e.Limit)
}
