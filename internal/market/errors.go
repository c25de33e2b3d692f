package market

import (
	"errors"
	"fmt"
)

// Error classes returned by every operation. Test with errors.Is; any other
// error is an infrastructure failure.
var (
	ErrValidation           = errors.New("invalid input")
	ErrAuthorization        = errors.New("not authorized")
	ErrVerificationRequired = errors.New("investor verification required")
	ErrStateConflict        = errors.New("state conflict")
	ErrNotFound             = errors.New("not found")

	// ErrAlreadyDecided is returned when an offer is no longer pending or
	// its listing is no longer accepting decisions.
	ErrAlreadyDecided = fmt.Errorf("%w: offer already decided", ErrStateConflict)
)
