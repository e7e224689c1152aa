package domain

import "errors"

// Error classes for the settlement and payment flows. Validation and not-found
// are rejected before any state mutation; conflict marks an attempted
// transition between different terminal payment states; gateway-unavailable
// means the provider could not be reached and local state was left untouched.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflicting state transition")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrNotRoomMember      = errors.New("not a member of this room")
	ErrForbidden          = errors.New("forbidden")
)
