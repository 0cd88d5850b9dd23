package engine

import (
	"errors"
	"fmt"
)

// Board validation failures. Every ValidationError unwraps to exactly one of these.
var (
	ErrInvalidRules      = errors.New("engine: invalid rules")
	ErrGridDimensions    = errors.New("engine: grid dimensions do not match the board size")
	ErrNegativeCell      = errors.New("engine: negative cell value")
	ErrVehicleShape      = errors.New("engine: vehicle cells are not in a straight line")
	ErrDisjointFragments = errors.New("engine: vehicle id appears in disjoint fragments")
	ErrVehicleLength     = errors.New("engine: vehicle length must be 2 or 3")
	ErrTargetMissing     = errors.New("engine: target vehicle missing")
	ErrTargetMisplaced   = errors.New("engine: target vehicle not on the exit line or wrongly oriented")
)

// Move failures
var (
	ErrUnknownVehicle   = errors.New("engine: unknown vehicle")
	ErrUnknownDirection = errors.New("engine: unknown direction")
	ErrIllegalMove      = errors.New("engine: illegal move")
)

// ValidationError identifies which board invariant a grid violates
type ValidationError struct {
	Err       error
	VehicleID int
	Detail    string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.VehicleID != 0 {
		msg = fmt.Sprintf("%s (vehicle %d)", msg, e.VehicleID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Kind returns a short machine-friendly code for the violated invariant
func (e *ValidationError) Kind() string {
	switch e.Err {
	case ErrInvalidRules:
		return "invalid_rules"
	case ErrGridDimensions:
		return "grid_dimensions"
	case ErrNegativeCell:
		return "negative_cell"
	case ErrVehicleShape:
		return "vehicle_shape"
	case ErrDisjointFragments:
		return "disjoint_fragments"
	case ErrVehicleLength:
		return "vehicle_length"
	case ErrTargetMissing:
		return "target_missing"
	case ErrTargetMisplaced:
		return "target_misplaced"
	default:
		return "invalid_board"
	}
}

// IsValidationError reports whether err came from board validation
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationKind returns the Kind of a wrapped ValidationError, or "" when err is not one
func ValidationKind(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind()
	}
	return ""
}
