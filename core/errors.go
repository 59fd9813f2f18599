package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is the sentinel every InvalidParameterError unwraps to.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrScaleOutOfRange is the sentinel every ScaleOutOfRangeError unwraps to.
	ErrScaleOutOfRange = errors.New("scale out of range")
)

// InvalidParameterError reports an orbital element or frame dimension that
// cannot be drawn. Field uses the snake_case name of the offending input.
type InvalidParameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

func invalid(field string, value any, reason string) error {
	return &InvalidParameterError{Field: field, Value: value, Reason: reason}
}

// ScaleOutOfRangeError is returned when no canonical reference distance
// renders inside the requested pixel band.
type ScaleOutOfRangeError struct {
	Scale float64
	MinPx float64
	MaxPx float64
	Steps int
}

func (e *ScaleOutOfRangeError) Error() string {
	return fmt.Sprintf("no scale reference for %g px/AU within (%g, %g) px after %d steps",
		e.Scale, e.MinPx, e.MaxPx, e.Steps)
}

func (e *ScaleOutOfRangeError) Unwrap() error { return ErrScaleOutOfRange }
