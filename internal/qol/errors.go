package qol

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrDimensionMismatch is returned when input variables disagree on their
	// number of rows or on their number of Theta columns.
	ErrDimensionMismatch = errors.New("qol: dimension mismatch")

	// ErrMissingInput is returned when one of the six input variables is nil.
	ErrMissingInput = errors.New("qol: missing input variable")

	// ErrInvalidInput is returned for NaN, Inf or out-of-domain input values.
	ErrInvalidInput = errors.New("qol: invalid input value")

	// ErrInvalidParams is returned when model or solver parameters fail validation.
	ErrInvalidParams = errors.New("qol: invalid parameters")

	// ErrNumerical is returned when the objective stops being finite mid-iteration.
	ErrNumerical = errors.New("qol: numerical failure")
)

// Shape is the row/column count of one named input variable.
type Shape struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// DimensionMismatchError reports the shapes of the variables that disagree.
type DimensionMismatchError struct {
	// Axis is "rows" or "columns".
	Axis   string  `json:"axis"`
	Shapes []Shape `json:"shapes"`
}

func (e *DimensionMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "qol: dimension mismatch: variables do not have the same number of %s:", e.Axis)
	for _, s := range e.Shapes {
		n := s.Rows
		if e.Axis == "columns" {
			n = s.Cols
		}
		fmt.Fprintf(&b, " %s=%d", s.Name, n)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// InputError names the variable and cell holding an invalid value.
type InputError struct {
	Variable string
	Row      int
	Col      int
	Value    float64
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("qol: invalid input %s[%d,%d]=%g: %s", e.Variable, e.Row, e.Col, e.Value, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ParamError describes a single failed parameter constraint.
type ParamError struct {
	Field      string      `json:"field"`
	Constraint string      `json:"constraint"`
	Value      interface{} `json:"value"`
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("qol: invalid parameter %s=%v: must satisfy %s", e.Field, e.Value, e.Constraint)
}

func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParams
}

// NumericalError is returned when the objective becomes NaN or Inf.
type NumericalError struct {
	Column    int
	Iteration int
	Objective float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("qol: objective not finite (%g) in column %d at iteration %d", e.Objective, e.Column, e.Iteration)
}

func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}
