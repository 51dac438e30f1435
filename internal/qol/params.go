package qol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default model and solver parameters.
const (
	DefaultAlpha     = 0.7
	DefaultBeta      = 0.5
	DefaultGamma     = 3.0
	DefaultXi        = 5.5
	DefaultConv      = 0.5
	DefaultTolerance = 1e-10
	DefaultMaxIter   = 10000

	// initialObjective seeds the loop so the first pass always runs.
	initialObjective = 100000.0
)

// Params holds the structural parameters and the stopping rule.
type Params struct {
	// Alpha is the income share spent on non-housing consumption.
	Alpha float64 `json:"alpha" yaml:"alpha" validate:"gte=0,lte=1"`
	// Beta is the share of tradable goods in non-housing consumption.
	Beta float64 `json:"beta" yaml:"beta" validate:"gte=0,lte=1"`
	// Gamma is the idiosyncratic taste dispersion (inverse labour supply elasticity).
	Gamma float64 `json:"gamma" yaml:"gamma" validate:"gt=0"`
	// Xi is the valuation of local ties. Capped so e^xi stays finite.
	Xi float64 `json:"xi" yaml:"xi" validate:"gte=0,lte=700"`
	// Conv damps each update. Higher values converge faster but may bounce.
	Conv float64 `json:"conv" yaml:"conv" validate:"gt=0,lte=1"`
	// Tolerance is the mean absolute error at which iteration stops.
	Tolerance float64 `json:"tolerance" yaml:"tolerance" validate:"gte=0"`
	// MaxIter caps the number of update passes per column.
	MaxIter int `json:"maxiter" yaml:"maxiter" validate:"gte=1"`
}

// DefaultParams returns the published default calibration.
func DefaultParams() Params {
	return Params{
		Alpha:     DefaultAlpha,
		Beta:      DefaultBeta,
		Gamma:     DefaultGamma,
		Xi:        DefaultXi,
		Conv:      DefaultConv,
		Tolerance: DefaultTolerance,
		MaxIter:   DefaultMaxIter,
	}
}

var paramValidator = newParamValidator()

func newParamValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every parameter against its admissible range. The returned
// error joins one *ParamError per violation and matches ErrInvalidParams.
func (p Params) Validate() error {
	err := paramValidator.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint += "=" + fe.Param()
		}
		errs = append(errs, &ParamError{
			Field:      fe.Field(),
			Constraint: constraint,
			Value:      fe.Value(),
		})
	}
	return errors.Join(errs...)
}

// priceWeights returns the exponents on Pt, pn and pH in the price index.
func (p Params) priceWeights() (tradable, services, housing float64) {
	return p.Alpha * p.Beta, p.Alpha * (1 - p.Beta), 1 - p.Alpha
}
