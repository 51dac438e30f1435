package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/mat"

	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/qol"
	api "abrsqol/pkg/contracts/api/v1"
	"abrsqol/pkg/contracts/domain"
)

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
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

// validateRequest checks req against its struct tags.
func validateRequest(v *validator.Validate, req *api.InvertRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		fields = append(fields, apierrors.ValidationError{
			Field:   field,
			Message: validationMessage(fe),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is absent", fe.Param())
	case "excluded_with":
		return fmt.Sprintf("must not be combined with %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}

// buildInputs converts a validated request into solver inputs. The returned
// IDs are the row IDs of a row-oriented request, or nil.
func buildInputs(req *api.InvertRequest) (qol.Inputs, []string, error) {
	if req.Columns != nil {
		c := req.Columns
		var in qol.Inputs
		named := []struct {
			name string
			s    api.Series
			dst  **mat.Dense
		}{
			{"w", c.W, &in.W}, {"p_H", c.PH, &in.PH}, {"P_t", c.Pt, &in.Pt},
			{"p_n", c.Pn, &in.Pn}, {"L", c.L, &in.L}, {"L_b", c.Lb, &in.Lb},
		}
		for _, n := range named {
			m, err := denseFrom(n.s)
			if err != nil {
				return qol.Inputs{}, nil, apierrors.ErrValidation("columns."+n.name, err.Error())
			}
			*n.dst = m
		}
		return in, nil, nil
	}

	rows := req.Rows
	w := make([]float64, len(rows))
	pH := make([]float64, len(rows))
	pT := make([]float64, len(rows))
	pN := make([]float64, len(rows))
	l := make([]float64, len(rows))
	lb := make([]float64, len(rows))
	ids := make([]string, len(rows))
	named := false
	for i, row := range rows {
		w[i], pH[i], pT[i], pN[i], l[i], lb[i] = row.W, row.PH, row.Pt, row.Pn, row.L, row.Lb
		ids[i] = row.ID
		named = named || row.ID != ""
	}
	if !named {
		ids = nil
	}
	return qol.VectorInputs(w, pH, pT, pN, l, lb), ids, nil
}

// denseFrom returns nil for an empty series so the solver reports it as
// missing input.
func denseFrom(s api.Series) (*mat.Dense, error) {
	rows, cols, err := s.Dims()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, nil
	}
	if cols == 0 {
		return nil, errors.New("rows must hold at least one value")
	}
	return mat.NewDense(rows, cols, s.Flatten()), nil
}

func toModelParams(p qol.Params) domain.ModelParams {
	return domain.ModelParams{
		Alpha:     p.Alpha,
		Beta:      p.Beta,
		Gamma:     p.Gamma,
		Xi:        p.Xi,
		Conv:      p.Conv,
		Tolerance: p.Tolerance,
		MaxIter:   p.MaxIter,
	}
}

func fromModelParams(p domain.ModelParams) qol.Params {
	return qol.Params{
		Alpha:     p.Alpha,
		Beta:      p.Beta,
		Gamma:     p.Gamma,
		Xi:        p.Xi,
		Conv:      p.Conv,
		Tolerance: p.Tolerance,
		MaxIter:   p.MaxIter,
	}
}

// resolveParams applies the request's overrides to the server defaults.
func resolveParams(defaults qol.Params, override *domain.ParamsOverride) qol.Params {
	return fromModelParams(override.Apply(toModelParams(defaults)))
}

func toResponse(res *qol.Result, ids []string, traceID string) api.InvertResponse {
	columns := make([]domain.ColumnResult, len(res.Columns))
	for i, c := range res.Columns {
		columns[i] = domain.ColumnResult{
			QoL:        c.QoL,
			Iterations: c.Iterations,
			Objective:  c.Objective,
			Converged:  c.Converged,
		}
	}
	return api.InvertResponse{
		QoL:        res.QoL(),
		Columns:    columns,
		Converged:  res.Converged(),
		Params:     toModelParams(res.Params),
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
		IDs:        ids,
		TraceID:    traceID,
	}
}
