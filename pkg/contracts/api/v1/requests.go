// Package api contains the v1 request and response contracts of the QoL
// HTTP API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"abrsqol/pkg/contracts/domain"
)

// Series is a J×1 or J×Theta block of observations. It decodes from a flat
// array (one value per location) or from an array of rows.
type Series [][]float64

// UnmarshalJSON accepts [1, 2, 3] as well as [[1, 2], [3, 4]].
func (s *Series) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = nil
		return nil
	}

	var flat []float64
	if err := json.Unmarshal(b, &flat); err == nil {
		out := make(Series, len(flat))
		for i, v := range flat {
			out[i] = []float64{v}
		}
		*s = out
		return nil
	}

	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return fmt.Errorf("series must be an array of numbers or an array of rows: %w", err)
	}
	*s = rows
	return nil
}

// Dims returns the row and column counts. Rows of unequal width are reported
// as an error naming the first offending row.
func (s Series) Dims() (rows, cols int, err error) {
	if len(s) == 0 {
		return 0, 0, nil
	}
	cols = len(s[0])
	for i, row := range s {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("row %d has %d values, row 0 has %d", i, len(row), cols)
		}
	}
	return len(s), cols, nil
}

// Flatten returns the values in row-major order.
func (s Series) Flatten() []float64 {
	out := make([]float64, 0, len(s)*len(s[0]))
	for _, row := range s {
		out = append(out, row...)
	}
	return out
}

// LocationColumns holds the six observation blocks of a column-oriented
// request. w, L and L_b are J×Theta; the prices are J×1 or J×Theta.
type LocationColumns struct {
	W  Series `json:"w" validate:"required"`
	PH Series `json:"p_H" validate:"required"`
	Pt Series `json:"P_t" validate:"required"`
	Pn Series `json:"p_n" validate:"required"`
	L  Series `json:"L" validate:"required"`
	Lb Series `json:"L_b" validate:"required"`
}

// InvertRequest asks for one inversion. Exactly one of Columns or Rows must
// be set; Params overrides the server defaults field by field.
type InvertRequest struct {
	Columns *LocationColumns       `json:"columns,omitempty" validate:"required_without=Rows,excluded_with=Rows"`
	Rows    []domain.LocationRow   `json:"rows,omitempty" validate:"required_without=Columns,omitempty,min=1"`
	Params  *domain.ParamsOverride `json:"params,omitempty"`

	// ProgressEvery throttles stream progress events to every n-th
	// iteration. Zero uses the server's log interval.
	ProgressEvery int `json:"progress_every,omitempty" validate:"gte=0"`
}

// InvertResponse is the outcome of an inversion.
type InvertResponse struct {
	// QoL is the first column's vector, the common single-Theta answer.
	QoL        []float64             `json:"qol"`
	Columns    []domain.ColumnResult `json:"columns"`
	Converged  bool                  `json:"converged"`
	Params     domain.ModelParams    `json:"params"`
	DurationMS float64               `json:"duration_ms"`
	IDs        []string              `json:"ids,omitempty"`
	TraceID    string                `json:"trace_id,omitempty"`
}

// DefaultsResponse describes the server's configured defaults.
type DefaultsResponse struct {
	Params  domain.ModelParams `json:"params"`
	Columns map[string]string  `json:"columns"`
	Timeout string             `json:"timeout,omitempty"`
}

// JobResponse describes an asynchronous inversion. Result is set once the
// job completes.
type JobResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message,omitempty"`
	Error       string          `json:"error,omitempty"`
	Locations   int             `json:"locations"`
	Theta       int             `json:"theta"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *InvertResponse `json:"result,omitempty"`
	TraceID     string          `json:"trace_id,omitempty"`
}

// JobListResponse is returned by GET /api/v1/jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
