package qol

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Inputs holds the observed data for J locations. W, L and Lb are J×Theta;
// the three prices are J×1 or J×Theta.
type Inputs struct {
	W  *mat.Dense // wage index
	PH *mat.Dense // floor-space price
	Pt *mat.Dense // tradable goods price
	Pn *mat.Dense // local services price
	L  *mat.Dense // residence population
	Lb *mat.Dense // hometown (birthplace) population
}

// VectorInputs builds single-Theta inputs from plain slices. Slices of
// different lengths are kept as-is so Solve can report the mismatch.
func VectorInputs(w, pH, pT, pN, l, lb []float64) Inputs {
	return Inputs{
		W:  column(w),
		PH: column(pH),
		Pt: column(pT),
		Pn: column(pN),
		L:  column(l),
		Lb: column(lb),
	}
}

func column(v []float64) *mat.Dense {
	if len(v) == 0 {
		return nil
	}
	data := make([]float64, len(v))
	copy(data, v)
	return mat.NewDense(len(v), 1, data)
}

// shapes lists the input shapes in the order used by error messages.
func (in Inputs) shapes() []Shape {
	named := []struct {
		name string
		m    *mat.Dense
	}{
		{"L_b", in.Lb}, {"L", in.L}, {"w", in.W},
		{"P_t", in.Pt}, {"p_H", in.PH}, {"p_n", in.Pn},
	}
	out := make([]Shape, 0, len(named))
	for _, n := range named {
		s := Shape{Name: n.name}
		if n.m != nil {
			s.Rows, s.Cols = n.m.Dims()
		}
		out = append(out, s)
	}
	return out
}

// Dims returns the number of locations and Theta columns, or zeros if W is nil.
func (in Inputs) Dims() (locations, theta int) {
	if in.W == nil {
		return 0, 0
	}
	return in.W.Dims()
}

// ColumnResult is the outcome of one Theta column's fixed-point problem.
type ColumnResult struct {
	// QoL holds one relative value per location; QoL[0] == 1.
	QoL        []float64 `json:"qol"`
	Iterations int       `json:"iterations"`
	Objective  float64   `json:"objective"`
	Converged  bool      `json:"converged"`
}

// Result collects the per-column outcomes of a solve.
type Result struct {
	Columns  []ColumnResult `json:"columns"`
	Params   Params         `json:"params"`
	Duration time.Duration  `json:"duration"`
}

// QoL returns the first column's relative QoL vector, the J-length sequence
// callers use in the common single-Theta case.
func (r *Result) QoL() []float64 {
	if r == nil || len(r.Columns) == 0 {
		return nil
	}
	return r.Columns[0].QoL
}

// Converged reports whether every column met the tolerance.
func (r *Result) Converged() bool {
	if r == nil || len(r.Columns) == 0 {
		return false
	}
	for _, c := range r.Columns {
		if !c.Converged {
			return false
		}
	}
	return true
}

// Matrix returns the QoL values as a J×Theta matrix.
func (r *Result) Matrix() *mat.Dense {
	if r == nil || len(r.Columns) == 0 || len(r.Columns[0].QoL) == 0 {
		return nil
	}
	m := mat.NewDense(len(r.Columns[0].QoL), len(r.Columns), nil)
	for t, c := range r.Columns {
		m.SetCol(t, c.QoL)
	}
	return m
}
