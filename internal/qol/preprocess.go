package qol

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// problem is the read-only state shared by all column solves.
type problem struct {
	locations int
	theta     int

	// Per location, shared across columns when prices are J×1.
	pHat [][]float64
	p    [][]float64

	// Per column.
	w    [][]float64
	wHat [][]float64
	lHat [][]float64
	lb   [][]float64

	tiesFactor float64 // e^xi - 1
}

// Validate reports the first shape or value problem Solve would reject in
// with. It does not run the solver.
func (in Inputs) Validate() error {
	if err := checkDims(in); err != nil {
		return err
	}
	return checkValues(in)
}

// checkDims enforces the shape contract before any value is read.
func checkDims(in Inputs) error {
	shapes := in.shapes()
	for _, s := range shapes {
		if s.Rows == 0 {
			return fmt.Errorf("%w: %s", ErrMissingInput, s.Name)
		}
	}

	rows := shapes[0].Rows
	for _, s := range shapes[1:] {
		if s.Rows != rows {
			return &DimensionMismatchError{Axis: "rows", Shapes: shapes}
		}
	}

	// L_b, L and w carry Theta; prices may broadcast from a single column.
	theta := shapes[0].Cols
	for _, s := range shapes[1:3] {
		if s.Cols != theta {
			return &DimensionMismatchError{Axis: "columns", Shapes: shapes[:3]}
		}
	}
	for _, s := range shapes[3:] {
		if s.Cols != 1 && s.Cols != theta {
			return &DimensionMismatchError{Axis: "columns", Shapes: shapes}
		}
	}
	return nil
}

// checkValues rejects values the model cannot interpret: wages and prices
// must be strictly positive, populations non-negative, and the reference
// location must have positive residence population.
func checkValues(in Inputs) error {
	positive := []struct {
		name string
		m    *mat.Dense
	}{{"w", in.W}, {"p_H", in.PH}, {"P_t", in.Pt}, {"p_n", in.Pn}}
	for _, v := range positive {
		if err := eachCell(v.name, v.m, func(x float64) string {
			if x <= 0 {
				return "must be positive"
			}
			return ""
		}); err != nil {
			return err
		}
	}

	population := []struct {
		name string
		m    *mat.Dense
	}{{"L", in.L}, {"L_b", in.Lb}}
	for _, v := range population {
		if err := eachCell(v.name, v.m, func(x float64) string {
			if x < 0 {
				return "must not be negative"
			}
			return ""
		}); err != nil {
			return err
		}
	}

	_, theta := in.L.Dims()
	for t := 0; t < theta; t++ {
		if in.L.At(0, t) <= 0 {
			return &InputError{Variable: "L", Row: 0, Col: t, Value: in.L.At(0, t), Reason: "reference location needs positive population"}
		}
		if floats.Sum(mat.Col(nil, t, in.Lb)) <= 0 {
			return &InputError{Variable: "L_b", Row: 0, Col: t, Value: 0, Reason: "column total must be positive"}
		}
	}
	return nil
}

func eachCell(name string, m *mat.Dense, check func(float64) string) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x := m.At(i, j)
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return &InputError{Variable: name, Row: i, Col: j, Value: x, Reason: "must be finite"}
			}
			if reason := check(x); reason != "" {
				return &InputError{Variable: name, Row: i, Col: j, Value: x, Reason: reason}
			}
		}
	}
	return nil
}

// prepare validates the inputs and computes every quantity that stays fixed
// across iterations.
func prepare(in Inputs, params Params) (*problem, error) {
	if err := checkDims(in); err != nil {
		return nil, err
	}
	if err := checkValues(in); err != nil {
		return nil, err
	}

	j, theta := in.W.Dims()
	pr := &problem{
		locations:  j,
		theta:      theta,
		tiesFactor: math.Exp(params.Xi) - 1,
	}

	_, priceCols := in.Pt.Dims()
	_, hCols := in.PH.Dims()
	_, nCols := in.Pn.Dims()
	if hCols > priceCols {
		priceCols = hCols
	}
	if nCols > priceCols {
		priceCols = nCols
	}
	aT, aN, aH := params.priceWeights()
	for t := 0; t < priceCols; t++ {
		pt := broadcastCol(in.Pt, t)
		ph := broadcastCol(in.PH, t)
		pn := broadcastCol(in.Pn, t)

		p := make([]float64, j)
		pHat := make([]float64, j)
		for i := 0; i < j; i++ {
			p[i] = math.Pow(pt[i], aT) * math.Pow(pn[i], aN) * math.Pow(ph[i], aH)
			pHat[i] = math.Pow(pt[i]/pt[0], aT) * math.Pow(pn[i]/pn[0], aN) * math.Pow(ph[i]/ph[0], aH)
		}
		pr.p = append(pr.p, p)
		pr.pHat = append(pr.pHat, pHat)
	}

	for t := 0; t < theta; t++ {
		w := mat.Col(nil, t, in.W)
		l := mat.Col(nil, t, in.L)
		lb := mat.Col(nil, t, in.Lb)

		// Hometown totals must match residence totals.
		floats.Scale(floats.Sum(l)/floats.Sum(lb), lb)

		pr.w = append(pr.w, w)
		pr.wHat = append(pr.wHat, relative(w))
		pr.lHat = append(pr.lHat, relative(l))
		pr.lb = append(pr.lb, lb)
	}
	return pr, nil
}

// prices returns the price index vectors for column t.
func (pr *problem) prices(t int) (p, pHat []float64) {
	if len(pr.p) == 1 {
		return pr.p[0], pr.pHat[0]
	}
	return pr.p[t], pr.pHat[t]
}

// broadcastCol returns column t of m, or its only column.
func broadcastCol(m *mat.Dense, t int) []float64 {
	_, c := m.Dims()
	if c == 1 {
		t = 0
	}
	return mat.Col(nil, t, m)
}

// relative divides v by its first element.
func relative(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / v[0]
	}
	return out
}
