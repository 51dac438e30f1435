package table

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"abrsqol/internal/qol"
)

// Selector names one or more columns by header or zero-based index.
type Selector []string

// ParseSelector splits a comma-separated list such as "w_2010,w_2020".
func ParseSelector(s string) Selector {
	var sel Selector
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			sel = append(sel, part)
		}
	}
	return sel
}

func (s Selector) String() string { return strings.Join(s, ",") }

// Columns selects the six model variables. W, L and Lb may select several
// columns; prices select one column or one per wage column.
type Columns struct {
	W  Selector `json:"w" yaml:"w"`
	PH Selector `json:"p_H" yaml:"p_H"`
	Pt Selector `json:"P_t" yaml:"P_t"`
	Pn Selector `json:"p_n" yaml:"p_n"`
	L  Selector `json:"L" yaml:"L"`
	Lb Selector `json:"L_b" yaml:"L_b"`
}

// DefaultColumns uses the conventional variable names as headers.
func DefaultColumns() Columns {
	return Columns{
		W:  Selector{"w"},
		PH: Selector{"p_H"},
		Pt: Selector{"P_t"},
		Pn: Selector{"p_n"},
		L:  Selector{"L"},
		Lb: Selector{"L_b"},
	}
}

// Extract reads the selected columns into solver inputs. Shape agreement is
// left to the solver so that mismatches are reported in one place.
func Extract(t *Table, cols Columns) (qol.Inputs, error) {
	if t.NumRows() == 0 {
		return qol.Inputs{}, ErrEmptyTable
	}

	var in qol.Inputs
	targets := []struct {
		name string
		sel  Selector
		dst  **mat.Dense
	}{
		{"w", cols.W, &in.W},
		{"p_H", cols.PH, &in.PH},
		{"P_t", cols.Pt, &in.Pt},
		{"p_n", cols.Pn, &in.Pn},
		{"L", cols.L, &in.L},
		{"L_b", cols.Lb, &in.Lb},
	}
	for _, target := range targets {
		m, err := t.matrix(target.sel)
		if err != nil {
			return qol.Inputs{}, fmt.Errorf("extract %s: %w", target.name, err)
		}
		*target.dst = m
	}
	return in, nil
}

// matrix returns the selected columns as a rows×len(sel) matrix.
func (t *Table) matrix(sel Selector) (*mat.Dense, error) {
	if len(sel) == 0 {
		return nil, fmt.Errorf("%w: empty selector", ErrColumnNotFound)
	}
	m := mat.NewDense(t.NumRows(), len(sel), nil)
	for c, key := range sel {
		idx, err := t.Index(key)
		if err != nil {
			return nil, err
		}
		values, err := t.Floats(idx)
		if err != nil {
			return nil, err
		}
		m.SetCol(c, values)
	}
	return m, nil
}
