// Package domain contains the data shapes shared by the QoL command line
// tools and the HTTP API.
package domain

// ModelParams carries the structural parameters and the stopping rule in
// API payloads.
type ModelParams struct {
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Gamma     float64 `json:"gamma"`
	Xi        float64 `json:"xi"`
	Conv      float64 `json:"conv"`
	Tolerance float64 `json:"tolerance"`
	MaxIter   int     `json:"maxiter"`
}

// ParamsOverride replaces only the fields that are set.
type ParamsOverride struct {
	Alpha     *float64 `json:"alpha,omitempty"`
	Beta      *float64 `json:"beta,omitempty"`
	Gamma     *float64 `json:"gamma,omitempty"`
	Xi        *float64 `json:"xi,omitempty"`
	Conv      *float64 `json:"conv,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
	MaxIter   *int     `json:"maxiter,omitempty"`
}

// Apply returns p with the set fields of o replaced. A nil override returns p.
func (o *ParamsOverride) Apply(p ModelParams) ModelParams {
	if o == nil {
		return p
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&p.Alpha, o.Alpha)
	setFloat(&p.Beta, o.Beta)
	setFloat(&p.Gamma, o.Gamma)
	setFloat(&p.Xi, o.Xi)
	setFloat(&p.Conv, o.Conv)
	setFloat(&p.Tolerance, o.Tolerance)
	if o.MaxIter != nil {
		p.MaxIter = *o.MaxIter
	}
	return p
}

// LocationRow is one location's observations in a row-oriented request.
type LocationRow struct {
	ID string  `json:"id,omitempty"`
	W  float64 `json:"w"`
	PH float64 `json:"p_H"`
	Pt float64 `json:"P_t"`
	Pn float64 `json:"p_n"`
	L  float64 `json:"L"`
	Lb float64 `json:"L_b"`
}

// ColumnResult is the solved QoL vector of one Theta column.
type ColumnResult struct {
	QoL        []float64 `json:"qol"`
	Iterations int       `json:"iterations"`
	Objective  float64   `json:"objective"`
	Converged  bool      `json:"converged"`
}
