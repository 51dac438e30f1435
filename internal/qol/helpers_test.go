package qol

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// randomInputs builds j locations and theta columns of mild perturbations
// around a common level. The same seed always yields the same inputs.
func randomInputs(seed int64, j, theta int) Inputs {
	r := rand.New(rand.NewSource(seed))
	perturb := func(base, spread float64, cols int) *mat.Dense {
		data := make([]float64, j*cols)
		for i := range data {
			data[i] = base * (1 + spread*(2*r.Float64()-1))
		}
		return mat.NewDense(j, cols, data)
	}
	return Inputs{
		W:  perturb(1, 0.2, theta),
		PH: perturb(1, 0.4, 1),
		Pt: perturb(1, 0.05, 1),
		Pn: perturb(1, 0.2, 1),
		L:  perturb(1000, 0.5, theta),
		Lb: perturb(1000, 0.5, theta),
	}
}
