// Package qol inverts a relative quality-of-life (QoL) measure from observed
// local economic data.
//
// The measure follows Ahlfeldt, Bald, Roth and Seidel (2024), "Measuring quality
// of life under spatial frictions". Unlike the Rosen-Roback measure it accounts
// for mobility frictions (idiosyncratic tastes and local ties) and trade
// frictions (trade costs and non-tradable services).
//
// # Identification
//
// QoL is identified up to a multiplicative constant. Every result is therefore
// normalized to the first location, whose value is exactly 1. Rescaling to any
// other reference (a different location, the mean or the median) is a single
// division.
//
// # Algorithm
//
// For each problem instance (a Theta column) the solver:
//
//  1. rescales hometown population Lb so its total matches residence population L,
//  2. expresses wages, prices and population relative to the first location,
//  3. builds the aggregate price index P = Pt^(αβ) · pn^(α(1-β)) · pH^(1-α),
//  4. iterates the fixed point below until the mean absolute change falls to
//     the tolerance or the iteration cap is hit.
//
// Each iteration computes
//
//	nom   = (A·w/P)^γ
//	Ψ_b   = [(e^ξ - 1)·nom/Σnom + 1]^-1
//	ℒ     = Σ(Lb·Ψ_b) + Lb·Ψ_b·(e^ξ - 1)
//	A_new = P_hat · (1/w_hat) · (L_hat/ℒ_hat)^(1/γ)
//	A     = conv·A_new + (1-conv)·A
//
// Theta columns are independent problems and are solved concurrently.
// Reaching the iteration cap is not an error: the result reports Converged=false
// together with the last objective value.
//
// # Usage
//
//	params := qol.DefaultParams()
//	inv, err := qol.NewInverter(params, qol.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	res, err := inv.Solve(ctx, qol.VectorInputs(w, pH, pT, pN, l, lb))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.QoL(), res.Converged())
package qol
