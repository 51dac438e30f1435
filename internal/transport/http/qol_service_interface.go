package http

import (
	"context"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

// QoLService is the part of services.QoLService the handlers use.
type QoLService interface {
	// Defaults returns the configured model parameters.
	Defaults() qol.Params

	// Columns returns the configured column selectors.
	Columns() table.Columns

	// Solve inverts in with params. observer may be nil.
	Solve(ctx context.Context, in qol.Inputs, params qol.Params, observer qol.Observer) (*qol.Result, error)
}
