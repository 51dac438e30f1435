// Package table reads location datasets from CSV or Excel files and extracts
// the six model variables as numeric matrices.
//
// A Table is a header plus string cells. Columns are chosen with a Selector,
// which accepts header names or zero-based indexes; wage and population
// selectors may name several columns, one per Theta problem instance.
//
//	t, err := table.NewLoader(logger).Load(ctx, "data.xlsx", "")
//	in, err := table.Extract(t, table.DefaultColumns())
package table
