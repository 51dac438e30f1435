// Package exporter writes QoL results as CSV or Excel tables.
//
// CSVWriter and XLSXWriter handle the file formats. Exporter combines the
// loaded input table with one QoL column per Theta column and writes it in
// the format chosen by the output extension. Excel output also carries a
// "solver" sheet with iterations, final objective and convergence per column.
//
// Example usage:
//
//	exp := exporter.NewExporter(logger)
//	err := exp.Export(ctx, "out/qol.xlsx", tbl, res)
package exporter
