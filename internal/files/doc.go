// Package files discovers input tables on disk for batch inversions.
//
// Discovery lists the CSV and XLSX files of a directory in a stable order;
// OutputPath derives where the result for each of them is written.
//
//	tables, err := files.NewDiscovery("").FindTables("inputs")
//	for _, f := range tables {
//	    out := files.OutputPath("results", f.Name, "_qol")
//	    ...
//	}
package files
