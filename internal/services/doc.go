// Package services implements the application layer shared by the command
// line tools and the HTTP server. It sits between the transports and the
// solver so that loading, solving and exporting behave the same everywhere.
//
// # Available Services
//
//	- QoLService: loads tables, solves the quality-of-life fixed point and
//	  exports results, bounding each solve by the configured timeout
//	- HealthService: liveness, readiness and version reporting
//
// # Common Service Pattern
//
// Services receive their dependencies through the constructor and take a
// context on every blocking call:
//
//	svc, err := services.NewQoLService(cfg, logger, providers.Meter)
//	if err != nil {
//	    return err
//	}
//	out, err := svc.InvertFile(ctx, services.FileJob{
//	    InputPath:  "locations.xlsx",
//	    OutputPath: "qol.csv",
//	    Columns:    cfg.TableColumns(),
//	    Params:     cfg.ModelParams(),
//	})
//
// # Error Handling
//
// Solver and table errors are returned wrapped but unchanged in kind, so
// transports can classify them with errors.Is and errors.As. A solve that
// outlives Solver.Timeout fails with ErrSolveTimeout wrapping
// context.DeadlineExceeded. Reaching the iteration cap is not an error; it
// shows up as Converged=false in the result.
//
// # Observability
//
// Every job is counted in qol_jobs_total by source (file or request) and
// status (converged, capped or failed). Solver progress is logged through
// qol.LogObserver and measured through qol.MetricsObserver.
package services
