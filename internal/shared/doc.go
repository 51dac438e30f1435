// Package shared holds helpers used by more than one package and owned by
// none of them.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, a slog.Handler that records every log line
//   - NewTestLogger plus assertions over captured records
//   - Location dataset fixtures shared by the table, service and transport tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    svc := services.NewQoLService(logger)
//	    // ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "converged")
//	}
package shared
