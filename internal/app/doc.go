// Package app wires the inversion server together: telemetry providers,
// the QoL and health services, the chi router with its middleware chain,
// and the HTTP server lifecycle.
//
// # Initialization Flow
//
//	1. Initialize OpenTelemetry (tracer, meter, Prometheus registry)
//	2. Create application and stream metrics
//	3. Build the QoL and health services
//	4. Start the job queue workers and register their gauges
//	5. Mount routes and middleware
//	6. Create the http.Server from the server config
//
// # Routes
//
//	GET  /healthz, /readyz, /livez, /version
//	GET  /api/v1/qol/defaults
//	POST /api/v1/qol/invert
//	GET  /api/v1/qol/stream   (WebSocket)
//	POST /api/v1/jobs         submit an inversion, 202 with Location
//	GET  /api/v1/jobs         list jobs (?status=, ?limit=)
//	GET  /api/v1/jobs/{id}    poll a job
//	DELETE /api/v1/jobs/{id}  cancel a pending or running job
//	GET  /metrics             (when telemetry is enabled)
//
// The stream route sits outside the middleware group so the connection can
// be hijacked by the WebSocket upgrader.
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM and then shuts the server, the job
// queue and the telemetry providers down within Server.ShutdownTimeout.
// Errors are returned to the caller; the package never calls os.Exit.
package app
