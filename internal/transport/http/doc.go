// Package http implements the HTTP handlers of the QoL server. Handlers are
// a thin layer over the services package: they decode and validate
// requests, call the service and render the response.
//
// # Endpoints
//
//	GET  /api/v1/qol/defaults  configured parameters and column selectors
//	POST /api/v1/qol/invert    one inversion, JSON in and out
//	GET  /api/v1/qol/stream    websocket stream of one inversion
//	POST   /api/v1/jobs       queue an inversion, answers 202
//	GET    /api/v1/jobs       list jobs, newest first
//	GET    /api/v1/jobs/{id}  job status, progress and result
//	DELETE /api/v1/jobs/{id}  cancel a pending or running job
//	GET  /healthz /readyz /livez /version
//
// # Requests
//
// An invert request carries either column blocks or rows:
//
//	{"columns": {"w": [1, 1.1], "p_H": [1, 1.3], "P_t": [1, 1.02],
//	             "p_n": [1, 1.1], "L": [1000, 1500], "L_b": [1100, 1400]},
//	 "params": {"xi": 4.5}}
//
//	{"rows": [{"id": "a", "w": 1, "p_H": 1, "P_t": 1, "p_n": 1, "L": 1000, "L_b": 1100}, ...]}
//
// A column block is a flat array (one value per location) or an array of
// rows for several Theta columns. Params override the server defaults field
// by field.
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler.
// Shape mismatches and malformed bodies answer 400, invalid values and
// parameters 422, a solve timeout 504. Job requests are
// validated the same way before they are queued; a full or stopped queue
// answers 503 with Retry-After, cancelling a finished job 409. The stream endpoint sends the same
// status and problem type in an "error" message before closing.
package http
