// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Manifest inspection, dependency graph and pending wave planning
//   - Escalation checks against caller supplied signals
//   - Run submission, status queries and cancellation
//   - Health checks
//   - Prometheus metrics
package http
