// Package orchestrator implements the core orchestration logic for wave execution.
//
// The coordinator drives a run by:
//   - Walking manifests in priority order
//   - Checking eligibility against the signals available so far
//   - Gating waves on config bindings and bounding them by lane
//   - Turning wave failures and panics into onFailure signals
//   - Broadcasting every appended signal through the dispatcher
//
// The manager layers asynchronous runs on top: it queues runs on the worker
// pool, tracks them until they finish and persists their records.
package orchestrator
