// Package workers implements the worker pool that executes submitted runs.
//
// The worker pool manages a fixed number of goroutines that:
//   - Drain a bounded queue of run jobs
//   - Execute each run through the coordinator
//   - Report the outcome back to the submitter
//
// Runs on different workers proceed concurrently; lanes inside the
// coordinator still bound how much work of each kind executes at once.
// The health monitor tracks worker status and records metrics.
package workers
