// Package lanes implements lane-scoped concurrency limits.
//
// A lane is a named counting limiter. Every wave referencing the same lane
// name contends for the same slots, across all runs sharing the limiter.
package lanes
