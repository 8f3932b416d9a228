// Package ports defines the interfaces between the orchestration core and
// its collaborators: waves, event buses, run storage and metrics.
package ports
