// Package domain defines the data model shared by the orchestrator and its adapters.
//
// The main types are:
//   - Manifest: the declarative contract of a wave (dependencies, emissions, lane, escalation)
//   - Signal: a confidence-scored fact emitted by a wave
//   - SignalEvent: a read-only, timestamped snapshot broadcast to observers
//   - Value: a tagged variant carrying signal and config values
//   - RunRecord: the persisted outcome of an asynchronous run
package domain
