// Package escalation evaluates manifest escalation rules against a run's signals.
package escalation
