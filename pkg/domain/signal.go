package domain

import "time"

const (
	// SkippedPrefix prefixes the signal emitted when a wave is skipped
	SkippedPrefix = "wave.skipped."
	// FailedPrefix prefixes the conventional failure signal of a wave
	FailedPrefix = "wave.failed."
	// ConfigPrefix prefixes config lookups made through an analysis context
	ConfigPrefix = "config."
)

// Signal is a fact emitted by a wave. Signals are immutable once appended to a run.
type Signal struct {
	Key        string            `json:"key"`
	Value      Value             `json:"value"`
	Source     string            `json:"source"`
	Confidence float64           `json:"confidence"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// SignalEvent is the read-only snapshot broadcast to observers when a signal is appended
type SignalEvent struct {
	RunID      string    `json:"run_id"`
	SubjectID  string    `json:"subject_id,omitempty"`
	Key        string    `json:"key"`
	Value      Value     `json:"value"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSignal creates a signal with full confidence stamped with the current time
func NewSignal(key string, value Value, source string) Signal {
	return Signal{
		Key:        key,
		Value:      value,
		Source:     source,
		Confidence: 1.0,
		Timestamp:  time.Now(),
	}
}

// Event snapshots s for broadcast
func (s Signal) Event(runID, subjectID string) SignalEvent {
	return SignalEvent{
		RunID:      runID,
		SubjectID:  subjectID,
		Key:        s.Key,
		Value:      s.Value,
		Source:     s.Source,
		Confidence: s.Confidence,
		Timestamp:  time.Now(),
	}
}

// SkippedKey returns the skip signal key for a wave
func SkippedKey(wave string) string { return SkippedPrefix + wave }

// FailedKey returns the conventional failure signal key for a wave
func FailedKey(wave string) string { return FailedPrefix + wave }

// ConfigKey returns the context key under which a config value is looked up
func ConfigKey(key string) string { return ConfigPrefix + key }
