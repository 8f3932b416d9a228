package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifestLaneName(t *testing.T) {
	assert.Equal(t, DefaultLane, Manifest{}.LaneName())
	assert.Equal(t, "ocr", Manifest{Lane: Lane{Name: "ocr"}}.LaneName())
}

func TestManifestDependsOn(t *testing.T) {
	m := Manifest{Listens: Listens{
		Required: []string{"a", "b"},
		Optional: []string{"b", "c"},
	}}
	assert.Equal(t, []string{"a", "b", "c"}, m.DependsOn())
	assert.Empty(t, Manifest{}.DependsOn())
}

func TestSignalHelpers(t *testing.T) {
	s := NewSignal("doc.ready", Bool(true), "ingest")
	assert.Equal(t, 1.0, s.Confidence)
	assert.False(t, s.Timestamp.IsZero())

	e := s.Event("run-1", "subj-1")
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "subj-1", e.SubjectID)
	assert.Equal(t, "doc.ready", e.Key)
	assert.Equal(t, "ingest", e.Source)

	assert.Equal(t, "wave.skipped.ocr", SkippedKey("ocr"))
	assert.Equal(t, "wave.failed.ocr", FailedKey("ocr"))
	assert.Equal(t, "config.ocr", ConfigKey("ocr"))
}

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunStatusPending.IsTerminal())
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusCancelled.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
}
