package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ocrManifest = `
name: ocr
priority: 50
tags: [vision]
lane:
  name: ocr
  maxConcurrency: 2
listens:
  required: [doc.ready]
  optional: [doc.lang]
emits:
  onStart: [ocr.started]
  onComplete:
    - key: ocr.text
      type: string
      minConfidence: 0.5
      maxConfidence: 1
  onFailure: [wave.failed.ocr]
cache:
  emits:
    - key: ocr.pages
      type: image
  uses: [doc.raw]
config:
  bindings:
    - configKey: ocr
      skipIfFalse: true
escalation:
  targets:
    llm:
      when:
        - signal: ocr.confidence
          condition: "< 0.6"
        - signal: doc.kind
          value: handwritten
      skipWhen:
        - signal: budget.exhausted
          condition: IsTrue
`

func TestParseFullManifest(t *testing.T) {
	ms, err := Parse([]byte(ocrManifest))
	require.NoError(t, err)
	require.Len(t, ms, 1)

	m := ms[0]
	assert.Equal(t, "ocr", m.Name)
	assert.True(t, m.Enabled)
	assert.Equal(t, 50, m.Priority)
	assert.Equal(t, domain.Lane{Name: "ocr", MaxConcurrency: 2}, m.Lane)
	assert.Equal(t, []string{"doc.ready"}, m.Listens.Required)
	assert.Equal(t, []string{"doc.lang"}, m.Listens.Optional)
	assert.Equal(t, []string{"ocr.started"}, m.Emits.OnStart)
	require.Len(t, m.Emits.OnComplete, 1)
	assert.Equal(t, 0.5, m.Emits.OnComplete[0].MinConfidence)
	assert.Equal(t, []string{"wave.failed.ocr"}, m.Emits.OnFailure)
	assert.Equal(t, "ocr.pages", m.Cache.Emits[0].Key)
	assert.Equal(t, []domain.ConfigBinding{{ConfigKey: "ocr", SkipIfFalse: true}}, m.Config.Bindings)

	rule := m.Escalation.Targets["llm"]
	require.Len(t, rule.When, 2)
	assert.Equal(t, "< 0.6", rule.When[0].Condition)
	require.NotNil(t, rule.When[1].Value)
	assert.True(t, rule.When[1].Value.Equal(domain.String("handwritten")))
	assert.Equal(t, "IsTrue", rule.SkipWhen[0].Condition)
}

func TestParseMultiDocument(t *testing.T) {
	data := []byte("name: first\n---\n# comment only\n---\nname: second\nenabled: false\n")

	ms, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "first", ms[0].Name)
	assert.True(t, ms[0].Enabled)
	assert.Equal(t, "second", ms[1].Name)
	assert.False(t, ms[1].Enabled)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.Error(t, err)

	_, err = Parse([]byte("priority: high\n"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("20-classify.yml", "name: classify\n")
	write("10-ingest.yaml", "name: ingest\n---\nname: ocr\n")
	write("README.md", "not a manifest")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o700))

	ms, err := NewLoader(zap.NewNop()).LoadDir(dir)
	require.NoError(t, err)

	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"ingest", "ocr", "classify"}, names)
}

func TestLoadDirMissing(t *testing.T) {
	_, err := NewLoader(zap.NewNop()).LoadDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
