package manifests

import (
	"testing"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *domain.Manifest)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(m *domain.Manifest) {},
		},
		{
			name:    "missing name",
			mutate:  func(m *domain.Manifest) { m.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "negative concurrency",
			mutate:  func(m *domain.Manifest) { m.Lane.MaxConcurrency = -1 },
			wantErr: "maxConcurrency",
		},
		{
			name:    "empty listen key",
			mutate:  func(m *domain.Manifest) { m.Listens.Optional = []string{""} },
			wantErr: "empty signal key",
		},
		{
			name: "confidence out of range",
			mutate: func(m *domain.Manifest) {
				m.Emits.OnComplete = []domain.SignalSpec{{Key: "k", MaxConfidence: 1.5}}
			},
			wantErr: "confidence bounds",
		},
		{
			name: "min above max",
			mutate: func(m *domain.Manifest) {
				m.Emits.OnComplete = []domain.SignalSpec{{Key: "k", MinConfidence: 0.8, MaxConfidence: 0.5}}
			},
			wantErr: "exceeds maxConfidence",
		},
		{
			name: "binding without key",
			mutate: func(m *domain.Manifest) {
				m.Config.Bindings = []domain.ConfigBinding{{SkipIfFalse: true}}
			},
			wantErr: "configKey is required",
		},
		{
			name: "condition without signal",
			mutate: func(m *domain.Manifest) {
				m.Escalation.Targets = map[string]domain.EscalationRule{
					"llm": {When: []domain.Condition{{Condition: "IsTrue"}}},
				}
			},
			wantErr: "condition without signal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := domain.Manifest{Name: "ocr", Enabled: true}
			tt.mutate(&m)

			err := NewValidator().Validate([]domain.Manifest{m})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
