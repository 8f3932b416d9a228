package manifests

import (
	"fmt"

	"github.com/aescanero/waveorch/pkg/domain"
)

// Validator validates manifest sets
type Validator struct{}

// NewValidator creates a new manifest validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a manifest set for structural problems and duplicate names
func (v *Validator) Validate(manifests []domain.Manifest) error {
	names := make(map[string]bool, len(manifests))
	for i, m := range manifests {
		if m.Name == "" {
			return fmt.Errorf("manifest at position %d: name is required", i)
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate manifest name: %s", m.Name)
		}
		names[m.Name] = true

		if err := v.validateManifest(m); err != nil {
			return fmt.Errorf("invalid manifest %s: %w", m.Name, err)
		}
	}
	return nil
}

// validateManifest validates a single manifest
func (v *Validator) validateManifest(m domain.Manifest) error {
	if m.Lane.MaxConcurrency < 0 {
		return fmt.Errorf("lane %s: maxConcurrency must not be negative", m.LaneName())
	}

	for _, key := range append(append([]string{}, m.Listens.Required...), m.Listens.Optional...) {
		if key == "" {
			return fmt.Errorf("listens: empty signal key")
		}
	}

	for _, spec := range m.Emits.OnComplete {
		if spec.Key == "" {
			return fmt.Errorf("emits.onComplete: key is required")
		}
		if spec.MinConfidence < 0 || spec.MinConfidence > 1 || spec.MaxConfidence < 0 || spec.MaxConfidence > 1 {
			return fmt.Errorf("emits.onComplete %s: confidence bounds must be within [0, 1]", spec.Key)
		}
		if spec.MaxConfidence > 0 && spec.MinConfidence > spec.MaxConfidence {
			return fmt.Errorf("emits.onComplete %s: minConfidence %.2f exceeds maxConfidence %.2f",
				spec.Key, spec.MinConfidence, spec.MaxConfidence)
		}
	}

	for _, b := range m.Config.Bindings {
		if b.ConfigKey == "" {
			return fmt.Errorf("config binding: configKey is required")
		}
	}

	for target, rule := range m.Escalation.Targets {
		if target == "" {
			return fmt.Errorf("escalation: empty target name")
		}
		for _, c := range append(append([]domain.Condition{}, rule.When...), rule.SkipWhen...) {
			if c.Signal == "" {
				return fmt.Errorf("escalation target %s: condition without signal", target)
			}
		}
	}

	return nil
}
