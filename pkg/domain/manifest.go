package domain

// Manifest describes one wave's contract: what it listens on, what it emits,
// which lane bounds it and when it escalates.
type Manifest struct {
	Name       string         `json:"name" yaml:"name"`
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Priority   int            `json:"priority" yaml:"priority"`
	Tags       []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Lane       Lane           `json:"lane" yaml:"lane"`
	Listens    Listens        `json:"listens" yaml:"listens"`
	Emits      Emits          `json:"emits" yaml:"emits"`
	Cache      Cache          `json:"cache" yaml:"cache"`
	Config     ManifestConfig `json:"config" yaml:"config"`
	Escalation Escalation     `json:"escalation" yaml:"escalation"`
}

// Lane names the concurrency domain a wave runs in
type Lane struct {
	Name           string `json:"name" yaml:"name"`
	MaxConcurrency int    `json:"maxConcurrency" yaml:"maxConcurrency"`
}

// Listens lists the signal keys a wave depends on
type Listens struct {
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
	Optional []string `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Emits lists the signals a wave produces at each lifecycle point
type Emits struct {
	OnStart    []string     `json:"onStart,omitempty" yaml:"onStart,omitempty"`
	OnComplete []SignalSpec `json:"onComplete,omitempty" yaml:"onComplete,omitempty"`
	OnFailure  []string     `json:"onFailure,omitempty" yaml:"onFailure,omitempty"`
}

// SignalSpec documents a signal emitted on completion
type SignalSpec struct {
	Key           string  `json:"key" yaml:"key"`
	Type          string  `json:"type,omitempty" yaml:"type,omitempty"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty"`
	MinConfidence float64 `json:"minConfidence" yaml:"minConfidence"`
	MaxConfidence float64 `json:"maxConfidence" yaml:"maxConfidence"`
}

// Cache declares cached artefacts a wave produces or consumes
type Cache struct {
	Emits []CacheSpec `json:"emits,omitempty" yaml:"emits,omitempty"`
	Uses  []string    `json:"uses,omitempty" yaml:"uses,omitempty"`
}

// CacheSpec names one cached artefact
type CacheSpec struct {
	Key  string `json:"key" yaml:"key"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// ManifestConfig holds config bindings that gate a wave
type ManifestConfig struct {
	Bindings []ConfigBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

// ConfigBinding ties a wave to a config key. With SkipIfFalse set,
// the wave is skipped when config.<ConfigKey> is false.
type ConfigBinding struct {
	ConfigKey   string `json:"configKey" yaml:"configKey"`
	SkipIfFalse bool   `json:"skipIfFalse" yaml:"skipIfFalse"`
}

// Escalation maps target names to the rules deciding whether to escalate to them
type Escalation struct {
	Targets map[string]EscalationRule `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// EscalationRule triggers when any When condition holds, unless a SkipWhen condition holds first
type EscalationRule struct {
	When     []Condition `json:"when,omitempty" yaml:"when,omitempty"`
	SkipWhen []Condition `json:"skipWhen,omitempty" yaml:"skipWhen,omitempty"`
}

// Condition tests one signal, either by literal equality (Value) or with a named predicate (Condition)
type Condition struct {
	Signal    string `json:"signal" yaml:"signal"`
	Value     *Value `json:"value,omitempty" yaml:"value,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// LaneName returns the lane the manifest runs in, falling back to DefaultLane
func (m Manifest) LaneName() string {
	if m.Lane.Name == "" {
		return DefaultLane
	}
	return m.Lane.Name
}

// DependsOn returns the union of required and optional listens, required first
func (m Manifest) DependsOn() []string {
	keys := make([]string, 0, len(m.Listens.Required)+len(m.Listens.Optional))
	seen := make(map[string]bool, cap(keys))
	for _, list := range [][]string{m.Listens.Required, m.Listens.Optional} {
		for _, k := range list {
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// DefaultLane is used by manifests that do not name a lane
const DefaultLane = "default"
