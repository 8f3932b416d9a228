package signals

import (
	"strings"
	"sync"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
)

var _ ports.SignalReader = (*Context)(nil)

// Scalar is the set of types GetValue can coerce to
type Scalar interface {
	bool | float64 | int | string
}

// Context accumulates the signals of one run together with its config.
// It is safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	signals   []domain.Signal
	byKey     map[string][]int
	available Availability
	config    map[string]domain.Value
}

// NewContext creates an empty context
func NewContext() *Context {
	return &Context{
		byKey:     make(map[string][]int),
		available: make(Availability),
		config:    make(map[string]domain.Value),
	}
}

// WithConfig creates a context seeded with config values.
// Keys may be given with or without the config. prefix.
func WithConfig(config map[string]domain.Value) *Context {
	c := NewContext()
	for k, v := range config {
		c.SetConfig(k, v)
	}
	return c
}

// SetConfig sets a config value
func (c *Context) SetConfig(key string, value domain.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config[strings.TrimPrefix(key, domain.ConfigPrefix)] = value
}

// Config returns a copy of the config values, keyed without prefix
func (c *Context) Config() map[string]domain.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.Value, len(c.config))
	for k, v := range c.config {
		out[k] = v
	}
	return out
}

// Append records a signal and marks its key available
func (c *Context) Append(s domain.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey[s.Key] = append(c.byKey[s.Key], len(c.signals))
	c.signals = append(c.signals, s)
	c.available[s.Key] = struct{}{}
}

// Signals returns a copy of the accumulated signals in emission order
func (c *Context) Signals() []domain.Signal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Signal, len(c.signals))
	copy(out, c.signals)
	return out
}

// Len returns the number of accumulated signals
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.signals)
}

// Available returns a snapshot of the keys seen so far
func (c *Context) Available() Availability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available.Clone()
}

// Has reports whether a signal with key has been appended
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available.Has(key)
}

// BestSignal returns the highest-confidence signal for key.
// Ties go to the most recently appended one.
func (c *Context) BestSignal(key string) (domain.Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.best(key)
}

func (c *Context) best(key string) (domain.Signal, bool) {
	idx := c.byKey[key]
	if len(idx) == 0 {
		return domain.Signal{}, false
	}
	best := c.signals[idx[0]]
	for _, i := range idx[1:] {
		if c.signals[i].Confidence >= best.Confidence {
			best = c.signals[i]
		}
	}
	return best, true
}

// Value looks up key among signals first, then among config values for
// config.<k> keys. Missing keys yield the null value.
func (c *Context) Value(key string) domain.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.best(key); ok {
		return s.Value
	}
	if strings.HasPrefix(key, domain.ConfigPrefix) {
		if v, ok := c.config[strings.TrimPrefix(key, domain.ConfigPrefix)]; ok {
			return v
		}
	}
	return domain.Null()
}

// Bool returns the value of key as a bool, or false
func (c *Context) Bool(key string) bool {
	b, _ := c.Value(key).AsBool()
	return b
}

// Number returns the value of key as a float64, or 0
func (c *Context) Number(key string) float64 {
	n, _ := c.Value(key).AsNumber()
	return n
}

// Int returns the value of key as an int, or 0
func (c *Context) Int(key string) int {
	n, _ := c.Value(key).AsInt()
	return n
}

// Text returns the value of key as a string, or ""
func (c *Context) Text(key string) string {
	s, _ := c.Value(key).AsString()
	return s
}

// GetValue returns the value of key coerced to T, or the zero value of T
// when the key is missing or the value does not convert.
func GetValue[T Scalar](c *Context, key string) T {
	var zero T
	v := c.Value(key)

	var out any
	var ok bool
	switch any(zero).(type) {
	case bool:
		out, ok = v.AsBool()
	case float64:
		out, ok = v.AsNumber()
	case int:
		out, ok = v.AsInt()
	case string:
		out, ok = v.AsString()
	}
	if !ok {
		return zero
	}
	return out.(T)
}
