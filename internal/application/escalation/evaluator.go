package escalation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
)

// Named predicates understood in Condition.Condition
const (
	HasValue           = "HasValue"
	IsNullOrWhiteSpace = "IsNullOrWhiteSpace"
	IsNullOrEmpty      = "IsNullOrEmpty"
	IsTrue             = "IsTrue"
	IsFalse            = "IsFalse"
)

// Evaluator decides whether a manifest escalates to a target. It holds no state.
type Evaluator struct{}

// NewEvaluator creates an evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// ShouldEscalate evaluates the rule for target. A matching skip condition
// wins over any trigger condition.
func (e *Evaluator) ShouldEscalate(m domain.Manifest, target string, signals ports.SignalReader) bool {
	rule, ok := m.Escalation.Targets[target]
	if !ok {
		return false
	}

	for _, c := range rule.SkipWhen {
		if e.Evaluate(c, signals) {
			return false
		}
	}
	for _, c := range rule.When {
		if e.Evaluate(c, signals) {
			return true
		}
	}
	return false
}

// Targets returns the sorted names of every target m should escalate to
func (e *Evaluator) Targets(m domain.Manifest, signals ports.SignalReader) []string {
	var out []string
	for target := range m.Escalation.Targets {
		if e.ShouldEscalate(m, target, signals) {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// Evaluate tests a single condition
func (e *Evaluator) Evaluate(c domain.Condition, signals ports.SignalReader) bool {
	v := signals.Value(c.Signal)

	switch {
	case c.Value != nil:
		return v.Equal(*c.Value)
	case c.Condition != "":
		return predicate(strings.TrimSpace(c.Condition), v)
	default:
		return !v.IsNull()
	}
}

// predicate applies a named predicate or a numeric comparison such as "> 0"
func predicate(name string, v domain.Value) bool {
	switch name {
	case HasValue:
		return !v.IsBlank()
	case IsNullOrWhiteSpace:
		return v.IsBlank()
	case IsNullOrEmpty:
		if s, ok := v.AsString(); ok && v.Kind() == domain.KindString {
			return s == ""
		}
		return v.IsNull()
	case IsTrue:
		b, ok := v.AsBool()
		return ok && b
	case IsFalse:
		b, ok := v.AsBool()
		return ok && !b
	}

	op, operand, ok := parseComparison(name)
	if !ok || v.Kind() == domain.KindBool {
		return false
	}
	n, ok := v.AsNumber()
	if !ok {
		return false
	}
	switch op {
	case ">":
		return n > operand
	case ">=":
		return n >= operand
	case "<":
		return n < operand
	case "<=":
		return n <= operand
	case "==":
		return n == operand
	case "!=":
		return n != operand
	}
	return false
}

// parseComparison splits "<op> <number>" into its parts
func parseComparison(expr string) (string, float64, bool) {
	for _, op := range []string{">=", "<=", "==", "!=", ">", "<"} {
		if !strings.HasPrefix(expr, op) {
			continue
		}
		operand, err := strconv.ParseFloat(strings.TrimSpace(expr[len(op):]), 64)
		if err != nil {
			return "", 0, false
		}
		return op, operand, true
	}
	return "", 0, false
}
