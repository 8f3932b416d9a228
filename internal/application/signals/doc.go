// Package signals implements the per-run signal store.
//
// A Context records emitted signals in order, tracks which keys are available
// and answers typed lookups. Lookups never fail: a missing key or a value that
// does not convert yields the zero value of the requested type.
package signals
