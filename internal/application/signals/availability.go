package signals

// Availability is the set of signal keys seen so far in a run.
// Within a run it only grows.
type Availability map[string]struct{}

// AvailabilityOf builds a set from keys
func AvailabilityOf(keys ...string) Availability {
	a := make(Availability, len(keys))
	for _, k := range keys {
		a[k] = struct{}{}
	}
	return a
}

// Has reports whether key is available
func (a Availability) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Add marks key available
func (a Availability) Add(key string) {
	a[key] = struct{}{}
}

// Clone returns an independent copy
func (a Availability) Clone() Availability {
	out := make(Availability, len(a))
	for k := range a {
		out[k] = struct{}{}
	}
	return out
}
