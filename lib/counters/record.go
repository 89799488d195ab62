package counters

import "strings"

// StatsPrefix is the fixed prefix of every key this service owns in the
// counter store, as documented in the persistent store layout contract.
const StatsPrefix = "stats:"

// LockKey is the single distributed-lock key used to coordinate
// recalculation cycles across processes.
const LockKey = "lock:recalc"

// Key identifies a single counter record by its (datafile, feature,
// variant) triple.
type Key struct {
	Datafile string
	Feature  string
	Variant  string
}

// String renders the key in the "stats:{datafile}:{feature}:{variant}"
// layout that forms the store's compatibility contract.
func (k Key) String() string {
	return StatsPrefix + k.Datafile + ":" + k.Feature + ":" + k.Variant
}

// GroupPrefix returns the key prefix shared by every variant of one
// (datafile, feature) experiment group, suitable for a prefix scan.
func GroupPrefix(datafile, feature string) string {
	return StatsPrefix + datafile + ":" + feature + ":"
}

// ParseKey recovers a Key from its string form. It returns ok=false for any
// string that doesn't have the stats prefix or has fewer than three
// colon-separated components after it; any colons past the second stay part
// of the variant.
func ParseKey(s string) (Key, bool) {
	rest, ok := strings.CutPrefix(s, StatsPrefix)
	if !ok {
		return Key{}, false
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return Key{}, false
	}
	return Key{Datafile: parts[0], Feature: parts[1], Variant: parts[2]}, true
}

// Record is a snapshot of one variant's counters at read time. Weight and
// LastUpdated are zero-valued until the first recalculation writes them;
// callers must fall back to the datafile's declared weight in that case.
type Record struct {
	Exposures   uint64
	Conversions uint64
	Weight      float64
	HasWeight   bool
	LastUpdated int64 // unix seconds, 0 if never written
}

// ConversionRate returns Conversions/Exposures, with the 0/0 sentinel
// defined by the query surface: an empty record converts at rate 0, not NaN.
func (r Record) ConversionRate() float64 {
	if r.Exposures == 0 {
		return 0
	}
	return float64(r.Conversions) / float64(r.Exposures)
}
