package overlay

import (
	"github.com/weightgate/weightgate/lib/datafiles"
)

// Lookup resolves a variant's stored weight. found is false if no
// recalculation has ever written a weight for this variant, in which case
// the caller falls back to the datafile's declared original.
type Lookup func(featureKey, variantValue string) (weight float64, found bool)

// Apply returns a copy of tree with every feature's variant weights
// overridden by lookup, renormalized per feature so each group's weight
// sum still equals the sum of the on-disk weights for that group.
//
// Features with no variant array under variantsKey, or whose variants all
// fall back to their original weight, are copied through unchanged.
func Apply(tree datafiles.Tree, variantsKey string, lookup Lookup) datafiles.Tree {
	result := deepCopy(map[string]interface{}(tree)).(map[string]interface{})

	features, ok := result["features"].(map[string]interface{})
	if !ok {
		return result
	}

	for featureKey, rawFeature := range features {
		feature, ok := rawFeature.(map[string]interface{})
		if !ok {
			continue
		}
		rawList, ok := feature[variantsKey].([]interface{})
		if !ok {
			continue
		}
		applyGroup(featureKey, rawList, lookup)
	}

	return result
}

type variantState struct {
	entry     map[string]interface{}
	original  float64
	effective float64
}

// applyGroup rewrites one feature's variant array in place on the copy
// produced by Apply.
func applyGroup(featureKey string, rawList []interface{}, lookup Lookup) {
	states := make([]variantState, 0, len(rawList))
	originalSum := 0.0
	anyStored := false

	for _, raw := range rawList {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		value, _ := entry["value"].(string)
		original := datafiles.WeightOf(entry["weight"])
		originalSum += original

		effective := original
		if w, found := lookup(featureKey, value); found {
			effective = w
			anyStored = true
		}
		states = append(states, variantState{entry: entry, original: original, effective: effective})
	}

	if !anyStored {
		// Every variant falls back to its declared weight: the group is
		// already byte-equivalent, nothing to renormalize.
		return
	}

	effectiveSum := 0.0
	for _, s := range states {
		effectiveSum += s.effective
	}

	factor := 1.0
	if effectiveSum > 0 {
		factor = originalSum / effectiveSum
	}

	runningSum := 0.0
	maxIdx := -1
	maxVal := -1.0
	for i := range states {
		states[i].effective *= factor
		runningSum += states[i].effective
		if states[i].effective > maxVal {
			maxVal = states[i].effective
			maxIdx = i
		}
	}

	// Residual correction to the largest share, so the group sum lands
	// exactly on originalSum instead of drifting with floating-point
	// rounding — the same fixup the Sampler's deriveWeights applies to its
	// own output.
	if maxIdx >= 0 {
		states[maxIdx].effective += originalSum - runningSum
	}

	for _, s := range states {
		s.entry["weight"] = s.effective
	}
}

// deepCopy clones a tree produced by encoding/json's generic decoding
// (map[string]interface{}, []interface{}, json.Number, string, bool, nil)
// so Apply never mutates the cached original.
func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v := range val {
			out[k] = deepCopy(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, v := range val {
			out[i] = deepCopy(v)
		}
		return out
	default:
		// json.Number, string, bool, float64, nil are all immutable values.
		return val
	}
}
