package datafiles

import "encoding/json"

// Variant is a thin, read-only façade over one entry of a feature's
// variant array: just the two fields this service reasons about. It
// exists to avoid coupling callers like the Sampler and Scheduler to the
// full generic Tree shape.
type Variant struct {
	Value  string
	Weight float64
}

// Features returns the top-level "features" object, or ok=false if the
// datafile has none (an opaque file under SPEC_FULL's sanity-check rule).
func Features(tree Tree) (map[string]interface{}, bool) {
	raw, ok := tree["features"]
	if !ok {
		return nil, false
	}
	obj, ok := raw.(map[string]interface{})
	return obj, ok
}

// FeatureKeys returns every feature key in the datafile, in no particular
// order (object key iteration order isn't meaningful for a JSON map).
func FeatureKeys(tree Tree) []string {
	features, ok := Features(tree)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	return keys
}

// GroupVariants returns the ordered (value, original weight) pairs for one
// feature's variant array, or ok=false if the feature doesn't exist or has
// no variant array under variantsKey.
func GroupVariants(tree Tree, variantsKey, featureKey string) (variants []Variant, ok bool) {
	features, ok := Features(tree)
	if !ok {
		return nil, false
	}
	feature, ok := features[featureKey].(map[string]interface{})
	if !ok {
		return nil, false
	}
	rawList, ok := feature[variantsKey].([]interface{})
	if !ok {
		return nil, false
	}

	variants = make([]Variant, 0, len(rawList))
	for _, rawVariant := range rawList {
		entry, ok := rawVariant.(map[string]interface{})
		if !ok {
			continue
		}
		value, _ := entry["value"].(string)
		variants = append(variants, Variant{Value: value, Weight: WeightOf(entry["weight"])})
	}
	return variants, true
}

// WeightOf converts a decoded JSON weight (a json.Number when the tree was
// parsed with UseNumber, but tolerant of a plain float64 too) to float64.
func WeightOf(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	default:
		return 0
	}
}
