package overlay

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/weightgate/weightgate/lib/datafiles"
)

func parseTree(t *testing.T, raw string) datafiles.Tree {
	t.Helper()
	var tree datafiles.Tree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatalf("invalid test fixture json: %v", err)
	}
	return tree
}

const fixtureJSON = `{
  "features": {
    "f": {
      "variations": [
        {"value": "A", "weight": 50},
        {"value": "B", "weight": 50}
      ]
    }
  }
}`

func TestApply_PassthroughWhenNoStoredWeights(t *testing.T) {
	tree := parseTree(t, fixtureJSON)
	lookup := func(feature, variant string) (float64, bool) { return 0, false }

	result := Apply(tree, "variations", lookup)

	variants, ok := datafiles.GroupVariants(result, "variations", "f")
	if !ok {
		t.Fatal("expected feature f to survive")
	}
	for _, v := range variants {
		if v.Weight != 50 {
			t.Errorf("expected passthrough weight 50, got %v for %s", v.Weight, v.Value)
		}
	}
}

func TestApply_RenormalizesGroupSum(t *testing.T) {
	tree := parseTree(t, fixtureJSON)
	stored := map[string]float64{"A": 10, "B": 40}
	lookup := func(feature, variant string) (float64, bool) {
		w, ok := stored[variant]
		return w, ok
	}

	result := Apply(tree, "variations", lookup)
	variants, _ := datafiles.GroupVariants(result, "variations", "f")

	sum := 0.0
	for _, v := range variants {
		sum += v.Weight
	}
	if math.Abs(sum-100) > 1e-4 {
		t.Errorf("expected group sum 100, got %v", sum)
	}
}

func TestApply_PreservesVariantOrderAndSet(t *testing.T) {
	tree := parseTree(t, fixtureJSON)
	result := Apply(tree, "variations", func(string, string) (float64, bool) { return 0, false })

	original, _ := datafiles.GroupVariants(tree, "variations", "f")
	overlaid, _ := datafiles.GroupVariants(result, "variations", "f")

	if len(original) != len(overlaid) {
		t.Fatalf("expected same number of variants, got %d vs %d", len(original), len(overlaid))
	}
	for i := range original {
		if original[i].Value != overlaid[i].Value {
			t.Errorf("variant order changed at index %d: %s vs %s", i, original[i].Value, overlaid[i].Value)
		}
	}
}

func TestApply_DoesNotMutateOriginal(t *testing.T) {
	tree := parseTree(t, fixtureJSON)
	_ = Apply(tree, "variations", func(string, string) (float64, bool) { return 99, true })

	variants, _ := datafiles.GroupVariants(tree, "variations", "f")
	for _, v := range variants {
		if v.Weight != 50 {
			t.Errorf("expected original tree untouched, got weight %v for %s", v.Weight, v.Value)
		}
	}
}

func TestApply_OpaqueFileWithoutFeatures(t *testing.T) {
	tree := parseTree(t, `{"unrelated": true}`)
	result := Apply(tree, "variations", func(string, string) (float64, bool) { return 0, false })
	if _, ok := result["unrelated"]; !ok {
		t.Fatal("expected opaque fields to pass through")
	}
}
