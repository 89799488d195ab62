package sampler

import (
	"math"
	"math/rand/v2"
	"testing"
)

func fixedRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func TestRecalculate_ClearWinner(t *testing.T) {
	g := Group{
		Values:          []string{"A", "B"},
		Posteriors:      []Posterior{NewPosterior(50, 1000), NewPosterior(200, 1000)},
		OriginalWeights: []float64{50, 50},
	}

	result, err := Recalculate(fixedRand(1), g, DefaultTrials)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Weights[1] <= 90 {
		t.Errorf("expected B's weight > 90, got %v", result.Weights[1])
	}
	if result.Weights[0] >= 10 {
		t.Errorf("expected A's weight < 10, got %v", result.Weights[0])
	}
	sum := result.Weights[0] + result.Weights[1]
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected weights to sum to 100, got %v", sum)
	}
}

func TestRecalculate_Symmetry(t *testing.T) {
	g := Group{
		Values:          []string{"A", "B"},
		Posteriors:      []Posterior{NewPosterior(100, 500), NewPosterior(100, 500)},
		OriginalWeights: []float64{50, 50},
	}

	result, err := Recalculate(fixedRand(2), g, DefaultTrials)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff := math.Abs(result.Weights[0] - result.Weights[1])
	if diff >= 5 {
		t.Errorf("expected symmetric weights within 5, got diff %v", diff)
	}
	sum := result.Weights[0] + result.Weights[1]
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected weights to sum to 100, got %v", sum)
	}
}

func TestRecalculate_IdempotentInDistribution(t *testing.T) {
	g := Group{
		Values:          []string{"A", "B", "C"},
		Posteriors:      []Posterior{NewPosterior(30, 300), NewPosterior(60, 300), NewPosterior(90, 300)},
		OriginalWeights: []float64{40, 30, 30},
	}

	r1, err := Recalculate(fixedRand(7), g, DefaultTrials)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := Recalculate(fixedRand(7), g, DefaultTrials)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range r1.Weights {
		if math.Abs(r1.Weights[i]-r2.Weights[i]) > 0.5*100 {
			t.Errorf("variant %d: weights diverged beyond Monte-Carlo noise: %v vs %v", i, r1.Weights[i], r2.Weights[i])
		}
	}
}

func TestRecalculate_ZeroTotalWeight(t *testing.T) {
	g := Group{
		Values:          []string{"A", "B"},
		Posteriors:      []Posterior{NewPosterior(1, 10), NewPosterior(1, 10)},
		OriginalWeights: []float64{0, 0},
	}
	if _, err := Recalculate(fixedRand(3), g, 100); err == nil {
		t.Fatal("expected error for zero total original weight")
	}
}

func TestRecalculate_EmptyGroup(t *testing.T) {
	if _, err := Recalculate(fixedRand(4), Group{}, 100); err == nil {
		t.Fatal("expected error for empty group")
	}
}

func TestNewPosterior_ClampsConversionsToExposures(t *testing.T) {
	p := NewPosterior(15, 10)
	if p.Alpha != 11 || p.Beta != 1 {
		t.Errorf("expected conversions clamped to exposures, got alpha=%v beta=%v", p.Alpha, p.Beta)
	}
}

func TestDeriveWeights_SumsExactly(t *testing.T) {
	probs := []float64{0.12345, 0.33333, 0.54322}
	weights := deriveWeights(100, probs)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected weights to sum exactly to 100, got %v", sum)
	}
}
