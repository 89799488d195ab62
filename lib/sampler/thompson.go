package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultTrials is the default number of joint posterior draws used to
// estimate each variant's probability of being best.
const DefaultTrials = 10_000

// Posterior is a variant's Beta(alpha, beta) posterior under a uniform
// Beta(1,1) prior.
type Posterior struct {
	Alpha float64
	Beta  float64
}

// NewPosterior builds the posterior for a variant with the given raw
// conversion/exposure counts. Conversions are clamped to exposures for
// sampling purposes only — the stored counters themselves are never
// clamped, per the tolerance for transient conversions > exposures.
func NewPosterior(conversions, exposures uint64) Posterior {
	c := conversions
	if c > exposures {
		c = exposures
	}
	return Posterior{
		Alpha: 1 + float64(c),
		Beta:  1 + float64(exposures-c),
	}
}

// Group is one experiment group's inputs to the recalculation: parallel
// slices of variant value, posterior and original declared weight, in the
// order the variants must keep in the rewritten datafile.
type Group struct {
	Values          []string
	Posteriors      []Posterior
	OriginalWeights []float64
}

// Result is one experiment group's recalculation output.
type Result struct {
	// ProbBest[i] is the Monte Carlo estimate of Values[i]'s probability
	// of being the best-performing variant.
	ProbBest []float64
	// Weights[i] is the new weight to write back for Values[i]. They sum
	// to Σ OriginalWeights exactly.
	Weights []float64
}

// Recalculate runs the Thompson Sampling estimation and weight derivation
// for one group. r is the random source; callers that need determinism
// (tests, and cycle-level reproducibility across a fixed seed) pass a
// rand.Rand constructed with a fixed seed.
//
// It returns an error — the group should be skipped and a warning
// recorded in the cycle summary — if the group's variants declare a total
// original weight of zero, which would make the weight derivation's
// division undefined.
func Recalculate(r *rand.Rand, g Group, trials int) (Result, error) {
	n := len(g.Values)
	if n == 0 {
		return Result{}, fmt.Errorf("sampler: empty group")
	}
	if trials <= 0 {
		trials = DefaultTrials
	}

	originalSum := 0.0
	for _, w := range g.OriginalWeights {
		originalSum += w
	}
	if originalSum == 0 {
		return Result{}, fmt.Errorf("sampler: group has zero total original weight")
	}

	wins := make([]int, n)
	draws := make([]float64, n)
	for t := 0; t < trials; t++ {
		maxIdx := 0
		for i, p := range g.Posteriors {
			draws[i] = betaSample(r, p.Alpha, p.Beta)
			// Strict '>' keeps the first variant on an exact tie, the
			// deterministic tie-break the estimation requires.
			if i == 0 || draws[i] > draws[maxIdx] {
				maxIdx = i
			}
		}
		wins[maxIdx]++
	}

	probBest := make([]float64, n)
	for i, w := range wins {
		probBest[i] = float64(w) / float64(trials)
	}

	weights := deriveWeights(originalSum, probBest)

	return Result{ProbBest: probBest, Weights: weights}, nil
}

// deriveWeights turns per-variant probability-of-best estimates into
// weights summing exactly to originalSum: each weight is the probability
// share rounded to 4 decimal places, with the rounding residual added to
// the top-probability variant so the sum doesn't drift over many cycles —
// the same residual-to-the-largest-share fixup this service's weight
// overlay uses for its own renormalization.
func deriveWeights(originalSum float64, probBest []float64) []float64 {
	weights := make([]float64, len(probBest))
	sum := 0.0
	topIdx := 0

	for i, p := range probBest {
		w := math.Round(originalSum*p*10000) / 10000
		weights[i] = w
		sum += w
		if i == 0 || p > probBest[topIdx] {
			topIdx = i
		}
	}

	weights[topIdx] += originalSum - sum
	return weights
}
