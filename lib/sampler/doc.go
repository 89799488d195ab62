// Package sampler implements the Thompson Sampling math (C4): independent
// Beta posteriors per variant with a uniform prior, Monte Carlo estimation
// of each variant's probability of being best, and the weight derivation
// that turns those probabilities into new traffic weights.
//
// No statistics library appears anywhere in this codebase or its sibling
// examples, so the Beta posterior is sampled directly on top of
// math/rand/v2 using the Marsaglia-Tsang method for Gamma deviates
// (Beta(a,b) = X/(X+Y) for independent Gamma(a,1), Gamma(b,1) draws X, Y) —
// the same "write the small numeric routine by hand" posture this
// codebase takes for its own hashing and heap code rather than reaching
// for a dependency to cover a single self-contained algorithm.
package sampler
