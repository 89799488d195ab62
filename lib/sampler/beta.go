package sampler

import (
	"math"
	"math/rand/v2"
)

// gammaSample draws from Gamma(shape, 1) via the Marsaglia-Tsang method.
// It requires shape >= 1, which always holds here: every posterior this
// service samples is Beta(1+c, 1+e-c) with c, e-c >= 0, so both Gamma
// shape parameters start at 1 and only grow.
func gammaSample(r *rand.Rand, shape float64) float64 {
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)

	for {
		var x, v float64
		for {
			x = r.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := r.Float64()
		if math.Log(u) < 0.5*x*x+d-d*v+d*math.Log(v) {
			return d * v
		}
	}
}

// betaSample draws from Beta(alpha, beta) as the ratio of two independent
// Gamma draws sharing the same total: Gamma(alpha,1)/(Gamma(alpha,1)+Gamma(beta,1)).
func betaSample(r *rand.Rand, alpha, beta float64) float64 {
	x := gammaSample(r, alpha)
	y := gammaSample(r, beta)
	return x / (x + y)
}
