package mastery

import (
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

// priorEpsilon keeps the prior off the 0/1 boundary so the evidence step
// never divides 0 by 0.
const priorEpsilon = 1e-6

// Update runs one Bayesian Knowledge Tracing step: revise the prior against
// the observed answer, then apply the learning transition.
func Update(params types.BktParameters, prior float64, correct bool) float64 {
	p := clampRange(prior, priorEpsilon, 1-priorEpsilon)

	var num, den float64
	if correct {
		num = p * (1 - params.PSlip)
		den = num + (1-p)*params.PGuess
	} else {
		num = p * params.PSlip
		den = num + (1-p)*(1-params.PGuess)
	}
	evidence := p
	if den > 0 {
		evidence = num / den
	}

	return clamp01(evidence + (1-evidence)*params.PTransit)
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
