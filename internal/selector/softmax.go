package selector

import (
	"math"

	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// ScoresFromLogits turns a background-inclusive logit row into the
// per-region score vector proposals carry. The softmax normalizes over all
// taxonomy.NumRegions+1 classes including background at index 0, then the
// background column is dropped without renormalizing. Keeping background in
// the denominator is intentional: a proposal the detector considers mostly
// background gets uniformly low region scores instead of being inflated by
// renormalization.
func ScoresFromLogits(logits []float64) []float64 {
	if len(logits) != taxonomy.NumRegions+1 {
		return nil
	}

	// Shift by the max logit for numerical stability.
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		exps[i] = math.Exp(v - maxLogit)
		sum += exps[i]
	}

	scores := make([]float64, taxonomy.NumRegions)
	for i := range scores {
		scores[i] = exps[i+1] / sum
	}
	return scores
}
