package metrics

import (
	"fmt"
	"math"
)

// PrecisionRecall holds the reduced scores of one binary decision task for
// one subset. Precision is NaN when nothing was predicted positive, recall
// is NaN when the subset never saw a positive ground truth; neither is
// coerced to zero so "no signal" stays distinguishable from total failure.
type PrecisionRecall struct {
	Precision float64
	Recall    float64
}

type confusion struct {
	tp, fp, tn, fn int64
}

// BinaryAccumulator accumulates confusion counts for one binary decision
// task, partitioned by subset. Callers route each example to SubsetAll plus
// exactly one of SubsetNormal/SubsetAbnormal (or use SubsetAll only for
// tasks that are not partitioned).
type BinaryAccumulator struct {
	counts  map[Subset]*confusion
	reduced bool
}

// NewBinaryAccumulator creates an accumulator tracking the given subsets.
func NewBinaryAccumulator(subsets ...Subset) *BinaryAccumulator {
	counts := make(map[Subset]*confusion, len(subsets))
	for _, s := range subsets {
		counts[s] = &confusion{}
	}
	return &BinaryAccumulator{counts: counts}
}

// Update ingests one batch of predicted/actual decisions already filtered
// down to the given subset. Empty inputs are a no-op so callers can skip
// filtering-produced empty batches without special-casing. A length
// mismatch between predicted and actual is fatal.
func (a *BinaryAccumulator) Update(subset Subset, predicted, actual []bool) error {
	if a.reduced {
		panic("metrics: BinaryAccumulator updated after Reduce")
	}
	c, ok := a.counts[subset]
	if !ok {
		return fmt.Errorf("unknown subset %q", subset)
	}
	if len(predicted) != len(actual) {
		return fmt.Errorf("subset %q: predicted/actual length mismatch: %d vs %d",
			subset, len(predicted), len(actual))
	}

	for i := range predicted {
		switch {
		case predicted[i] && actual[i]:
			c.tp++
		case predicted[i] && !actual[i]:
			c.fp++
		case !predicted[i] && actual[i]:
			c.fn++
		default:
			c.tn++
		}
	}
	return nil
}

// MergeFrom folds another accumulator's counts into a. Both accumulators
// must track the same subsets and be un-reduced.
func (a *BinaryAccumulator) MergeFrom(other *BinaryAccumulator) error {
	if a.reduced || other.reduced {
		panic("metrics: MergeFrom on a reduced BinaryAccumulator")
	}
	for subset, oc := range other.counts {
		c, ok := a.counts[subset]
		if !ok {
			return fmt.Errorf("cannot merge unknown subset %q", subset)
		}
		c.tp += oc.tp
		c.fp += oc.fp
		c.tn += oc.tn
		c.fn += oc.fn
	}
	return nil
}

// Reduce consumes the accumulated counts and returns precision/recall per
// subset. It must be called exactly once.
func (a *BinaryAccumulator) Reduce() map[Subset]PrecisionRecall {
	if a.reduced {
		panic("metrics: BinaryAccumulator reduced twice")
	}
	a.reduced = true

	out := make(map[Subset]PrecisionRecall, len(a.counts))
	for subset, c := range a.counts {
		out[subset] = PrecisionRecall{
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
		}
	}
	return out
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}
