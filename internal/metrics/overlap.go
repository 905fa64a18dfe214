package metrics

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/radeval/internal/geometry"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// OverlapScores is the reduced output of an OverlapAccumulator.
type OverlapScores struct {
	// AvgIoUPerRegion is summed intersection over summed union per region.
	// A region whose union sum is exactly zero over the whole pass yields
	// NaN; that signals a data issue and is reported rather than hidden.
	AvgIoUPerRegion []float64

	// AvgDetectionsPerRegion is how often each region was detected per image.
	AvgDetectionsPerRegion []float64

	// AvgDetectionsPerImage is the sum of AvgDetectionsPerRegion, i.e. the
	// average number of detected regions in an image (ideally 36).
	AvgDetectionsPerImage float64
}

// OverlapAccumulator accumulates box overlap statistics between predicted
// and ground-truth region boxes across batches. Undetected regions
// contribute zero intersection but their union still accumulates, so a
// missed detection depresses that region's average IoU instead of being
// excluded from the denominator.
type OverlapAccumulator struct {
	interSum      [taxonomy.NumRegions]float64
	unionSum      [taxonomy.NumRegions]float64
	detectedCount [taxonomy.NumRegions]float64
	images        int
	reduced       bool
}

// NewOverlapAccumulator returns an empty accumulator for one evaluation pass.
func NewOverlapAccumulator() *OverlapAccumulator {
	return &OverlapAccumulator{}
}

// Update ingests one batch of per-image, per-region predicted and
// ground-truth boxes plus the detected flags. All three arguments must be
// index-aligned with the taxonomy; any shape mismatch is fatal for the pass
// since a silent misalignment would corrupt every downstream metric.
func (a *OverlapAccumulator) Update(pred, gt [][]geometry.Box, detected [][]bool) error {
	if a.reduced {
		panic("metrics: OverlapAccumulator updated after Reduce")
	}
	if len(pred) != len(gt) || len(pred) != len(detected) {
		return fmt.Errorf("batch size mismatch: pred=%d gt=%d detected=%d",
			len(pred), len(gt), len(detected))
	}

	for i := range pred {
		if len(pred[i]) != taxonomy.NumRegions ||
			len(gt[i]) != taxonomy.NumRegions ||
			len(detected[i]) != taxonomy.NumRegions {
			return fmt.Errorf("image %d: region count mismatch: pred=%d gt=%d detected=%d, want %d",
				i, len(pred[i]), len(gt[i]), len(detected[i]), taxonomy.NumRegions)
		}

		for r := range pred[i] {
			inter, valid := geometry.Intersection(pred[i][r], gt[i][r])
			if !valid || !detected[i][r] {
				inter = 0
			}
			a.interSum[r] += inter
			a.unionSum[r] += pred[i][r].Area() + gt[i][r].Area() - inter
			if detected[i][r] {
				a.detectedCount[r]++
			}
		}
	}

	a.images += len(pred)
	return nil
}

// MergeFrom folds another accumulator's partial sums into a. Both must be
// un-reduced. This supports partitioning a validation stream across workers
// and merging before the single reduction.
func (a *OverlapAccumulator) MergeFrom(other *OverlapAccumulator) {
	if a.reduced || other.reduced {
		panic("metrics: MergeFrom on a reduced OverlapAccumulator")
	}
	for r := range a.interSum {
		a.interSum[r] += other.interSum[r]
		a.unionSum[r] += other.unionSum[r]
		a.detectedCount[r] += other.detectedCount[r]
	}
	a.images += other.images
}

// Reduce consumes the accumulated state and returns the final scores. It
// must be called exactly once; further updates are a programming error.
func (a *OverlapAccumulator) Reduce() OverlapScores {
	if a.reduced {
		panic("metrics: OverlapAccumulator reduced twice")
	}
	a.reduced = true

	scores := OverlapScores{
		AvgIoUPerRegion:        make([]float64, taxonomy.NumRegions),
		AvgDetectionsPerRegion: make([]float64, taxonomy.NumRegions),
	}

	for r := range a.interSum {
		if a.unionSum[r] == 0 {
			scores.AvgIoUPerRegion[r] = math.NaN()
		} else {
			scores.AvgIoUPerRegion[r] = a.interSum[r] / a.unionSum[r]
		}

		if a.images > 0 {
			scores.AvgDetectionsPerRegion[r] = a.detectedCount[r] / float64(a.images)
		}
		scores.AvgDetectionsPerImage += scores.AvgDetectionsPerRegion[r]
	}

	return scores
}
