// Package evaluation coordinates one evaluation pass over a validation
// stream: it drives the batch loop, routes model outputs into the metric
// accumulators, reduces them once, and produces the final report plus the
// best-checkpoint decision.
package evaluation

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/radeval/internal/geometry"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// GroundTruth holds the taxonomy-aligned annotations for one batch. Every
// per-image slice has exactly taxonomy.NumRegions entries, index-aligned
// with the model's per-region outputs; that alignment is load-bearing for
// the whole pipeline and is validated fatally.
type GroundTruth struct {
	// Boxes holds the ground-truth box per image per region.
	Boxes [][]geometry.Box

	// HasSentence marks regions whose reference report contains a sentence.
	HasSentence [][]bool

	// IsAbnormal marks regions annotated as abnormal.
	IsAbnormal [][]bool

	// ReferenceSentences holds the reference sentence per image per region.
	// Regions without a sentence carry the empty-reference sentinel.
	ReferenceSentences [][]string
}

// Batch is one unit of the validation stream.
type Batch struct {
	// Images are only consumed by the visualization sink; the metric path
	// never looks at pixels.
	Images []image.Image

	Truth GroundTruth
}

// Size returns the number of images in the batch.
func (b *Batch) Size() int { return len(b.Truth.Boxes) }

// Validate checks the ground-truth shape invariants.
func (g *GroundTruth) Validate() error {
	n := len(g.Boxes)
	if len(g.HasSentence) != n || len(g.IsAbnormal) != n || len(g.ReferenceSentences) != n {
		return fmt.Errorf("ground truth image counts misaligned: boxes=%d has_sentence=%d is_abnormal=%d references=%d",
			n, len(g.HasSentence), len(g.IsAbnormal), len(g.ReferenceSentences))
	}
	for i := 0; i < n; i++ {
		if len(g.Boxes[i]) != taxonomy.NumRegions ||
			len(g.HasSentence[i]) != taxonomy.NumRegions ||
			len(g.IsAbnormal[i]) != taxonomy.NumRegions ||
			len(g.ReferenceSentences[i]) != taxonomy.NumRegions {
			return fmt.Errorf("image %d: ground truth region counts misaligned with taxonomy", i)
		}
	}
	return nil
}
