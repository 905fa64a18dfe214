// Package selector converts the detector's variable-count scored proposals
// into the fixed per-region representation the rest of the model consumes:
// exactly one feature vector and one detected flag per taxonomy region,
// regardless of how many proposals the detector emitted for an image.
package selector

import (
	"fmt"

	"github.com/MeKo-Tech/radeval/internal/geometry"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// Proposal is one candidate region instance within an image. Scores holds
// the class probabilities for every taxonomy region with the background
// class already removed (see ScoresFromLogits).
type Proposal struct {
	Box      geometry.Box
	Scores   []float64
	Features []float32
}

// Selection is the fixed-cardinality result of top-per-region selection for
// a single image. Features and Detected always have exactly
// taxonomy.NumRegions entries. A feature slot whose Detected flag is false
// holds an arbitrary placeholder and must never be read without checking
// the flag.
type Selection struct {
	Features [][]float32
	Detected []bool
}

// TopPerRegion selects, for every taxonomy region, the feature vector of the
// proposal that predicts that region with the highest probability. A
// proposal's predicted region is its arg-max score entry. Regions no
// proposal predicts are flagged not detected. Exact score ties are broken
// by proposal order, first occurrence wins.
func TopPerRegion(proposals []Proposal) (Selection, error) {
	sel := Selection{
		Features: make([][]float32, taxonomy.NumRegions),
		Detected: make([]bool, taxonomy.NumRegions),
	}

	best := make([]float64, taxonomy.NumRegions)

	for i, p := range proposals {
		if len(p.Scores) != taxonomy.NumRegions {
			return Selection{}, fmt.Errorf("proposal %d has %d scores, want %d",
				i, len(p.Scores), taxonomy.NumRegions)
		}

		region := argmax(p.Scores)
		score := p.Scores[region]

		// Strict > keeps the earliest proposal on exact ties.
		if !sel.Detected[region] || score > best[region] {
			sel.Detected[region] = true
			best[region] = score
			sel.Features[region] = p.Features
		}
	}

	// An all-zero score column would make a naive per-column arg-max point
	// at proposal 0. Undetected slots instead get an explicit placeholder
	// so misuse shows up as a nil deref rather than silently reading
	// another region's features.
	return sel, nil
}

// TopPerRegionBatch runs TopPerRegion independently for every image and
// stacks the results. Images do not interact.
func TopPerRegionBatch(images [][]Proposal) ([]Selection, error) {
	out := make([]Selection, len(images))
	for i, proposals := range images {
		sel, err := TopPerRegion(proposals)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out[i] = sel
	}
	return out, nil
}

func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
