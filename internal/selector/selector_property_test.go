package selector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// genProposal generates a proposal predicting a random region with a random
// probability.
func genProposal() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, taxonomy.NumRegions-1),
		gen.Float64Range(0.05, 1.0),
	).Map(func(vals []interface{}) Proposal {
		region, ok := vals[0].(int)
		if !ok {
			panic("expected int")
		}
		prob, ok := vals[1].(float64)
		if !ok {
			panic("expected float64")
		}
		return Proposal{
			Scores:   scoresFor(region, prob),
			Features: []float32{float32(region), float32(prob)},
		}
	})
}

func genProposals() gopter.Gen {
	return gen.SliceOf(genProposal())
}

func TestTopPerRegion_FixedCardinality(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output always has exactly NumRegions slots", prop.ForAll(
		func(proposals []Proposal) bool {
			sel, err := TopPerRegion(proposals)
			if err != nil {
				return false
			}
			return len(sel.Features) == taxonomy.NumRegions &&
				len(sel.Detected) == taxonomy.NumRegions
		},
		genProposals(),
	))

	properties.Property("detected regions have a feature vector", prop.ForAll(
		func(proposals []Proposal) bool {
			sel, err := TopPerRegion(proposals)
			if err != nil {
				return false
			}
			for r, d := range sel.Detected {
				if d && sel.Features[r] == nil {
					return false
				}
			}
			return true
		},
		genProposals(),
	))

	properties.Property("detected count never exceeds proposal count", prop.ForAll(
		func(proposals []Proposal) bool {
			sel, err := TopPerRegion(proposals)
			if err != nil {
				return false
			}
			detected := 0
			for _, d := range sel.Detected {
				if d {
					detected++
				}
			}
			return detected <= len(proposals)
		},
		genProposals(),
	))

	properties.TestingRun(t)
}
