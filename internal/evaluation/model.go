package evaluation

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/radeval/internal/geometry"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// LossBreakdown holds the total loss and the per-module losses of one
// forward pass (or their running sums across a pass).
type LossBreakdown struct {
	Total           float64 `yaml:"total" json:"total"`
	Detector        float64 `yaml:"detector" json:"detector"`
	RegionSelection float64 `yaml:"region_selection" json:"region_selection"`
	RegionAbnormal  float64 `yaml:"region_abnormal" json:"region_abnormal"`
	LanguageModel   float64 `yaml:"language_model" json:"language_model"`
}

// Add accumulates another breakdown into l.
func (l *LossBreakdown) Add(o LossBreakdown) {
	l.Total += o.Total
	l.Detector += o.Detector
	l.RegionSelection += o.RegionSelection
	l.RegionAbnormal += o.RegionAbnormal
	l.LanguageModel += o.LanguageModel
}

// Scale multiplies every component by f.
func (l *LossBreakdown) Scale(f float64) {
	l.Total *= f
	l.Detector *= f
	l.RegionSelection *= f
	l.RegionAbnormal *= f
	l.LanguageModel *= f
}

// ForwardOutput is everything a validation forward pass produces for one
// batch. All per-region arrays are [batch][taxonomy.NumRegions] and
// index-aligned with the ground truth.
type ForwardOutput struct {
	Losses LossBreakdown

	// PredBoxes holds the top-scoring predicted box per region.
	PredBoxes [][]geometry.Box

	// Detected marks regions the detector predicted for at least one
	// proposal. Feature slots of undetected regions are placeholders.
	Detected [][]bool

	// SelectedRegions marks regions the selection classifier chose for
	// sentence generation.
	SelectedRegions [][]bool

	// PredictedAbnormal marks regions the abnormality classifier flagged.
	PredictedAbnormal [][]bool
}

// Validate checks that the output arrays match the batch size and the
// taxonomy cardinality.
func (o *ForwardOutput) Validate(batchSize int) error {
	return validateRegionArrays(batchSize, map[string]int{
		"pred_boxes":         len(o.PredBoxes),
		"detected":           len(o.Detected),
		"selected_regions":   len(o.SelectedRegions),
		"predicted_abnormal": len(o.PredictedAbnormal),
	}, func(i int) []int {
		return []int{
			len(o.PredBoxes[i]),
			len(o.Detected[i]),
			len(o.SelectedRegions[i]),
			len(o.PredictedAbnormal[i]),
		}
	})
}

// GenerateOutput is what the generation path produces for one batch. The
// token sequences appear in row-major order over (image, region) for the
// regions marked in SelectedRegions.
type GenerateOutput struct {
	TokenSequences  [][]int
	PredBoxes       [][]geometry.Box
	Detected        [][]bool
	SelectedRegions [][]bool
}

// Validate checks shape alignment and that the number of generated
// sequences matches the number of selected regions.
func (o *GenerateOutput) Validate(batchSize int) error {
	err := validateRegionArrays(batchSize, map[string]int{
		"pred_boxes":       len(o.PredBoxes),
		"detected":         len(o.Detected),
		"selected_regions": len(o.SelectedRegions),
	}, func(i int) []int {
		return []int{
			len(o.PredBoxes[i]),
			len(o.Detected[i]),
			len(o.SelectedRegions[i]),
		}
	})
	if err != nil {
		return err
	}

	selected := 0
	for _, regions := range o.SelectedRegions {
		for _, s := range regions {
			if s {
				selected++
			}
		}
	}
	if len(o.TokenSequences) != selected {
		return fmt.Errorf("generated %d token sequences for %d selected regions",
			len(o.TokenSequences), selected)
	}
	return nil
}

func validateRegionArrays(batchSize int, outer map[string]int, inner func(i int) []int) error {
	for name, n := range outer {
		if n != batchSize {
			return fmt.Errorf("%s has %d images, batch has %d", name, n, batchSize)
		}
	}
	for i := 0; i < batchSize; i++ {
		for _, n := range inner(i) {
			if n != taxonomy.NumRegions {
				return fmt.Errorf("image %d: region array has %d entries, want %d",
					i, n, taxonomy.NumRegions)
			}
		}
	}
	return nil
}

// Model is the evaluated collaborator: the detector, the two classifier
// heads and the language model behind one interface. Architecture, losses
// and generation search are out of scope here; the evaluator only consumes
// outputs.
type Model interface {
	// Forward runs the validation forward pass for one batch.
	Forward(ctx context.Context, batch *Batch) (*ForwardOutput, error)

	// Generate runs the expensive generation path for one batch.
	Generate(ctx context.Context, batch *Batch) (*GenerateOutput, error)

	// Snapshot captures the full model state for checkpointing. The bytes
	// are opaque to the evaluator and handed to the persistence
	// collaborator unchanged.
	Snapshot() ([]byte, error)
}

// BatchSource yields the validation stream. Next returns io.EOF when the
// stream is exhausted; Reset rewinds it for the generation sub-loop.
type BatchSource interface {
	Next(ctx context.Context) (*Batch, error)
	Reset() error
}

// Visualizer is the opaque sink for the bounded visualization sub-loop.
// Rendering is outside the evaluation core; failures are pass-fatal like
// any other collaborator failure.
type Visualizer interface {
	VisualizeBatch(ctx context.Context, batch *Batch, out *GenerateOutput, generated []string) error
}
