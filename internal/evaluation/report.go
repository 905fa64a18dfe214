package evaluation

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/radeval/internal/metrics"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// RegionScore is one region's reduced detector metrics.
type RegionScore struct {
	Region     string  `yaml:"region" json:"region"`
	IoU        float64 `yaml:"iou" json:"iou"`
	Detections float64 `yaml:"detections" json:"detections"`
}

// SubsetPrecisionRecall is precision/recall for one subset of a binary
// decision task.
type SubsetPrecisionRecall struct {
	Subset    metrics.Subset `yaml:"subset" json:"subset"`
	Precision float64        `yaml:"precision" json:"precision"`
	Recall    float64        `yaml:"recall" json:"recall"`
}

// SubsetTextScores is the text quality of one subset's generated sentences.
type SubsetTextScores struct {
	Subset            metrics.Subset `yaml:"subset" json:"subset"`
	Bleu1             float64        `yaml:"bleu_1" json:"bleu_1"`
	Bleu2             float64        `yaml:"bleu_2" json:"bleu_2"`
	Bleu3             float64        `yaml:"bleu_3" json:"bleu_3"`
	Bleu4             float64        `yaml:"bleu_4" json:"bleu_4"`
	SemanticPrecision float64        `yaml:"semantic_precision" json:"semantic_precision"`
	SemanticRecall    float64        `yaml:"semantic_recall" json:"semantic_recall"`
	SemanticF1        float64        `yaml:"semantic_f1" json:"semantic_f1"`
}

// Report is the structured result of one evaluation pass.
type Report struct {
	Epoch int `yaml:"epoch" json:"epoch"`
	Step  int `yaml:"step" json:"step"`

	TrainLosses LossBreakdown `yaml:"train_losses" json:"train_losses"`
	ValLosses   LossBreakdown `yaml:"val_losses" json:"val_losses"`

	AvgDetectionsPerImage float64       `yaml:"avg_detections_per_image" json:"avg_detections_per_image"`
	Regions               []RegionScore `yaml:"regions" json:"regions"`

	RegionSelection []SubsetPrecisionRecall `yaml:"region_selection" json:"region_selection"`
	RegionAbnormal  []SubsetPrecisionRecall `yaml:"region_abnormal" json:"region_abnormal"`

	TextQuality []SubsetTextScores `yaml:"text_quality" json:"text_quality"`
}

// regionScores pairs the reduced overlap arrays with region names.
func regionScores(overlap metrics.OverlapScores) []RegionScore {
	out := make([]RegionScore, taxonomy.NumRegions)
	for r := range out {
		out[r] = RegionScore{
			Region:     taxonomy.Name(r),
			IoU:        overlap.AvgIoUPerRegion[r],
			Detections: overlap.AvgDetectionsPerRegion[r],
		}
	}
	return out
}

func subsetPrecisionRecall(scores map[metrics.Subset]metrics.PrecisionRecall) []SubsetPrecisionRecall {
	out := make([]SubsetPrecisionRecall, 0, len(scores))
	for _, subset := range metrics.Subsets() {
		pr, ok := scores[subset]
		if !ok {
			continue
		}
		out = append(out, SubsetPrecisionRecall{
			Subset:    subset,
			Precision: pr.Precision,
			Recall:    pr.Recall,
		})
	}
	return out
}

func subsetTextScores(scores map[metrics.Subset]metrics.TextScores) []SubsetTextScores {
	out := make([]SubsetTextScores, 0, len(scores))
	for _, subset := range metrics.Subsets() {
		ts, ok := scores[subset]
		if !ok {
			continue
		}
		out = append(out, SubsetTextScores{
			Subset:            subset,
			Bleu1:             ts.Bleu[0],
			Bleu2:             ts.Bleu[1],
			Bleu3:             ts.Bleu[2],
			Bleu4:             ts.Bleu[3],
			SemanticPrecision: ts.Semantic.Precision,
			SemanticRecall:    ts.Semantic.Recall,
			SemanticF1:        ts.Semantic.F1,
		})
	}
	return out
}

// WriteYAML serializes the report.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// Summary returns a short loggable one-line summary.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "epoch=%d step=%d train_loss=%.3f val_loss=%.3f avg_detected=%.2f",
		r.Epoch, r.Step, r.TrainLosses.Total, r.ValLosses.Total, r.AvgDetectionsPerImage)
	return b.String()
}
