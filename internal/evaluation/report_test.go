package evaluation

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/radeval/internal/metrics"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

func TestRegionScoresAlignedWithTaxonomy(t *testing.T) {
	overlap := metrics.OverlapScores{
		AvgIoUPerRegion:        make([]float64, taxonomy.NumRegions),
		AvgDetectionsPerRegion: make([]float64, taxonomy.NumRegions),
	}
	for r := 0; r < taxonomy.NumRegions; r++ {
		overlap.AvgIoUPerRegion[r] = float64(r) / 100
		overlap.AvgDetectionsPerRegion[r] = 1
	}

	scores := regionScores(overlap)
	require.Len(t, scores, taxonomy.NumRegions)
	assert.Equal(t, "right lung", scores[0].Region)
	assert.Equal(t, "cardiac silhouette", scores[taxonomy.NumRegions-1].Region)
	assert.InDelta(t, 0.05, scores[5].IoU, 1e-12)
}

func TestSubsetOrderingIsStable(t *testing.T) {
	scores := map[metrics.Subset]metrics.PrecisionRecall{
		metrics.SubsetAbnormal: {Precision: 0.3},
		metrics.SubsetAll:      {Precision: 0.1},
		metrics.SubsetNormal:   {Precision: 0.2},
	}
	out := subsetPrecisionRecall(scores)
	require.Len(t, out, 3)
	assert.Equal(t, metrics.SubsetAll, out[0].Subset)
	assert.Equal(t, metrics.SubsetNormal, out[1].Subset)
	assert.Equal(t, metrics.SubsetAbnormal, out[2].Subset)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	report := &Report{
		Epoch:       2,
		Step:        4000,
		TrainLosses: LossBreakdown{Total: 1.5, Detector: 0.5, LanguageModel: 1.0},
		ValLosses:   LossBreakdown{Total: 2.25},
		Regions: []RegionScore{
			{Region: "right lung", IoU: 0.91, Detections: 0.99},
		},
		RegionSelection: []SubsetPrecisionRecall{
			{Subset: metrics.SubsetAll, Precision: 0.8, Recall: 0.7},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.Epoch, decoded.Epoch)
	assert.Equal(t, report.TrainLosses, decoded.TrainLosses)
	assert.Equal(t, report.Regions, decoded.Regions)
	assert.Equal(t, report.RegionSelection, decoded.RegionSelection)
}

func TestWriteYAMLPreservesNaN(t *testing.T) {
	report := &Report{
		Regions: []RegionScore{{Region: "right lung", IoU: math.NaN()}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))
	assert.Contains(t, buf.String(), ".nan")

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Regions, 1)
	assert.True(t, math.IsNaN(decoded.Regions[0].IoU))
}

func TestReportSummary(t *testing.T) {
	report := &Report{
		Epoch:                 1,
		Step:                  200,
		TrainLosses:           LossBreakdown{Total: 3.14159},
		ValLosses:             LossBreakdown{Total: 2.71828},
		AvgDetectionsPerImage: 29.5,
	}
	assert.Equal(t,
		"epoch=1 step=200 train_loss=3.142 val_loss=2.718 avg_detected=29.50",
		report.Summary())
}
