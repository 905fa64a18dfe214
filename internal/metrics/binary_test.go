package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryAllTruePerfectScores(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	pred := []bool{true, true, true}
	require.NoError(t, acc.Update(SubsetAll, pred, pred))

	scores := acc.Reduce()
	assert.InDelta(t, 1.0, scores[SubsetAll].Precision, 1e-12)
	assert.InDelta(t, 1.0, scores[SubsetAll].Recall, 1e-12)
}

func TestBinaryAllFalsePredictedUndefinedPrecision(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	require.NoError(t, acc.Update(SubsetAll,
		[]bool{false, false, false},
		[]bool{true, false, true}))

	scores := acc.Reduce()
	assert.True(t, math.IsNaN(scores[SubsetAll].Precision),
		"precision with zero predicted positives must be NaN")
	assert.Zero(t, scores[SubsetAll].Recall)
}

func TestBinaryNoPositiveGroundTruthUndefinedRecall(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	require.NoError(t, acc.Update(SubsetAll,
		[]bool{true, false},
		[]bool{false, false}))

	scores := acc.Reduce()
	assert.True(t, math.IsNaN(scores[SubsetAll].Recall))
	assert.Zero(t, scores[SubsetAll].Precision)
}

func TestBinaryMixedCounts(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	// TP=2, FP=1, FN=1, TN=1
	require.NoError(t, acc.Update(SubsetAll,
		[]bool{true, true, true, false, false},
		[]bool{true, true, false, true, false}))

	scores := acc.Reduce()
	assert.InDelta(t, 2.0/3.0, scores[SubsetAll].Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, scores[SubsetAll].Recall, 1e-12)
}

func TestBinaryEmptyUpdateIsNoOp(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll, SubsetNormal, SubsetAbnormal)
	require.NoError(t, acc.Update(SubsetNormal, nil, nil))

	scores := acc.Reduce()
	assert.True(t, math.IsNaN(scores[SubsetNormal].Precision))
	assert.True(t, math.IsNaN(scores[SubsetNormal].Recall))
}

func TestBinaryUnknownSubset(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	err := acc.Update(SubsetNormal, []bool{true}, []bool{true})
	require.Error(t, err)
}

func TestBinaryLengthMismatchFatal(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	err := acc.Update(SubsetAll, []bool{true, false}, []bool{true})
	require.Error(t, err)
}

func TestBinaryMergeFrom(t *testing.T) {
	left := NewBinaryAccumulator(SubsetAll)
	right := NewBinaryAccumulator(SubsetAll)
	require.NoError(t, left.Update(SubsetAll, []bool{true}, []bool{true}))
	require.NoError(t, right.Update(SubsetAll, []bool{true, false}, []bool{false, true}))

	require.NoError(t, left.MergeFrom(right))
	scores := left.Reduce()

	// Combined: TP=1, FP=1, FN=1.
	assert.InDelta(t, 0.5, scores[SubsetAll].Precision, 1e-12)
	assert.InDelta(t, 0.5, scores[SubsetAll].Recall, 1e-12)
}

func TestBinaryUpdateAfterReducePanics(t *testing.T) {
	acc := NewBinaryAccumulator(SubsetAll)
	acc.Reduce()
	assert.Panics(t, func() {
		_ = acc.Update(SubsetAll, []bool{true}, []bool{true})
	})
}
