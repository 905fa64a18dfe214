package evaluation

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointTrackerFirstObservationIsBest(t *testing.T) {
	tracker := NewCheckpointTracker("/ckpt")

	d := tracker.Observe(2.345, 0)
	require.True(t, d.IsBest)
	assert.Equal(t, filepath.Join("/ckpt", "val_loss_2.345_epoch_0.pt"), d.Path)
	assert.Equal(t, 2.345, d.ValLoss)
	assert.Equal(t, 0, d.BestEpoch)
}

func TestCheckpointTrackerOnlyImprovementsAreBest(t *testing.T) {
	tracker := NewCheckpointTracker("/ckpt")
	tracker.Observe(2.0, 0)

	worse := tracker.Observe(2.5, 1)
	assert.False(t, worse.IsBest)
	assert.Equal(t, 0, worse.BestEpoch)

	equal := tracker.Observe(2.0, 2)
	assert.False(t, equal.IsBest)

	better := tracker.Observe(1.9, 3)
	require.True(t, better.IsBest)
	assert.Contains(t, better.Path, "val_loss_1.900_epoch_3.pt")

	loss, epoch := tracker.Best()
	assert.Equal(t, 1.9, loss)
	assert.Equal(t, 3, epoch)
}

func TestCheckpointTrackerPathRoundsLoss(t *testing.T) {
	tracker := NewCheckpointTracker("out")
	d := tracker.Observe(0.123456, 7)
	assert.Equal(t, filepath.Join("out", "val_loss_0.123_epoch_7.pt"), d.Path)
}

func TestCheckpointTrackerNaNLossNeverBest(t *testing.T) {
	tracker := NewCheckpointTracker("out")
	d := tracker.Observe(math.NaN(), 0)
	assert.False(t, d.IsBest)

	d = tracker.Observe(1.0, 1)
	assert.True(t, d.IsBest)
}
