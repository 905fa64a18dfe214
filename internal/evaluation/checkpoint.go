package evaluation

import (
	"fmt"
	"math"
	"path/filepath"
)

// CheckpointDecision reports whether a pass improved on the best seen
// validation loss. When IsBest is true, State carries the model snapshot
// and Path the file name the persistence collaborator should write it to.
type CheckpointDecision struct {
	IsBest    bool
	Path      string
	State     []byte
	ValLoss   float64
	BestEpoch int
}

// CheckpointTracker keeps the lowest total validation loss across
// evaluation passes of one training run.
type CheckpointTracker struct {
	dir           string
	lowestValLoss float64
	bestEpoch     int
}

// NewCheckpointTracker creates a tracker writing checkpoint paths under dir.
func NewCheckpointTracker(dir string) *CheckpointTracker {
	return &CheckpointTracker{dir: dir, lowestValLoss: math.Inf(1), bestEpoch: -1}
}

// Observe records a pass's total validation loss and returns the decision.
// The caller snapshots the model only when IsBest is true.
func (t *CheckpointTracker) Observe(valLoss float64, epoch int) CheckpointDecision {
	if !(valLoss < t.lowestValLoss) {
		return CheckpointDecision{ValLoss: valLoss, BestEpoch: t.bestEpoch}
	}

	t.lowestValLoss = valLoss
	t.bestEpoch = epoch
	return CheckpointDecision{
		IsBest:    true,
		Path:      filepath.Join(t.dir, fmt.Sprintf("val_loss_%.3f_epoch_%d.pt", valLoss, epoch)),
		ValLoss:   valLoss,
		BestEpoch: epoch,
	}
}

// Best returns the lowest loss and its epoch seen so far.
func (t *CheckpointTracker) Best() (float64, int) {
	return t.lowestValLoss, t.bestEpoch
}
