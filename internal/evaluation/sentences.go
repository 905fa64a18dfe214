package evaluation

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/radeval/internal/metrics"
)

// AuditWriter persists a bounded number of generated/reference sentence
// pair batches as plain text for manual review. The empty-reference
// sentinel is rendered as an empty string; the file format is for human
// eyes, not machine parsing.
type AuditWriter struct {
	w          io.Writer
	maxBatches int
	batches    int
}

// NewAuditWriter writes at most maxBatches batches to w.
func NewAuditWriter(w io.Writer, maxBatches int) *AuditWriter {
	return &AuditWriter{w: w, maxBatches: maxBatches}
}

// WriteBatch appends one batch of pairs. Batches beyond the budget are
// silently dropped so callers can feed every generation batch without
// tracking the budget themselves.
func (a *AuditWriter) WriteBatch(generated, reference []string) error {
	if a == nil || a.w == nil {
		return nil
	}
	if a.batches >= a.maxBatches {
		return nil
	}
	if len(generated) != len(reference) {
		return fmt.Errorf("audit batch length mismatch: %d generated, %d reference",
			len(generated), len(reference))
	}

	for i := range generated {
		if _, err := fmt.Fprintf(a.w, "generated: %s\nreference: %s\n\n",
			generated[i], metrics.NormalizeSentinel(reference[i])); err != nil {
			return fmt.Errorf("writing audit sentences: %w", err)
		}
	}
	a.batches++
	return nil
}
