package metrics

import (
	"context"
	"fmt"
)

// EmptyReferenceSentinel marks a reference slot that has no sentence for
// its region. It is normalized to an empty string before any metric
// computation; only the audit file writer ever sees the raw sentinel.
const EmptyReferenceSentinel = "#"

// NormalizeSentinel maps the empty-reference sentinel to an actual empty
// string and leaves every other sentence untouched.
func NormalizeSentinel(s string) string {
	if s == EmptyReferenceSentinel {
		return ""
	}
	return s
}

// maxBleuOrder is the highest n-gram order reported (BLEU-1 .. BLEU-4).
const maxBleuOrder = 4

// TextScores is the reduced per-subset output of a TextAccumulator.
// Bleu[i] holds the corpus BLEU score with max n-gram order i+1.
type TextScores struct {
	Bleu     [maxBleuOrder]float64
	Semantic SemanticScores
}

// TextAccumulator buffers (generated, reference) sentence pairs per subset
// and computes corpus-level text quality scores on reduction. The metrics
// need the whole corpus, so updates only append; nothing is computed until
// Reduce.
type TextAccumulator struct {
	embedder TokenEmbedder
	pairs    map[Subset][]sentencePair
	reduced  bool
}

// NewTextAccumulator creates an accumulator for one evaluation pass using
// the given embedder for the semantic similarity metric.
func NewTextAccumulator(embedder TokenEmbedder) *TextAccumulator {
	pairs := make(map[Subset][]sentencePair, len(Subsets()))
	for _, s := range Subsets() {
		pairs[s] = nil
	}
	return &TextAccumulator{embedder: embedder, pairs: pairs}
}

// Update appends a batch of sentence pairs to the given subset's corpus.
// Reference sentinels are normalized here so no metric backend ever sees
// them. Empty batches are a no-op; a generated/reference length mismatch is
// fatal for the pass.
func (a *TextAccumulator) Update(subset Subset, generated, reference []string) error {
	if a.reduced {
		panic("metrics: TextAccumulator updated after Reduce")
	}
	if _, ok := a.pairs[subset]; !ok {
		return fmt.Errorf("unknown subset %q", subset)
	}
	if len(generated) != len(reference) {
		return fmt.Errorf("subset %q: generated/reference length mismatch: %d vs %d",
			subset, len(generated), len(reference))
	}

	for i := range generated {
		a.pairs[subset] = append(a.pairs[subset], sentencePair{
			generated: generated[i],
			reference: NormalizeSentinel(reference[i]),
		})
	}
	return nil
}

// Reduce computes the corpus-level scores for every subset, consuming the
// buffered state. A subset that never received a pair reports NaN scores.
// Embedder failures abort the reduction.
func (a *TextAccumulator) Reduce(ctx context.Context) (map[Subset]TextScores, error) {
	if a.reduced {
		panic("metrics: TextAccumulator reduced twice")
	}
	a.reduced = true

	out := make(map[Subset]TextScores, len(a.pairs))
	for subset, pairs := range a.pairs {
		var scores TextScores
		for order := 1; order <= maxBleuOrder; order++ {
			scores.Bleu[order-1] = corpusBLEU(pairs, order)
		}

		semantic, err := semanticSimilarity(ctx, a.embedder, pairs)
		if err != nil {
			return nil, fmt.Errorf("subset %q: %w", subset, err)
		}
		scores.Semantic = semantic

		out[subset] = scores
	}
	return out, nil
}
