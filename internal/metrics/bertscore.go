package metrics

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// TokenEmbedder produces contextual per-token embeddings for a sentence.
// Implementations are expected to be expensive (a transformer behind ONNX
// Runtime); failures are propagated and abort the evaluation pass rather
// than leaving the semantic score silently partial.
type TokenEmbedder interface {
	EmbedTokens(ctx context.Context, text string) ([][]float32, error)
}

// SemanticScores is the reduced output of the embedding-similarity metric:
// corpus means of per-pair greedy-matching precision, recall and F1.
type SemanticScores struct {
	Precision float64
	Recall    float64
	F1        float64
}

// semanticSimilarity scores all buffered pairs with greedy token matching:
// precision is the mean over generated tokens of the best cosine similarity
// against any reference token, recall the symmetric quantity, F1 their
// harmonic mean. Pair scores are averaged over the corpus.
func semanticSimilarity(ctx context.Context, embedder TokenEmbedder, pairs []sentencePair) (SemanticScores, error) {
	if len(pairs) == 0 {
		return SemanticScores{
			Precision: math.NaN(),
			Recall:    math.NaN(),
			F1:        math.NaN(),
		}, nil
	}

	precisions := make([]float64, 0, len(pairs))
	recalls := make([]float64, 0, len(pairs))
	f1s := make([]float64, 0, len(pairs))

	for i, p := range pairs {
		gen, err := embedder.EmbedTokens(ctx, p.generated)
		if err != nil {
			return SemanticScores{}, fmt.Errorf("embedding generated sentence %d: %w", i, err)
		}
		ref, err := embedder.EmbedTokens(ctx, p.reference)
		if err != nil {
			return SemanticScores{}, fmt.Errorf("embedding reference sentence %d: %w", i, err)
		}

		precision, recall := greedyMatch(gen, ref)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		precisions = append(precisions, precision)
		recalls = append(recalls, recall)
		f1s = append(f1s, f1)
	}

	meanP, err := stats.Mean(precisions)
	if err != nil {
		return SemanticScores{}, err
	}
	meanR, err := stats.Mean(recalls)
	if err != nil {
		return SemanticScores{}, err
	}
	meanF1, err := stats.Mean(f1s)
	if err != nil {
		return SemanticScores{}, err
	}
	return SemanticScores{Precision: meanP, Recall: meanR, F1: meanF1}, nil
}

// greedyMatch computes precision over gen tokens and recall over ref
// tokens. Two empty sentences match perfectly; one-sided emptiness scores
// zero on the side that has tokens to match.
func greedyMatch(gen, ref [][]float32) (precision, recall float64) {
	if len(gen) == 0 && len(ref) == 0 {
		return 1, 1
	}
	if len(gen) == 0 || len(ref) == 0 {
		return 0, 0
	}

	for _, g := range gen {
		precision += bestCosine(g, ref)
	}
	precision /= float64(len(gen))

	for _, r := range ref {
		recall += bestCosine(r, gen)
	}
	recall /= float64(len(ref))
	return precision, recall
}

func bestCosine(v []float32, others [][]float32) float64 {
	best := math.Inf(-1)
	for _, o := range others {
		if c := cosine(v, o); c > best {
			best = c
		}
	}
	return best
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
