package metrics

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sentencePair is one (generated, reference) sentence pair buffered for
// corpus-level scoring.
type sentencePair struct {
	generated string
	reference string
}

// tokenize normalizes a sentence to NFC, lowercases it, and splits on
// whitespace. Trailing punctuation is split off so "noted." and "noted"
// count as the same unigram.
func tokenize(s string) []string {
	s = strings.ToLower(norm.NFC.String(s))
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimRight(f, ".,;:!?")
		if trimmed != "" && trimmed != f {
			tokens = append(tokens, trimmed, f[len(trimmed):])
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func countNgrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

// corpusBLEU computes corpus-level BLEU over the buffered pairs with
// modified n-gram precisions up to maxOrder, geometric mean, and the usual
// brevity penalty. Any zero precision makes the whole score zero (no
// smoothing). An empty corpus yields NaN.
func corpusBLEU(pairs []sentencePair, maxOrder int) float64 {
	if len(pairs) == 0 {
		return math.NaN()
	}

	matches := make([]float64, maxOrder)
	totals := make([]float64, maxOrder)
	var candLen, refLen float64

	for _, p := range pairs {
		cand := tokenize(p.generated)
		ref := tokenize(p.reference)
		candLen += float64(len(cand))
		refLen += float64(len(ref))

		for n := 1; n <= maxOrder; n++ {
			candCounts := countNgrams(cand, n)
			refCounts := countNgrams(ref, n)
			for gram, c := range candCounts {
				totals[n-1] += float64(c)
				if rc, ok := refCounts[gram]; ok {
					matches[n-1] += math.Min(float64(c), float64(rc))
				}
			}
		}
	}

	logSum := 0.0
	for n := 0; n < maxOrder; n++ {
		if totals[n] == 0 || matches[n] == 0 {
			return 0
		}
		logSum += math.Log(matches[n] / totals[n])
	}
	score := math.Exp(logSum / float64(maxOrder))

	if candLen < refLen && candLen > 0 {
		score *= math.Exp(1 - refLen/candLen)
	}
	return score
}
