package metrics

import (
	"context"
	"hash/fnv"
)

// LexicalEmbedder is a TokenEmbedder that maps each word to a fixed
// pseudo-random unit vector derived from its hash. Identical words match
// perfectly and distinct words are near-orthogonal, so the semantic metric
// degrades to a soft lexical overlap. It stands in when no embedding model
// is available.
type LexicalEmbedder struct {
	// Dim is the vector dimensionality; zero means 64.
	Dim int
}

func (e LexicalEmbedder) EmbedTokens(_ context.Context, text string) ([][]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 64
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(tokens))
	for i, tok := range tokens {
		vectors[i] = hashVector(tok, dim)
	}
	return vectors, nil
}

// hashVector expands a token hash into a deterministic vector via an
// xorshift generator seeded by the hash.
func hashVector(token string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(token))
	state := h.Sum64()
	if state == 0 {
		state = 1
	}

	v := make([]float32, dim)
	for i := range v {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		// map to [-1, 1)
		v[i] = float32(int64(state)) / float32(1<<63)
	}
	return v
}
