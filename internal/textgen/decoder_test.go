package textgen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vocabDecoder maps each token ID to a fixed word, for testing DecodeBatch
// without a tokenizer file.
type vocabDecoder struct {
	vocab map[int]string
}

func (d vocabDecoder) Decode(ids []int) (string, error) {
	out := ""
	for i, id := range ids {
		word, ok := d.vocab[id]
		if !ok {
			return "", fmt.Errorf("unknown token id %d", id)
		}
		if i > 0 {
			out += " "
		}
		out += word
	}
	return out, nil
}

func TestDecodeBatch(t *testing.T) {
	d := vocabDecoder{vocab: map[int]string{1: "lungs", 2: "clear"}}

	texts, err := DecodeBatch(d, [][]int{{1, 2}, {2}, nil})
	require.NoError(t, err)
	assert.Equal(t, []string{"lungs clear", "clear", ""}, texts)
}

func TestDecodeBatchPropagatesError(t *testing.T) {
	d := vocabDecoder{vocab: map[int]string{}}
	_, err := DecodeBatch(d, [][]int{{99}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, nil))
}

func TestNewTokenizerDecoderMissingFile(t *testing.T) {
	_, err := NewTokenizerDecoder("/nonexistent/tokenizer.json")
	require.Error(t, err)
}
