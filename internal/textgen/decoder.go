// Package textgen bridges the language model's raw output into evaluable
// text: generated token-ID sequences are opaque to the evaluation core and
// only a Decoder turns them into sentences.
package textgen

import (
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Decoder turns one generated token-ID sequence into a sentence.
type Decoder interface {
	Decode(ids []int) (string, error)
}

// TokenizerDecoder decodes with a HuggingFace-format tokenizer file,
// skipping special tokens the generation loop emits (BOS/EOS/padding).
type TokenizerDecoder struct {
	tk *tokenizer.Tokenizer
}

// NewTokenizerDecoder loads a tokenizer.json file.
func NewTokenizerDecoder(path string) (*TokenizerDecoder, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}
	return &TokenizerDecoder{tk: tk}, nil
}

// Decode implements Decoder.
func (d *TokenizerDecoder) Decode(ids []int) (string, error) {
	return strings.TrimSpace(d.tk.Decode(ids, true)), nil
}

// DecodeBatch decodes every sequence with the given decoder, preserving
// order.
func DecodeBatch(d Decoder, sequences [][]int) ([]string, error) {
	out := make([]string, len(sequences))
	for i, ids := range sequences {
		text, err := d.Decode(ids)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		out[i] = text
	}
	return out, nil
}
