package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoderMissingModel(t *testing.T) {
	_, err := NewEncoder(Config{
		ModelPath:     "/nonexistent/model.onnx",
		TokenizerPath: "/nonexistent/tokenizer.json",
	})
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 512, cfg.MaxTokens)
}
