// Package embed provides contextual token embeddings via ONNX Runtime,
// backing the semantic text-similarity metric. The encoder wraps a
// transformer exported to ONNX plus its tokenizer file.
package embed

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Config holds the paths and limits for the embedding encoder.
type Config struct {
	ModelPath     string // ONNX model producing last_hidden_state
	TokenizerPath string // tokenizer.json matching the model
	MaxTokens     int    // truncation limit per sentence (0 = 512)
}

// DefaultConfig returns encoder defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 512}
}

// Encoder tokenizes sentences and runs them through an ONNX transformer,
// returning one embedding per token. It is safe for sequential use by one
// evaluation pass; Infer calls are serialized internally.
type Encoder struct {
	session *ort.DynamicAdvancedSession
	tk      *tokenizer.Tokenizer
	cfg     Config
	mu      sync.Mutex
	closed  bool
}

// NewEncoder loads the tokenizer and creates the ONNX session.
func NewEncoder(cfg Config) (*Encoder, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Encoder{session: session, tk: tk, cfg: cfg}, nil
}

// EmbedTokens returns one contextual embedding per token of text. An empty
// sentence yields zero tokens, not an error.
func (e *Encoder) EmbedTokens(ctx context.Context, text string) ([][]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if text == "" {
		return nil, nil
	}

	encoding, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}

	ids := encoding.Ids
	if len(ids) > e.cfg.MaxTokens {
		ids = ids[:e.cfg.MaxTokens]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	inputIDs := make([]int64, len(ids))
	attentionMask := make([]int64, len(ids))
	for i, id := range ids {
		inputIDs[i] = int64(id)
		attentionMask[i] = 1
	}

	return e.infer(inputIDs, attentionMask)
}

func (e *Encoder) infer(inputIDs, attentionMask []int64) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("encoder is closed")
	}

	seqLen := int64(len(inputIDs))
	shape := ort.NewShape(1, seqLen)

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = idsTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := hidden.GetData()
	if int64(len(data))%seqLen != 0 {
		return nil, fmt.Errorf("output length %d not divisible by sequence length %d",
			len(data), seqLen)
	}
	dim := int(int64(len(data)) / seqLen)

	embeddings := make([][]float32, seqLen)
	for i := range embeddings {
		vec := make([]float32, dim)
		copy(vec, data[i*dim:(i+1)*dim])
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Close releases ONNX resources.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
