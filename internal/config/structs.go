package config

import (
	"errors"
	"fmt"
)

// Config is the complete configuration of the radeval application. It
// supports loading from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Evaluation EvaluationConfig `mapstructure:"evaluation" yaml:"evaluation" json:"evaluation"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint" json:"checkpoint"`
	Embedder   EmbedderConfig   `mapstructure:"embedder" yaml:"embedder" json:"embedder"`
	Decoder    DecoderConfig    `mapstructure:"decoder" yaml:"decoder" json:"decoder"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// EvaluationConfig bounds the evaluation pass.
type EvaluationConfig struct {
	// EvaluateEvery is the training-step cadence at which a training
	// driver should run an evaluation pass.
	EvaluateEvery int `mapstructure:"evaluate_every" yaml:"evaluate_every" json:"evaluate_every"`

	BatchSize                int `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size"`
	SentenceGenerationBudget int `mapstructure:"sentence_generation_budget" yaml:"sentence_generation_budget" json:"sentence_generation_budget"`
	VisualizationBudget      int `mapstructure:"visualization_budget" yaml:"visualization_budget" json:"visualization_budget"`
	AuditBatches             int `mapstructure:"audit_batches" yaml:"audit_batches" json:"audit_batches"`
}

// CheckpointConfig locates checkpoint output.
type CheckpointConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// EmbedderConfig locates the token-embedding model used by the semantic
// text metric.
type EmbedderConfig struct {
	ModelPath     string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path" yaml:"tokenizer_path" json:"tokenizer_path"`
	MaxTokens     int    `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
}

// DecoderConfig locates the tokenizer that decodes generated token
// sequences back to sentences.
type DecoderConfig struct {
	TokenizerPath string `mapstructure:"tokenizer_path" yaml:"tokenizer_path" json:"tokenizer_path"`
}

// OutputConfig contains report and artifact output settings.
type OutputConfig struct {
	ReportFile string `mapstructure:"report_file" yaml:"report_file" json:"report_file"`
	AuditFile  string `mapstructure:"audit_file" yaml:"audit_file" json:"audit_file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen" json:"listen"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if err := c.Evaluation.Validate(); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics: listen address required when enabled")
	}
	return nil
}

// Validate checks the evaluation bounds.
func (c *EvaluationConfig) Validate() error {
	if c.EvaluateEvery <= 0 {
		return fmt.Errorf("evaluate_every must be > 0, got %d", c.EvaluateEvery)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, got %d", c.BatchSize)
	}
	if c.SentenceGenerationBudget < 0 {
		return fmt.Errorf("sentence generation budget must be >= 0, got %d", c.SentenceGenerationBudget)
	}
	if c.VisualizationBudget < 0 {
		return fmt.Errorf("visualization budget must be >= 0, got %d", c.VisualizationBudget)
	}
	if c.AuditBatches < 0 {
		return fmt.Errorf("audit batches must be >= 0, got %d", c.AuditBatches)
	}
	return nil
}

// Validate checks the embedder settings.
func (c *EmbedderConfig) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be >= 0, got %d", c.MaxTokens)
	}
	return nil
}
