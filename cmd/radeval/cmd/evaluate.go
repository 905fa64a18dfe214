package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/radeval/internal/config"
	"github.com/MeKo-Tech/radeval/internal/embed"
	"github.com/MeKo-Tech/radeval/internal/evaluation"
	"github.com/MeKo-Tech/radeval/internal/metrics"
	"github.com/MeKo-Tech/radeval/internal/replay"
	"github.com/MeKo-Tech/radeval/internal/visual"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a recording of model outputs",
	Long: `Runs a full evaluation pass over a JSONL recording of validation
outputs: box overlap per region, precision and recall of the region
selection and abnormality decisions, and BLEU plus semantic similarity of
the generated sentences. The report is written as YAML.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().String("recording", "", "JSONL recording of model outputs (required)")
	evaluateCmd.Flags().Int("batch-size", 0, "batch size of the recorded validation stream")
	evaluateCmd.Flags().Int("epoch", 0, "epoch the recording was taken at")
	evaluateCmd.Flags().Int("step", 0, "overall training step the recording was taken at")
	evaluateCmd.Flags().String("report", "", "report output file (default stdout)")
	evaluateCmd.Flags().Bool("with-images", false, "load recorded image files and write box overlays")
	_ = evaluateCmd.MarkFlagRequired("recording")

	_ = viper.BindPFlag("evaluation.batch_size", evaluateCmd.Flags().Lookup("batch-size"))

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := slog.Default()

	recording, _ := cmd.Flags().GetString("recording")
	epoch, _ := cmd.Flags().GetInt("epoch")
	step, _ := cmd.Flags().GetInt("step")
	reportFile, _ := cmd.Flags().GetString("report")
	withImages, _ := cmd.Flags().GetBool("with-images")

	if batchSize, _ := cmd.Flags().GetInt("batch-size"); batchSize > 0 {
		cfg.Evaluation.BatchSize = batchSize
	}

	var sessionOpts []replay.Option
	if withImages {
		sessionOpts = append(sessionOpts, replay.WithImages())
	}
	session, err := replay.Load(recording, cfg.Evaluation.BatchSize, sessionOpts...)
	if err != nil {
		return err
	}
	logger.Info("loaded recording", "path", recording, "images", session.Len())

	embedder, cleanup, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []evaluation.Option{evaluation.WithLogger(logger)}

	if cfg.Output.AuditFile != "" && cfg.Evaluation.AuditBatches > 0 {
		auditOut, err := os.Create(cfg.Output.AuditFile)
		if err != nil {
			return fmt.Errorf("creating audit file: %w", err)
		}
		defer auditOut.Close()
		opts = append(opts, evaluation.WithAuditOutput(auditOut))
	}

	if withImages && cfg.Output.OverlayDir != "" {
		sink, err := visual.NewDirectorySink(cfg.Output.OverlayDir, logger)
		if err != nil {
			return err
		}
		opts = append(opts, evaluation.WithVisualizer(sink))
	}

	if cfg.Metrics.Enabled {
		monitor := evaluation.NewMonitor(prometheus.DefaultRegisterer)
		opts = append(opts, evaluation.WithMonitor(monitor))
		go serveMetrics(cfg.Metrics.Listen, logger)
	}

	evaluator, err := evaluation.New(evaluation.Config{
		BatchSize:                cfg.Evaluation.BatchSize,
		SentenceGenerationBudget: cfg.Evaluation.SentenceGenerationBudget,
		VisualizationBudget:      cfg.Evaluation.VisualizationBudget,
		AuditBatches:             cfg.Evaluation.AuditBatches,
	}, session.Model(), session.Decoder(), embedder,
		evaluation.NewCheckpointTracker(cfg.Checkpoint.Dir), opts...)
	if err != nil {
		return err
	}

	report, _, err := evaluator.Evaluate(cmd.Context(), session.Source(),
		evaluation.LossBreakdown{}, 0, epoch, step)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFile != "" {
		f, err := os.Create(reportFile)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteYAML(out); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
	return nil
}

// buildEmbedder returns the configured ONNX token embedder, or the lexical
// fallback when no model path is set.
func buildEmbedder(cfg *config.Config, logger *slog.Logger) (metrics.TokenEmbedder, func(), error) {
	if cfg.Embedder.ModelPath == "" {
		logger.Warn("no embedding model configured, semantic scores use the lexical fallback")
		return metrics.LexicalEmbedder{}, func() {}, nil
	}

	encoder, err := embed.NewEncoder(embed.Config{
		ModelPath:     cfg.Embedder.ModelPath,
		TokenizerPath: cfg.Embedder.TokenizerPath,
		MaxTokens:     cfg.Embedder.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading embedding model: %w", err)
	}
	return encoder, func() { _ = encoder.Close() }, nil
}

func serveMetrics(listen string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", "addr", listen)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
