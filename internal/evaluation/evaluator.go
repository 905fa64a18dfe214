package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/radeval/internal/metrics"
	"github.com/MeKo-Tech/radeval/internal/textgen"
	"github.com/MeKo-Tech/radeval/internal/timing"
)

// Config bounds the expensive sub-loops of an evaluation pass. The
// generation and visualization budgets are counted in sentences and images
// respectively and converted to whole batch counts: generating sentences
// for all 36 regions of an image is slow, so only a prefix of the
// validation stream goes through the generation path.
type Config struct {
	// BatchSize of the validation stream, used to convert budgets into
	// batch counts.
	BatchSize int

	// SentenceGenerationBudget is the number of sentences to generate for
	// text-quality scoring.
	SentenceGenerationBudget int

	// VisualizationBudget is the number of images handed to the
	// visualization sink.
	VisualizationBudget int

	// AuditBatches is how many generation batches of sentence pairs are
	// written to the audit file.
	AuditBatches int
}

// DefaultConfig returns evaluation bounds matching a small validation run.
func DefaultConfig() Config {
	return Config{
		BatchSize:                16,
		SentenceGenerationBudget: 300,
		VisualizationBudget:      8,
		AuditBatches:             3,
	}
}

// Validate checks the configured bounds.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New("batch size must be > 0")
	}
	if c.SentenceGenerationBudget < 0 || c.VisualizationBudget < 0 || c.AuditBatches < 0 {
		return errors.New("budgets must be >= 0")
	}
	return nil
}

// Evaluator runs evaluation passes. It owns no accumulator state between
// passes; every call to Evaluate creates fresh accumulators and reduces
// them exactly once.
type Evaluator struct {
	cfg        Config
	model      Model
	decoder    textgen.Decoder
	embedder   metrics.TokenEmbedder
	visualizer Visualizer
	monitor    *Monitor
	tracker    *CheckpointTracker
	auditOut   io.Writer
	logger     *slog.Logger
}

// Option configures optional evaluator collaborators.
type Option func(*Evaluator)

// WithVisualizer attaches the opaque visualization sink.
func WithVisualizer(v Visualizer) Option {
	return func(e *Evaluator) { e.visualizer = v }
}

// WithMonitor attaches a Prometheus monitor that every report is published
// to.
func WithMonitor(m *Monitor) Option {
	return func(e *Evaluator) { e.monitor = m }
}

// WithAuditOutput directs the generated/reference sentence pairs of the
// first few generation batches to w.
func WithAuditOutput(w io.Writer) Option {
	return func(e *Evaluator) { e.auditOut = w }
}

// WithLogger sets the evaluator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// New creates an evaluator for a training run. The tracker carries the
// best-checkpoint state across passes.
func New(cfg Config, model Model, decoder textgen.Decoder, embedder metrics.TokenEmbedder,
	tracker *CheckpointTracker, opts ...Option,
) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Evaluator{
		cfg:      cfg,
		model:    model,
		decoder:  decoder,
		embedder: embedder,
		tracker:  tracker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs one full evaluation pass: the metric loop over the whole
// validation stream, the bounded generation loop, the reductions and the
// checkpoint decision. trainLosses are the loss sums accumulated since the
// last evaluation and are normalized by stepsTaken. The pass either
// completes or fails as a whole; there is no partial report.
func (e *Evaluator) Evaluate(ctx context.Context, source BatchSource,
	trainLosses LossBreakdown, stepsTaken, epoch, step int,
) (*Report, CheckpointDecision, error) {
	if stepsTaken > 0 {
		trainLosses.Scale(1 / float64(stepsTaken))
	}

	watch := timing.Start()

	overlap := metrics.NewOverlapAccumulator()
	selection := metrics.NewBinaryAccumulator(
		metrics.SubsetAll, metrics.SubsetNormal, metrics.SubsetAbnormal)
	abnormal := metrics.NewBinaryAccumulator(metrics.SubsetAll)
	text := metrics.NewTextAccumulator(e.embedder)

	valLosses, err := e.runMetricLoop(ctx, source, overlap, selection, abnormal)
	if err != nil {
		return nil, CheckpointDecision{}, fmt.Errorf("metric loop: %w", err)
	}
	e.logger.Debug("metric loop done", "elapsed", watch.Lap("metric_loop"))

	if err := source.Reset(); err != nil {
		return nil, CheckpointDecision{}, fmt.Errorf("resetting validation stream: %w", err)
	}
	if err := e.runGenerationLoop(ctx, source, text); err != nil {
		return nil, CheckpointDecision{}, fmt.Errorf("generation loop: %w", err)
	}
	e.logger.Debug("generation loop done", "elapsed", watch.Lap("generation_loop"))

	textScores, err := text.Reduce(ctx)
	if err != nil {
		return nil, CheckpointDecision{}, fmt.Errorf("reducing text metrics: %w", err)
	}

	report := &Report{
		Epoch:           epoch,
		Step:            step,
		TrainLosses:     trainLosses,
		ValLosses:       valLosses,
		RegionSelection: subsetPrecisionRecall(selection.Reduce()),
		RegionAbnormal:  subsetPrecisionRecall(abnormal.Reduce()),
		TextQuality:     subsetTextScores(textScores),
	}
	overlapScores := overlap.Reduce()
	report.AvgDetectionsPerImage = overlapScores.AvgDetectionsPerImage
	report.Regions = regionScores(overlapScores)

	decision := e.tracker.Observe(valLosses.Total, epoch)
	if decision.IsBest {
		state, err := e.model.Snapshot()
		if err != nil {
			return nil, CheckpointDecision{}, fmt.Errorf("snapshotting model: %w", err)
		}
		decision.State = state
		e.logger.Info("new best checkpoint",
			"val_loss", decision.ValLoss, "epoch", epoch, "path", decision.Path)
	}

	e.monitor.Publish(report, decision)
	e.logger.Info("evaluation pass complete",
		"summary", report.Summary(), "elapsed", watch.Total())

	return report, decision, nil
}

// runMetricLoop drives the full validation stream through the forward pass
// and the overlap/decision accumulators, returning the summed validation
// losses normalized by batch count.
func (e *Evaluator) runMetricLoop(ctx context.Context, source BatchSource,
	overlap *metrics.OverlapAccumulator, selection, abnormal *metrics.BinaryAccumulator,
) (LossBreakdown, error) {
	var losses LossBreakdown
	batches := 0

	for {
		batch, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return LossBreakdown{}, err
		}
		if err := batch.Truth.Validate(); err != nil {
			return LossBreakdown{}, err
		}

		out, err := e.model.Forward(ctx, batch)
		if err != nil {
			return LossBreakdown{}, err
		}
		if err := out.Validate(batch.Size()); err != nil {
			return LossBreakdown{}, err
		}

		losses.Add(out.Losses)
		batches++

		if err := overlap.Update(out.PredBoxes, batch.Truth.Boxes, out.Detected); err != nil {
			return LossBreakdown{}, err
		}
		if err := updateSelectionMetrics(selection, out, &batch.Truth); err != nil {
			return LossBreakdown{}, err
		}
		if err := updateAbnormalMetrics(abnormal, out, &batch.Truth); err != nil {
			return LossBreakdown{}, err
		}
	}

	if batches > 0 {
		losses.Scale(1 / float64(batches))
	}
	return losses, nil
}

// updateSelectionMetrics routes every region-level selection decision to
// the all subset and to exactly one of normal/abnormal. Subsets a batch
// contributes nothing to are skipped.
func updateSelectionMetrics(acc *metrics.BinaryAccumulator, out *ForwardOutput, truth *GroundTruth) error {
	var allPred, allActual []bool
	var normalPred, normalActual []bool
	var abnormalPred, abnormalActual []bool

	for i := range out.SelectedRegions {
		for r := range out.SelectedRegions[i] {
			pred := out.SelectedRegions[i][r]
			actual := truth.HasSentence[i][r]

			allPred = append(allPred, pred)
			allActual = append(allActual, actual)
			if truth.IsAbnormal[i][r] {
				abnormalPred = append(abnormalPred, pred)
				abnormalActual = append(abnormalActual, actual)
			} else {
				normalPred = append(normalPred, pred)
				normalActual = append(normalActual, actual)
			}
		}
	}

	if err := acc.Update(metrics.SubsetAll, allPred, allActual); err != nil {
		return err
	}
	if len(normalPred) > 0 {
		if err := acc.Update(metrics.SubsetNormal, normalPred, normalActual); err != nil {
			return err
		}
	}
	if len(abnormalPred) > 0 {
		if err := acc.Update(metrics.SubsetAbnormal, abnormalPred, abnormalActual); err != nil {
			return err
		}
	}
	return nil
}

// updateAbnormalMetrics scores the abnormality classifier only on regions
// the detector actually detected; undetected regions carry no usable
// feature vector for the classifier to judge.
func updateAbnormalMetrics(acc *metrics.BinaryAccumulator, out *ForwardOutput, truth *GroundTruth) error {
	var pred, actual []bool
	for i := range out.PredictedAbnormal {
		for r := range out.PredictedAbnormal[i] {
			if !out.Detected[i][r] {
				continue
			}
			pred = append(pred, out.PredictedAbnormal[i][r])
			actual = append(actual, truth.IsAbnormal[i][r])
		}
	}
	if len(pred) == 0 {
		return nil
	}
	return acc.Update(metrics.SubsetAll, pred, actual)
}

// runGenerationLoop runs the bounded generation and visualization
// sub-loops over a prefix of the validation stream.
func (e *Evaluator) runGenerationLoop(ctx context.Context, source BatchSource,
	text *metrics.TextAccumulator,
) error {
	genBatches := e.cfg.SentenceGenerationBudget / e.cfg.BatchSize
	visBatches := e.cfg.VisualizationBudget / e.cfg.BatchSize
	if genBatches == 0 {
		return nil
	}

	audit := NewAuditWriter(e.auditOut, e.cfg.AuditBatches)

	for num := 0; num < genBatches; num++ {
		batch, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := batch.Truth.Validate(); err != nil {
			return err
		}

		out, err := e.model.Generate(ctx, batch)
		if err != nil {
			return err
		}
		if err := out.Validate(batch.Size()); err != nil {
			return err
		}

		generated, err := textgen.DecodeBatch(e.decoder, out.TokenSequences)
		if err != nil {
			return fmt.Errorf("decoding generated sentences: %w", err)
		}

		references, abnormalFlags := selectedReferences(out.SelectedRegions, &batch.Truth)

		if err := audit.WriteBatch(generated, references); err != nil {
			return err
		}
		if err := updateTextMetrics(text, generated, references, abnormalFlags); err != nil {
			return err
		}

		if e.visualizer != nil && num < visBatches {
			if err := e.visualizer.VisualizeBatch(ctx, batch, out, generated); err != nil {
				return fmt.Errorf("visualization sink: %w", err)
			}
		}
	}
	return nil
}

// selectedReferences flattens the reference sentences and abnormality
// flags of the selected regions in the same row-major (image, region)
// order the generated sequences use.
func selectedReferences(selected [][]bool, truth *GroundTruth) (refs []string, abnormal []bool) {
	for i := range selected {
		for r := range selected[i] {
			if !selected[i][r] {
				continue
			}
			refs = append(refs, truth.ReferenceSentences[i][r])
			abnormal = append(abnormal, truth.IsAbnormal[i][r])
		}
	}
	return refs, abnormal
}

// updateTextMetrics feeds the text accumulator: everything into the all
// subset, then each pair into normal or abnormal by its source region's
// flag. Empty partitions are skipped for the batch.
func updateTextMetrics(acc *metrics.TextAccumulator, generated, references []string, abnormal []bool) error {
	if len(generated) != len(references) || len(generated) != len(abnormal) {
		return fmt.Errorf("text metric inputs misaligned: generated=%d references=%d flags=%d",
			len(generated), len(references), len(abnormal))
	}
	if len(generated) == 0 {
		return nil
	}

	if err := acc.Update(metrics.SubsetAll, generated, references); err != nil {
		return err
	}

	var normalGen, normalRef, abnormalGen, abnormalRef []string
	for i := range generated {
		if abnormal[i] {
			abnormalGen = append(abnormalGen, generated[i])
			abnormalRef = append(abnormalRef, references[i])
		} else {
			normalGen = append(normalGen, generated[i])
			normalRef = append(normalRef, references[i])
		}
	}

	if len(normalGen) > 0 {
		if err := acc.Update(metrics.SubsetNormal, normalGen, normalRef); err != nil {
			return err
		}
	}
	if len(abnormalGen) > 0 {
		if err := acc.Update(metrics.SubsetAbnormal, abnormalGen, abnormalRef); err != nil {
			return err
		}
	}
	return nil
}
