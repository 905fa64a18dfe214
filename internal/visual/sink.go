package visual

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/radeval/internal/evaluation"
)

// DirectorySink writes one overlay PNG per image into a directory. It
// implements the evaluation.Visualizer interface; the evaluator bounds how
// many batches reach it.
type DirectorySink struct {
	dir    string
	logger *slog.Logger

	batch int
}

// NewDirectorySink creates the output directory and the sink.
func NewDirectorySink(dir string, logger *slog.Logger) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating visualization directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySink{dir: dir, logger: logger}, nil
}

// VisualizeBatch renders and saves the overlays for one batch. Images the
// batch source did not load are skipped.
func (s *DirectorySink) VisualizeBatch(ctx context.Context, batch *evaluation.Batch,
	out *evaluation.GenerateOutput, _ []string,
) error {
	defer func() { s.batch++ }()

	for i := range batch.Truth.Boxes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i >= len(batch.Images) || batch.Images[i] == nil {
			continue
		}

		overlay := RenderOverlay(batch.Images[i], batch.Truth.Boxes[i], out.PredBoxes[i], out.Detected[i])
		path := filepath.Join(s.dir, fmt.Sprintf("batch_%03d_image_%02d.png", s.batch, i))
		if err := imaging.Save(overlay, path); err != nil {
			return fmt.Errorf("saving overlay %s: %w", path, err)
		}
		s.logger.Debug("wrote overlay", "path", path)
	}
	return nil
}
