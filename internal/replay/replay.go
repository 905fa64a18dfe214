// Package replay scores recorded model outputs offline. A recording is a
// JSONL file with one record per image holding the ground truth, the
// forward-pass outputs and the generated sentences; the package exposes it
// as a batch source, model and decoder so the evaluation pass runs
// unchanged against it.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/radeval/internal/evaluation"
	"github.com/MeKo-Tech/radeval/internal/geometry"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

// Record is one image's recorded evaluation data. Boxes are [x0 y0 x1 y1];
// every per-region array has exactly taxonomy.NumRegions entries.
// Generated holds one sentence per selected region in region order.
type Record struct {
	Image string `json:"image,omitempty"`

	TruthBoxes  [][4]float64 `json:"truth_boxes"`
	HasSentence []bool       `json:"has_sentence"`
	IsAbnormal  []bool       `json:"is_abnormal"`
	References  []string     `json:"references"`

	PredBoxes         [][4]float64 `json:"pred_boxes"`
	Detected          []bool       `json:"detected"`
	Selected          []bool       `json:"selected"`
	PredictedAbnormal []bool       `json:"predicted_abnormal"`

	Generated []string                  `json:"generated"`
	Losses    *evaluation.LossBreakdown `json:"losses,omitempty"`
}

// Validate checks the record's shape invariants.
func (r *Record) Validate() error {
	for name, n := range map[string]int{
		"truth_boxes":        len(r.TruthBoxes),
		"has_sentence":       len(r.HasSentence),
		"is_abnormal":        len(r.IsAbnormal),
		"references":         len(r.References),
		"pred_boxes":         len(r.PredBoxes),
		"detected":           len(r.Detected),
		"selected":           len(r.Selected),
		"predicted_abnormal": len(r.PredictedAbnormal),
	} {
		if n != taxonomy.NumRegions {
			return fmt.Errorf("%s has %d entries, want %d", name, n, taxonomy.NumRegions)
		}
	}

	selected := 0
	for _, s := range r.Selected {
		if s {
			selected++
		}
	}
	if len(r.Generated) != selected {
		return fmt.Errorf("%d generated sentences for %d selected regions",
			len(r.Generated), selected)
	}
	return nil
}

// Session exposes one recording as the collaborators of an evaluation
// pass. The source, model and decoder returned by a session are coupled
// through it and not safe for concurrent use.
type Session struct {
	records    []Record
	batchSize  int
	loadImages bool

	pos       int
	batches   map[*evaluation.Batch][]int
	sentences []string
}

// Option configures a session.
type Option func(*Session)

// WithImages makes the source load each record's image file so the
// visualization sink has pixels to draw on.
func WithImages() Option {
	return func(s *Session) { s.loadImages = true }
}

// Load reads a JSONL recording from path.
func Load(path string, batchSize int, opts ...Option) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	s, err := Read(f, batchSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading recording %s: %w", path, err)
	}
	return s, nil
}

// Read parses a JSONL recording from r.
func Read(r io.Reader, batchSize int, opts ...Option) (*Session, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}

	s := &Session{
		batchSize: batchSize,
		batches:   make(map[*evaluation.Batch][]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.records = append(s.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(s.records) == 0 {
		return nil, fmt.Errorf("recording holds no records")
	}
	return s, nil
}

// Len returns the number of recorded images.
func (s *Session) Len() int { return len(s.records) }

// Source returns the session as a batch source.
func (s *Session) Source() evaluation.BatchSource { return (*source)(s) }

// Model returns the session as a model replaying recorded outputs.
func (s *Session) Model() evaluation.Model { return (*model)(s) }

// Decoder resolves the token sequences the replay model emits back to the
// recorded sentences.
func (s *Session) Decoder() *Decoder { return &Decoder{session: s} }

type source Session

func (s *source) Next(_ context.Context) (*evaluation.Batch, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	end := s.pos + s.batchSize
	if end > len(s.records) {
		end = len(s.records)
	}

	batch := &evaluation.Batch{}
	var indices []int
	for i := s.pos; i < end; i++ {
		rec := &s.records[i]
		batch.Truth.Boxes = append(batch.Truth.Boxes, toBoxes(rec.TruthBoxes))
		batch.Truth.HasSentence = append(batch.Truth.HasSentence, rec.HasSentence)
		batch.Truth.IsAbnormal = append(batch.Truth.IsAbnormal, rec.IsAbnormal)
		batch.Truth.ReferenceSentences = append(batch.Truth.ReferenceSentences, rec.References)

		img, err := s.loadImage(rec)
		if err != nil {
			return nil, err
		}
		batch.Images = append(batch.Images, img)

		indices = append(indices, i)
	}
	s.pos = end
	s.batches[batch] = indices
	return batch, nil
}

func (s *source) Reset() error {
	s.pos = 0
	return nil
}

func (s *source) loadImage(rec *Record) (image.Image, error) {
	if !s.loadImages || rec.Image == "" {
		return nil, nil
	}
	img, err := imaging.Open(rec.Image)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", rec.Image, err)
	}
	return img, nil
}

type model Session

func (m *model) Forward(_ context.Context, batch *evaluation.Batch) (*evaluation.ForwardOutput, error) {
	indices, ok := m.batches[batch]
	if !ok {
		return nil, fmt.Errorf("batch was not produced by this session")
	}

	out := &evaluation.ForwardOutput{}
	for _, i := range indices {
		rec := &m.records[i]
		out.PredBoxes = append(out.PredBoxes, toBoxes(rec.PredBoxes))
		out.Detected = append(out.Detected, rec.Detected)
		out.SelectedRegions = append(out.SelectedRegions, rec.Selected)
		out.PredictedAbnormal = append(out.PredictedAbnormal, rec.PredictedAbnormal)
		if rec.Losses != nil {
			out.Losses.Add(*rec.Losses)
		}
	}
	if n := len(indices); n > 0 {
		out.Losses.Scale(1 / float64(n))
	}
	return out, nil
}

func (m *model) Generate(_ context.Context, batch *evaluation.Batch) (*evaluation.GenerateOutput, error) {
	indices, ok := m.batches[batch]
	if !ok {
		return nil, fmt.Errorf("batch was not produced by this session")
	}

	out := &evaluation.GenerateOutput{}
	for _, i := range indices {
		rec := &m.records[i]
		out.PredBoxes = append(out.PredBoxes, toBoxes(rec.PredBoxes))
		out.Detected = append(out.Detected, rec.Detected)
		out.SelectedRegions = append(out.SelectedRegions, rec.Selected)

		for _, sentence := range rec.Generated {
			m.sentences = append(m.sentences, sentence)
			out.TokenSequences = append(out.TokenSequences, []int{len(m.sentences) - 1})
		}
	}
	return out, nil
}

// Snapshot returns no state; a replay session has no model to checkpoint.
func (m *model) Snapshot() ([]byte, error) { return nil, nil }

// Decoder maps the replay model's token sequences back to sentences.
type Decoder struct {
	session *Session
}

func (d *Decoder) Decode(ids []int) (string, error) {
	if len(ids) != 1 || ids[0] < 0 || ids[0] >= len(d.session.sentences) {
		return "", fmt.Errorf("token sequence %v not produced by this session", ids)
	}
	return d.session.sentences[ids[0]], nil
}

func toBoxes(raw [][4]float64) []geometry.Box {
	boxes := make([]geometry.Box, len(raw))
	for i, b := range raw {
		boxes[i] = geometry.NewBox(b[0], b[1], b[2], b[3])
	}
	return boxes
}
