package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/radeval/internal/evaluation"
	"github.com/MeKo-Tech/radeval/internal/replay"
	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd := GetRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "radeval", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "evaluate")
	assert.Contains(t, out, "regions")
}

func TestRegionsCommand(t *testing.T) {
	out, err := execute(t, "regions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, taxonomy.NumRegions)
	assert.Contains(t, lines[0], "right lung")
	assert.Contains(t, lines[taxonomy.NumRegions-1], "cardiac silhouette")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "radeval")
}

func writeRecording(t *testing.T, path string) {
	t.Helper()

	rec := replay.Record{
		TruthBoxes:        make([][4]float64, taxonomy.NumRegions),
		HasSentence:       make([]bool, taxonomy.NumRegions),
		IsAbnormal:        make([]bool, taxonomy.NumRegions),
		References:        make([]string, taxonomy.NumRegions),
		PredBoxes:         make([][4]float64, taxonomy.NumRegions),
		Detected:          make([]bool, taxonomy.NumRegions),
		Selected:          make([]bool, taxonomy.NumRegions),
		PredictedAbnormal: make([]bool, taxonomy.NumRegions),
		Losses:            &evaluation.LossBreakdown{Total: 1.5},
	}
	for r := range rec.TruthBoxes {
		rec.TruthBoxes[r] = [4]float64{0, 0, 10, 10}
		rec.PredBoxes[r] = [4]float64{0, 0, 10, 10}
		rec.References[r] = "#"
	}
	rec.HasSentence[0] = true
	rec.Detected[0] = true
	rec.Selected[0] = true
	rec.References[0] = "the lungs are clear"
	rec.Generated = []string{"the lungs are clear"}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, '\n'), 0o644))
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "outputs.jsonl")
	writeRecording(t, recording)
	reportFile := filepath.Join(dir, "report.yaml")
	auditFile := filepath.Join(dir, "audit.txt")

	t.Setenv("RADEVAL_OUTPUT_AUDIT_FILE", auditFile)
	t.Setenv("RADEVAL_CHECKPOINT_DIR", filepath.Join(dir, "ckpt"))

	_, err := execute(t, "evaluate",
		"--recording", recording,
		"--batch-size", "1",
		"--epoch", "2",
		"--report", reportFile)
	require.NoError(t, err)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)

	var report evaluation.Report
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Epoch)
	assert.InDelta(t, 1.5, report.ValLosses.Total, 1e-9)
	assert.InDelta(t, 1.0, report.Regions[0].IoU, 1e-9)

	audit, err := os.ReadFile(auditFile)
	require.NoError(t, err)
	assert.Contains(t, string(audit), "generated: the lungs are clear")
}

func TestEvaluateCommandMissingRecording(t *testing.T) {
	_, err := execute(t, "evaluate", "--recording", "/nonexistent.jsonl", "--batch-size", "1")
	require.Error(t, err)
}
