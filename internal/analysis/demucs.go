package analysis

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
)

// DemucsSeparator runs the demucs CLI in two-stems mode, producing a
// vocals stem and a residual stem. The model configuration is owned by
// the caller and passed in at construction; jobs with different model
// configs can run concurrently without interference.
type DemucsSeparator struct {
	cfg config.SeparationConfig
}

func NewDemucsSeparator(cfg config.SeparationConfig) *DemucsSeparator {
	return &DemucsSeparator{cfg: cfg}
}

// Separate invokes demucs on inputPath and returns stem name → WAV
// path. Demucs lays its output under <out>/<model>/<input stem>/;
// "no_vocals" is mapped to the residual "other" stem.
func (s *DemucsSeparator) Separate(ctx context.Context, inputPath, outputDir string) (map[string]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, model.NewSeparationError(err)
	}

	args := []string{
		"--two-stems", "vocals",
		"-n", s.cfg.Model,
		"-o", outputDir,
	}
	if s.cfg.Device != "" {
		args = append(args, "--device", s.cfg.Device)
	}
	args = append(args, inputPath)

	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, model.NewSeparationError(
			fmt.Errorf("demucs: %w: %s", err, stderr.String()))
	}

	base := filepath.Base(inputPath)
	stemDir := filepath.Join(outputDir, s.cfg.Model, base[:len(base)-len(filepath.Ext(base))])

	stems := map[string]string{
		StemVocals: filepath.Join(stemDir, "vocals.wav"),
		StemOther:  filepath.Join(stemDir, "no_vocals.wav"),
	}
	for name, path := range stems {
		if _, err := os.Stat(path); err != nil {
			return nil, model.NewSeparationError(
				fmt.Errorf("missing %s stem at %s", name, path))
		}
	}
	return stems, nil
}
