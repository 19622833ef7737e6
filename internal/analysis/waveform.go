package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
	"rhythmdb/internal/trackkey"
)

// Waveform render geometry and color passed to showwavespic.
const (
	waveformSize   = "1200x300"
	waveformColors = "0x3e8ede"
)

// Waveform renders track waveform images into a cache directory. Filenames
// are deterministic per store key, so repeated or concurrent renders of the
// same track converge on one file.
type Waveform struct {
	ffmpeg     string
	dir        string
	logger     *slog.Logger
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWaveform builds a renderer writing into dir. An empty dir disables
// waveform generation.
func NewWaveform(ffmpeg, dir string, logger *slog.Logger) *Waveform {
	binary := strings.TrimSpace(ffmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Waveform{
		ffmpeg:     binary,
		dir:        strings.TrimSpace(dir),
		logger:     logging.NewComponentLogger(logger, "waveform"),
		runCommand: runWaveformCommand,
	}
}

// Enabled reports whether a cache directory is configured.
func (w *Waveform) Enabled() bool {
	return w != nil && w.dir != ""
}

// ImagePath returns the deterministic cache path for the audio file. The
// name is the lowercased stem plus a 10-character hash of the store key, so
// case-variant paths to one track share one image.
func (w *Waveform) ImagePath(audioPath string) string {
	key := trackkey.Key(audioPath)
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.png", trackkey.Stem(key), keyHash(key)))
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:10]
}

// Generate renders the waveform image for the audio file, reusing an
// existing render for the same key. Returns the image path.
func (w *Waveform) Generate(ctx context.Context, audioPath string) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	target := w.ImagePath(audioPath)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return target, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStoreIO, "merge", "create waveform directory", w.dir, err)
	}

	tmp, err := os.CreateTemp(w.dir, filepath.Base(target)+".tmp-*.png")
	if err != nil {
		return "", services.Wrap(services.ErrStoreIO, "merge", "create waveform temp file", w.dir, err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()

	args := []string{
		"-v", "error", "-hide_banner", "-y",
		"-i", audioPath,
		"-filter_complex", fmt.Sprintf("showwavespic=s=%s:colors=%s", waveformSize, waveformColors),
		"-frames:v", "1",
		tmpName,
	}
	if _, err := w.runCommand(ctx, w.ffmpeg, args...); err != nil {
		_ = os.Remove(tmpName)
		return "", services.Wrap(services.ErrExternalTool, "merge", "render waveform", audioPath, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", services.Wrap(services.ErrStoreIO, "merge", "place waveform", target, err)
	}

	w.logger.Debug("waveform rendered",
		logging.String(logging.FieldSourcePath, audioPath),
		logging.String("image", target))
	return target, nil
}

func runWaveformCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: %s", err, detail)
	}
	return stdout.Bytes(), nil
}
