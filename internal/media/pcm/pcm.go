// Package pcm decodes audio windows to mono PCM samples by shelling out to
// ffmpeg. Tempo estimation and window probes consume the normalized stream.
package pcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Window identifies a time slice of an audio file.
type Window struct {
	StartSec    float64
	DurationSec float64
}

// Decode extracts a mono window at the given sample rate, normalized to
// [-1, 1]. A zero-duration window decodes the whole file.
func Decode(ctx context.Context, binary string, path string, window Window, sampleRate int) ([]float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if path == "" {
		return nil, errors.New("pcm decode: empty path")
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	args := make([]string, 0, 16)
	args = append(args, "-v", "error", "-nostdin")
	if window.StartSec > 0 {
		args = append(args, "-ss", formatSeconds(window.StartSec))
	}
	args = append(args, "-i", path)
	if window.DurationSec > 0 {
		args = append(args, "-t", formatSeconds(window.DurationSec))
	}
	args = append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-",
	)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, detail)
	}

	return samplesFromF32LE(stdout.Bytes()), nil
}

func samplesFromF32LE(data []byte) []float64 {
	count := len(data) / 4
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
