package pcm

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSamplesFromF32LE(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x3f, // 0.5
		0x00, 0x00, 0x00, 0xbf, // -0.5
		0x00, 0x00, 0x00, 0x00, // 0
		0xff, 0xff, // trailing partial sample ignored
	}
	samples := samplesFromF32LE(data)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if math.Abs(samples[0]-0.5) > 1e-9 {
		t.Errorf("samples[0] = %v", samples[0])
	}
	if math.Abs(samples[1]+0.5) > 1e-9 {
		t.Errorf("samples[1] = %v", samples[1])
	}
	if samples[2] != 0 {
		t.Errorf("samples[2] = %v", samples[2])
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(12.5); got != "12.500" {
		t.Errorf("formatSeconds(12.5) = %q", got)
	}
	if got := formatSeconds(0.125); got != "0.125" {
		t.Errorf("formatSeconds(0.125) = %q", got)
	}
}

func TestDecodeViaStubbedBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "window.bin")
	raw := []byte{0x00, 0x00, 0x00, 0x3f, 0x00, 0x00, 0x00, 0xbf}
	if err := os.WriteFile(dataPath, raw, 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nexec cat \"" + dataPath + "\"\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	samples, err := Decode(context.Background(), stub, "/tmp/fake.mp3", Window{StartSec: 30, DurationSec: 10}, 44100)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if math.Abs(samples[0]-0.5) > 1e-9 || math.Abs(samples[1]+0.5) > 1e-9 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestDecodeRejectsEmptyPath(t *testing.T) {
	if _, err := Decode(context.Background(), "ffmpeg", "", Window{}, 44100); err == nil {
		t.Fatal("expected error for empty path")
	}
}
