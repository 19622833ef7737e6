// Package tempo estimates track BPM from decoded audio. Two strategies run
// in order: a three-window onset autocorrelation ("thirds"), then a single
// centered-window autocorrelation fallback. An embedded TBPM tag overrides
// both when it parses to an integer in [1,399].
package tempo

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"rhythmdb/internal/logging"
)

// Sources identify which strategy produced the BPM.
const (
	SourceThirds = "thirds"
	SourceACF    = "acf"
	SourceID3    = "id3"
)

// Estimator band constants. Estimates are folded into the comfort band;
// alternate tempos are only emitted inside the hard range.
const (
	minBPM     = 50.0
	maxBPM     = 200.0
	foldLowBPM = 70.0
	foldHiBPM  = 180.0

	decodeRate = 44100
	frameSize  = 1024
	hopSize    = 256
)

// Decoder pulls a mono window of samples normalized to [-1, 1].
type Decoder func(ctx context.Context, startSec, durationSec float64, sampleRate int) ([]float64, error)

// Hints exposes boolean classifier hints. Satisfied by probes.Result.
type Hints interface {
	HasHint(fragment string) bool
}

// Estimate is the tempo result for one track. A zero BPM means unknown.
// Estimated keeps the strategy-chain value before any tag override so the
// record can report both.
type Estimate struct {
	BPM        int
	Estimated  int
	Source     string
	Confidence float64
	AltHalf    int
	AltDouble  int
}

// Valid reports whether an estimate was produced.
func (e Estimate) Valid() bool { return e.BPM > 0 }

// Estimator runs the strategy chain over a decode function.
type Estimator struct {
	decode Decoder
	logger *slog.Logger
}

// NewEstimator builds an estimator over the given decoder.
func NewEstimator(decode Decoder, logger *slog.Logger) *Estimator {
	return &Estimator{
		decode: decode,
		logger: logging.NewComponentLogger(logger, "tempo"),
	}
}

// Estimate derives the BPM for a track of the given duration. tbpm is the
// raw embedded tag value, empty when absent. hints may be nil. A failed
// estimation is not an error; the caller records a null tempo.
func (e *Estimator) Estimate(ctx context.Context, durationSec float64, tbpm string, hints Hints) Estimate {
	var est Estimate

	if bpm, ok := e.thirds(ctx, durationSec, hints); ok {
		est = Estimate{BPM: bpm, Source: SourceThirds}
	} else if bpm, confidence, ok := e.acfFallback(ctx, durationSec, hints); ok {
		est = Estimate{BPM: bpm, Source: SourceACF, Confidence: confidence}
	}
	est.Estimated = est.BPM

	if tagged, ok := ParseTBPM(tbpm); ok {
		est.BPM = tagged
		est.Source = SourceID3
		est.Confidence = 0
	}

	if est.BPM > 0 {
		est.AltHalf, est.AltDouble = altTempos(est.BPM)
	}
	return est
}

// ParseTBPM leniently parses an embedded BPM tag. The tag frequently carries
// trailing text ("148 bpm"); the leading numeric run is taken and rounded.
// Values outside [1, 399] are rejected.
func ParseTBPM(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}

	end := 0
	seenDot := false
	for end < len(trimmed) {
		c := trimmed[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(trimmed[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	bpm := int(math.Round(value))
	if bpm < 1 || bpm > 399 {
		return 0, false
	}
	return bpm, true
}

// altTempos returns the half and double tempo when they land inside the
// hard range; zero marks an absent alternate.
func altTempos(bpm int) (half, double int) {
	if h := int(math.Round(float64(bpm) / 2)); float64(h) >= minBPM && float64(h) <= maxBPM {
		half = h
	}
	if d := bpm * 2; float64(d) >= minBPM && float64(d) <= maxBPM {
		double = d
	}
	return half, double
}

// foldBPM halves or doubles until the value lands inside [lo, hi].
func foldBPM(bpm, lo, hi float64) float64 {
	if bpm <= 0 {
		return bpm
	}
	for bpm < lo {
		bpm *= 2
	}
	for bpm > hi {
		bpm /= 2
	}
	return bpm
}

// normalizePercussion nudges a folded window estimate by one octave based on
// whether percussion was heard. Drum-driven tracks in the low band usually
// read at half time; drum-less tracks in the high band at double time.
func normalizePercussion(bpm float64, drums bool) float64 {
	if drums && bpm >= 70 && bpm <= 95 {
		if doubled := bpm * 2; doubled >= 100 && doubled <= 190 {
			return doubled
		}
	}
	if !drums && bpm >= 135 && bpm <= 170 {
		if halved := bpm / 2; halved >= 68 && halved <= 100 {
			return halved
		}
	}
	return bpm
}

func hasDrumHint(hints Hints) bool {
	return hints != nil && hints.HasHint("drum")
}

func hasRockHint(hints Hints) bool {
	if hints == nil {
		return false
	}
	return hints.HasHint("guitar") || hints.HasHint("brass")
}
