package tempo

import (
	"context"
	"math"

	"rhythmdb/internal/logging"
)

const acfDownsample = 2

// acfFallback estimates BPM from one centered window when the thirds
// strategy produced nothing.
func (e *Estimator) acfFallback(ctx context.Context, durationSec float64, hints Hints) (int, float64, bool) {
	if durationSec <= 0 {
		return 0, 0, false
	}

	windowLen := math.Min(60, math.Max(20, math.Floor(0.4*durationSec)))
	if windowLen > durationSec {
		windowLen = durationSec
	}
	start := (durationSec - windowLen) / 2

	samples, err := e.decode(ctx, start, windowLen, decodeRate)
	if err != nil {
		logging.WarnWithContext(ctx, e.logger, "acf window decode failed", logging.Error(err))
		return 0, 0, false
	}

	rate := decodeRate / acfDownsample
	raw, best, second, ok := rawBPMFromSamples(decimate(samples, acfDownsample), rate)
	if !ok {
		return 0, 0, false
	}

	confidence := 1.0
	if best+second > 0 {
		confidence = best / (best + second)
	}

	chosen := chooseCandidate(raw)
	if hasRockHint(hints) && chosen < 110 && raw >= 120 {
		chosen = math.Round(raw)
	}
	return int(math.Round(chosen)), confidence, true
}

// chooseCandidate resolves the octave ambiguity of a raw autocorrelation
// estimate. Among {raw, raw/2, raw·2} constrained to the hard range, prefer
// whichever lands in the comfort band, closest to raw; otherwise the closest
// in-range candidate.
func chooseCandidate(raw float64) float64 {
	candidates := []float64{raw, raw / 2, raw * 2}

	pick := func(lo, hi float64) (float64, bool) {
		best := math.NaN()
		for _, candidate := range candidates {
			if candidate < lo || candidate > hi {
				continue
			}
			if math.IsNaN(best) || math.Abs(candidate-raw) < math.Abs(best-raw) {
				best = candidate
			}
		}
		return best, !math.IsNaN(best)
	}

	if chosen, ok := pick(foldLowBPM, foldHiBPM); ok {
		return chosen
	}
	if chosen, ok := pick(minBPM, maxBPM); ok {
		return chosen
	}
	return raw
}
