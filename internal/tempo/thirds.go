package tempo

import (
	"context"
	"math"

	"rhythmdb/internal/logging"
)

const (
	// thirdsMinAudioSec triggers the one-time window widen when the first
	// pull yields less audio than this.
	thirdsMinAudioSec = 6.0
	thirdsWidenFactor = 1.5
	thirdsMaxWindow   = 60.0
)

// thirds samples three windows (start, middle, end), estimates a raw BPM per
// window, folds each into the comfort band, applies percussion-aware
// normalization, and averages.
func (e *Estimator) thirds(ctx context.Context, durationSec float64, hints Hints) (int, bool) {
	if durationSec <= 0 {
		return 0, false
	}

	third := durationSec / 3
	windowLen := math.Min(third/4, thirdsMaxWindow)
	if windowLen <= 0 {
		return 0, false
	}

	starts := []float64{0, third, 2 * third}
	drums := hasDrumHint(hints)

	var sum float64
	var windows int
	widened := false

	for i, start := range starts {
		if ctx.Err() != nil {
			return 0, false
		}
		samples, err := e.decode(ctx, start, windowLen, decodeRate)
		if err != nil {
			logging.WarnWithContext(ctx, e.logger, "thirds window decode failed",
				logging.Int("window", i),
				logging.Error(err))
			continue
		}

		if i == 0 && !widened && float64(len(samples)) < thirdsMinAudioSec*decodeRate {
			widened = true
			windowLen = math.Min(windowLen*thirdsWidenFactor, thirdsMaxWindow)
			wider, err := e.decode(ctx, start, windowLen, decodeRate)
			if err == nil {
				samples = wider
			}
		}

		raw, _, _, ok := rawBPMFromSamples(samples, decodeRate)
		if !ok {
			continue
		}
		folded := foldBPM(raw, foldLowBPM, foldHiBPM)
		sum += normalizePercussion(folded, drums)
		windows++
	}

	if windows == 0 {
		return 0, false
	}
	return int(math.Round(sum / float64(windows))), true
}
