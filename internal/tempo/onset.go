package tempo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// onsetEnvelope computes rectified per-frame energy differences, peak
// normalized. Returns nil when the input is too short or silent.
func onsetEnvelope(samples []float64, frame, hop int) []float64 {
	if len(samples) < frame+hop {
		return nil
	}
	count := (len(samples)-frame)/hop + 1
	energies := make([]float64, count)
	for i := 0; i < count; i++ {
		segment := samples[i*hop : i*hop+frame]
		energies[i] = floats.Dot(segment, segment)
	}

	if len(energies) < 2 {
		return nil
	}
	envelope := make([]float64, len(energies)-1)
	for i := 1; i < len(energies); i++ {
		if diff := energies[i] - energies[i-1]; diff > 0 {
			envelope[i-1] = diff
		}
	}

	peak := floats.Max(envelope)
	if peak <= 0 {
		return nil
	}
	floats.Scale(1/peak, envelope)
	return envelope
}

// lagBounds converts the BPM search range into envelope lag indices for the
// given sample rate and hop.
func lagBounds(sampleRate, hop int) (minLag, maxLag int) {
	factor := 60 * float64(sampleRate) / float64(hop)
	minLag = int(math.Ceil(factor / maxBPM))
	maxLag = int(math.Floor(factor / minBPM))
	return minLag, maxLag
}

// bpmFromLag converts an envelope lag back to BPM.
func bpmFromLag(lag, sampleRate, hop int) float64 {
	if lag <= 0 {
		return 0
	}
	return 60 * float64(sampleRate) / (float64(hop) * float64(lag))
}

// autocorrelate computes the raw autocorrelation for each lag in
// [minLag, maxLag]. Indices below minLag are left zero.
func autocorrelate(envelope []float64, minLag, maxLag int) []float64 {
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if maxLag < minLag || minLag <= 0 {
		return nil
	}
	ac := make([]float64, maxLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		ac[lag] = floats.Dot(envelope[:len(envelope)-lag], envelope[lag:])
	}
	return ac
}

// strongestPeaks returns the best lag plus the top two peak values. The
// second peak excludes the immediate neighborhood of the best lag so the
// confidence ratio compares genuinely distinct periodicities.
func strongestPeaks(ac []float64, minLag int) (bestLag int, best, second float64) {
	maxLag := len(ac) - 1
	for lag := minLag; lag <= maxLag; lag++ {
		if ac[lag] > best {
			best = ac[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, 0, 0
	}
	for lag := minLag; lag <= maxLag; lag++ {
		if lag >= bestLag-2 && lag <= bestLag+2 {
			continue
		}
		if !isLocalMax(ac, lag, minLag, maxLag) {
			continue
		}
		if ac[lag] > second {
			second = ac[lag]
		}
	}
	return bestLag, best, second
}

func isLocalMax(ac []float64, lag, minLag, maxLag int) bool {
	if lag > minLag && ac[lag] < ac[lag-1] {
		return false
	}
	if lag < maxLag && ac[lag] < ac[lag+1] {
		return false
	}
	return true
}

// decimate keeps every factor-th sample.
func decimate(samples []float64, factor int) []float64 {
	if factor <= 1 {
		return samples
	}
	out := make([]float64, 0, len(samples)/factor+1)
	for i := 0; i < len(samples); i += factor {
		out = append(out, samples[i])
	}
	return out
}

// rawBPMFromSamples runs the shared envelope and autocorrelation chain and
// returns the strongest raw BPM with its peak values.
func rawBPMFromSamples(samples []float64, sampleRate int) (raw float64, best, second float64, ok bool) {
	envelope := onsetEnvelope(samples, frameSize, hopSize)
	if envelope == nil {
		return 0, 0, 0, false
	}
	minLag, maxLag := lagBounds(sampleRate, hopSize)
	ac := autocorrelate(envelope, minLag, maxLag)
	if ac == nil {
		return 0, 0, 0, false
	}
	bestLag, best, second := strongestPeaks(ac, minLag)
	if bestLag == 0 || best <= 0 {
		return 0, 0, 0, false
	}
	return bpmFromLag(bestLag, sampleRate, hopSize), best, second, true
}
