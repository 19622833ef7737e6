// Package analysis assembles the per-track record from the three phase
// outputs and owns its projections: the per-file JSON written beside the
// audio file, the waveform image cache, and the electronic-elements
// assessment.
package analysis
