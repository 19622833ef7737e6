package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"rhythmdb/internal/analysis"
)

// Phase names used in status events and log fields.
const (
	PhaseTechnical       = "technical"
	PhaseCreative        = "creative"
	PhaseInstrumentation = "instrumentation"
	PhaseMerge           = "merge"
)

// EventStatus is the lifecycle state a phase reports for a track.
type EventStatus string

const (
	StatusProcessing EventStatus = "PROCESSING"
	StatusComplete   EventStatus = "COMPLETE"
	StatusError      EventStatus = "ERROR"
)

// Event is a per-track phase transition. Note carries the error or status
// detail when the phase degraded.
type Event struct {
	Key    string
	File   string
	Stage  string
	Status EventStatus
	Note   string
}

// Progress is a coarse per-file progress tick for UI display.
type Progress struct {
	File  string
	Pct   int
	Label string
}

// Result is the terminal outcome of a submission. Err is set when the track
// failed fatally or was cancelled; Record still carries whatever was
// assembled.
type Result struct {
	Record analysis.Record
	Err    error
}

// Handle follows one submitted file through the pipeline. Partial delivers
// the technical-only record exactly once; Done delivers the final result
// exactly once. Both channels are buffered so a slow consumer never stalls
// the scheduler.
type Handle struct {
	key  string
	file string
	path string

	partial     chan analysis.Record
	partialOnce sync.Once
	final       chan Result
	finalOnce   sync.Once

	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func newHandle(path, key, file string, cancel context.CancelFunc) *Handle {
	return &Handle{
		key:     key,
		file:    file,
		path:    path,
		partial: make(chan analysis.Record, 1),
		final:   make(chan Result, 1),
		cancel:  cancel,
	}
}

// Key returns the normalized track key of the submission.
func (h *Handle) Key() string { return h.key }

// File returns the display file name of the submission.
func (h *Handle) File() string { return h.file }

// Path returns the submitted path.
func (h *Handle) Path() string { return h.path }

// Partial yields the technical-only record once the technical phase
// completes.
func (h *Handle) Partial() <-chan analysis.Record { return h.partial }

// Done yields the final merged result.
func (h *Handle) Done() <-chan Result { return h.final }

// Cancel aborts queued and in-flight work for the track. A cancelled track
// is never persisted.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

func (h *Handle) resolvePartial(rec analysis.Record) {
	h.partialOnce.Do(func() {
		h.partial <- rec
		close(h.partial)
	})
}

func (h *Handle) resolveFinal(res Result) {
	h.finalOnce.Do(func() {
		h.final <- res
		close(h.final)
	})
}
