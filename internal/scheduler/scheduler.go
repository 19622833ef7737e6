package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
	"rhythmdb/internal/trackkey"
)

// Background phase scheduling modes.
const (
	ModeConcurrent = "concurrent"
	ModeSequential = "sequential"
)

const (
	minWorkers     = 1
	maxWorkers     = 8
	defaultWorkers = 4

	defaultQueueDepth       = 1024
	defaultReadinessTimeout = 5 * time.Second
	defaultShutdownGrace    = 30 * time.Second
	eventBuffer             = 256
)

// Analyzer supplies the phase implementations the scheduler drives. The
// creative and instrumentation phases must degrade rather than abort: on
// error they return defaults plus a status, and the track still merges.
type Analyzer interface {
	// Technical probes the file and assembles the partial record. An error
	// is fatal for the track; nothing is persisted.
	Technical(ctx context.Context, path string) (analysis.Record, error)

	// Creative classifies the track, returning the facts and the status
	// string recorded on the track.
	Creative(ctx context.Context, rec analysis.Record) (creative.Facts, string, error)

	// Instrumentation runs the classifier ensemble. Hints carry the creative
	// instrument suggestions when the mode sequences creative first.
	Instrumentation(ctx context.Context, rec analysis.Record, hints []string) (analysis.Instrumentation, error)

	// Merge persists the assembled record (per-file projection, waveform,
	// library upsert) and returns the stored copy.
	Merge(ctx context.Context, rec analysis.Record) (analysis.Record, error)
}

// Config sizes the pools and fixes the scheduling mode. Zero values select
// the defaults; worker counts are clamped to the supported range.
type Config struct {
	TechWorkers            int
	CreativeWorkers        int
	InstrumentationWorkers int

	// Mode is ModeConcurrent (default) or ModeSequential.
	Mode string

	// QueueDepth bounds each phase queue; Submit blocks when the technical
	// queue is full.
	QueueDepth int

	// ReadinessTimeout is how long the scheduler waits for SignalReady
	// before assuming the consumer is ready.
	ReadinessTimeout time.Duration

	// ShutdownGrace bounds how long Stop waits for in-flight background
	// phases after the technical queue has drained.
	ShutdownGrace time.Duration
}

func (c Config) normalized() Config {
	c.TechWorkers = clampWorkers(c.TechWorkers)
	c.CreativeWorkers = clampWorkers(c.CreativeWorkers)
	c.InstrumentationWorkers = clampWorkers(c.InstrumentationWorkers)
	if c.Mode == "" {
		c.Mode = ModeConcurrent
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.ReadinessTimeout <= 0 {
		c.ReadinessTimeout = defaultReadinessTimeout
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	return c
}

func clampWorkers(n int) int {
	switch {
	case n < minWorkers:
		return defaultWorkers
	case n > maxWorkers:
		return maxWorkers
	default:
		return n
	}
}

// phaseRequest is one unit of pool work. The worker runs it and closes done;
// the track goroutine waits on done.
type phaseRequest struct {
	ctx  context.Context
	run  func(context.Context)
	done chan struct{}
}

// Scheduler owns the three phase pools and every in-flight track.
type Scheduler struct {
	cfg      Config
	analyzer Analyzer
	logger   *slog.Logger

	techQueue     chan phaseRequest
	creativeQueue chan phaseRequest
	instrQueue    chan phaseRequest

	events   chan Event
	progress chan Progress

	ready     chan struct{}
	readyOnce sync.Once

	mu        sync.Mutex
	running   bool
	stopped   bool
	trackBase context.Context
	trackStop context.CancelFunc

	workerWG sync.WaitGroup
	trackWG  sync.WaitGroup
	techWG   sync.WaitGroup
}

// New builds a scheduler around the given analyzer.
func New(analyzer Analyzer, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if analyzer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "new", "analyzer must not be nil", nil)
	}
	cfg = cfg.normalized()
	if cfg.Mode != ModeConcurrent && cfg.Mode != ModeSequential {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "new", "unknown mode "+cfg.Mode, nil)
	}
	return &Scheduler{
		cfg:           cfg,
		analyzer:      analyzer,
		logger:        logging.NewComponentLogger(logger, "scheduler"),
		techQueue:     make(chan phaseRequest, cfg.QueueDepth),
		creativeQueue: make(chan phaseRequest, cfg.QueueDepth),
		instrQueue:    make(chan phaseRequest, cfg.QueueDepth),
		events:        make(chan Event, eventBuffer),
		progress:      make(chan Progress, eventBuffer),
		ready:         make(chan struct{}),
	}, nil
}

// Events returns the shared per-track status stream. The channel closes when
// Stop completes.
func (s *Scheduler) Events() <-chan Event { return s.events }

// ProgressUpdates returns the shared progress stream. The channel closes
// when Stop completes.
func (s *Scheduler) ProgressUpdates() <-chan Progress { return s.progress }

// Start launches the pools and the readiness watchdog. Tracks derive their
// lifetime from ctx; the pools themselves run until Stop so queued work can
// always drain.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	if s.stopped {
		return errors.New("scheduler already stopped")
	}
	s.running = true
	s.trackBase, s.trackStop = context.WithCancel(ctx)

	for i := 0; i < s.cfg.TechWorkers; i++ {
		s.workerWG.Add(1)
		go s.runWorker(s.techQueue, true)
	}
	for i := 0; i < s.cfg.CreativeWorkers; i++ {
		s.workerWG.Add(1)
		go s.runWorker(s.creativeQueue, false)
	}
	for i := 0; i < s.cfg.InstrumentationWorkers; i++ {
		s.workerWG.Add(1)
		go s.runWorker(s.instrQueue, false)
	}

	s.workerWG.Add(1)
	go s.readinessWatchdog()

	s.logger.Info("scheduler started",
		logging.Int("tech_workers", s.cfg.TechWorkers),
		logging.Int("creative_workers", s.cfg.CreativeWorkers),
		logging.Int("instrumentation_workers", s.cfg.InstrumentationWorkers),
		logging.String("mode", s.cfg.Mode))
	return nil
}

// Submit queues path for analysis. The returned handle delivers the partial
// record after the technical phase and the final result after the merge.
func (s *Scheduler) Submit(path string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, errors.New("scheduler not running")
	}

	trackCtx, trackCancel := context.WithCancel(s.trackBase)
	trackCtx = logging.WithTrackKey(trackCtx, trackkey.Key(path))
	trackCtx = logging.WithCorrelationID(trackCtx, uuid.NewString())

	handle := newHandle(path, trackkey.Key(path), trackkey.Base(path), trackCancel)
	s.techWG.Add(1)
	s.trackWG.Add(1)
	go s.runTrack(trackCtx, handle)
	return handle, nil
}

// SignalReady releases queued technical work to the pool. Without a call the
// readiness watchdog releases it after the configured timeout.
func (s *Scheduler) SignalReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Stop finishes outstanding work and shuts the pools down. Queued technical
// work drains fully; background phases get the configured grace interval and
// are then cancelled, after which their tracks still merge with explicit
// status strings. Stop closes the event channels before returning.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	trackStop := s.trackStop
	s.mu.Unlock()

	// Queued submissions must not wait for a UI that will never come.
	s.SignalReady()

	s.techWG.Wait()

	drained := make(chan struct{})
	go func() {
		s.trackWG.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.cfg.ShutdownGrace):
		s.logger.Warn("shutdown grace expired; cancelling background phases",
			logging.Duration("grace", s.cfg.ShutdownGrace))
		trackStop()
		<-drained
	}
	trackStop()

	close(s.techQueue)
	close(s.creativeQueue)
	close(s.instrQueue)
	s.workerWG.Wait()

	close(s.events)
	close(s.progress)
	s.logger.Info("scheduler stopped")
}

// runWorker consumes one phase queue until it closes. Technical workers hold
// off until readiness so buffered submissions keep their order.
func (s *Scheduler) runWorker(queue chan phaseRequest, waitReady bool) {
	defer s.workerWG.Done()
	if waitReady {
		<-s.ready
	}
	for req := range queue {
		req.run(req.ctx)
		close(req.done)
	}
}

func (s *Scheduler) readinessWatchdog() {
	defer s.workerWG.Done()
	select {
	case <-s.ready:
	case <-time.After(s.cfg.ReadinessTimeout):
		s.logger.Debug("assuming consumer readiness after timeout",
			logging.Duration("timeout", s.cfg.ReadinessTimeout))
		s.SignalReady()
	}
}

// dispatch hands work to a pool and returns the completion channel. When the
// track is already cancelled the work is skipped and the channel is closed
// immediately.
func (s *Scheduler) dispatch(queue chan<- phaseRequest, ctx context.Context, run func(context.Context)) <-chan struct{} {
	req := phaseRequest{ctx: ctx, run: run, done: make(chan struct{})}
	select {
	case queue <- req:
	case <-ctx.Done():
		close(req.done)
	}
	return req.done
}

func (s *Scheduler) emit(evt Event) {
	select {
	case s.events <- evt:
	default:
		s.logger.Debug("dropping status event",
			logging.String(logging.FieldTrackKey, evt.Key),
			logging.String(logging.FieldPhase, evt.Stage))
	}
}

func (s *Scheduler) emitProgress(file string, pct int, label string) {
	select {
	case s.progress <- Progress{File: file, Pct: pct, Label: label}:
	default:
	}
}
