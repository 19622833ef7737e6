package scheduler

import (
	"context"
	"strings"
	"time"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/logging"
)

type creativeOutcome struct {
	facts  creative.Facts
	status string
	err    error
}

type instrumentationOutcome struct {
	instr analysis.Instrumentation
	err   error
}

// runTrack owns one submission end to end: technical on the TECH pool,
// then the background phases, then the merge. Phase results are written by
// pool workers and read here only after the completion channel closes.
func (s *Scheduler) runTrack(ctx context.Context, h *Handle) {
	defer s.trackWG.Done()
	logger := logging.WithContext(ctx, s.logger)

	var (
		rec     analysis.Record
		techErr error
		techRan bool
	)
	techDone := s.dispatch(s.techQueue, logging.WithPhase(ctx, PhaseTechnical), func(ctx context.Context) {
		techRan = true
		if err := ctx.Err(); err != nil {
			techErr = err
			return
		}
		s.emit(Event{Key: h.key, File: h.file, Stage: PhaseTechnical, Status: StatusProcessing})
		s.emitProgress(h.file, 0, "Analyzing file")
		started := time.Now()
		rec, techErr = s.analyzer.Technical(ctx, h.path)
		if techErr == nil {
			logger.Debug("technical phase complete",
				logging.Duration(logging.FieldDuration, time.Since(started)))
		}
	})
	<-techDone
	if !techRan && techErr == nil {
		techErr = ctx.Err()
	}
	s.techWG.Done()

	if techErr != nil {
		s.emit(Event{Key: h.key, File: h.file, Stage: PhaseTechnical, Status: StatusError, Note: techErr.Error()})
		logger.Error("technical phase failed", logging.Error(techErr))
		h.resolveFinal(Result{Err: techErr})
		return
	}
	s.emit(Event{Key: h.key, File: h.file, Stage: PhaseTechnical, Status: StatusComplete})
	s.emitProgress(h.file, 25, "Technical analysis complete")
	h.resolvePartial(rec)

	var (
		co          creativeOutcome
		creativeRan bool
	)
	runCreative := func(ctx context.Context) {
		creativeRan = true
		if err := ctx.Err(); err != nil {
			co.err = err
			return
		}
		s.emit(Event{Key: h.key, File: h.file, Stage: PhaseCreative, Status: StatusProcessing})
		co.facts, co.status, co.err = s.analyzer.Creative(ctx, rec)
		if co.err != nil {
			s.emit(Event{Key: h.key, File: h.file, Stage: PhaseCreative, Status: StatusError, Note: eventNote(co.status, co.err)})
		} else {
			s.emit(Event{Key: h.key, File: h.file, Stage: PhaseCreative, Status: StatusComplete, Note: co.status})
		}
	}

	var (
		io       instrumentationOutcome
		instrRan bool
	)
	runInstrumentation := func(hints []string) func(context.Context) {
		return func(ctx context.Context) {
			instrRan = true
			if err := ctx.Err(); err != nil {
				io.err = err
				return
			}
			s.emit(Event{Key: h.key, File: h.file, Stage: PhaseInstrumentation, Status: StatusProcessing})
			io.instr, io.err = s.analyzer.Instrumentation(ctx, rec, hints)
			if io.err != nil {
				s.emit(Event{Key: h.key, File: h.file, Stage: PhaseInstrumentation, Status: StatusError, Note: io.err.Error()})
			} else {
				s.emit(Event{Key: h.key, File: h.file, Stage: PhaseInstrumentation, Status: StatusComplete})
			}
		}
	}

	// Progress for the background phases is emitted here rather than by the
	// workers so the per-file stream stays ordered: the first phase to finish
	// reports 50, the second 75.
	creativeCtx := logging.WithPhase(ctx, PhaseCreative)
	instrCtx := logging.WithPhase(ctx, PhaseInstrumentation)
	if s.cfg.Mode == ModeSequential {
		<-s.dispatch(s.creativeQueue, creativeCtx, runCreative)
		s.emitProgress(h.file, 50, "Creative analysis complete")
		<-s.dispatch(s.instrQueue, instrCtx, runInstrumentation(co.facts.SuggestedInstruments))
		s.emitProgress(h.file, 75, "Instrument analysis complete")
	} else {
		creativeDone := s.dispatch(s.creativeQueue, creativeCtx, runCreative)
		instrDone := s.dispatch(s.instrQueue, instrCtx, runInstrumentation(nil))
		pct := 50
		for creativeDone != nil || instrDone != nil {
			select {
			case <-creativeDone:
				s.emitProgress(h.file, pct, "Creative analysis complete")
				creativeDone = nil
			case <-instrDone:
				s.emitProgress(h.file, pct, "Instrument analysis complete")
				instrDone = nil
			}
			pct = 75
		}
	}
	if !creativeRan && co.err == nil {
		co.err = ctx.Err()
	}
	if !instrRan && io.err == nil {
		io.err = ctx.Err()
	}

	if co.err != nil && strings.TrimSpace(co.status) == "" {
		co.status = creative.StatusInterrupted
	}
	if len(co.facts.Vocals) == 0 {
		co.facts = creative.Defaults()
	}
	rec.Creative = co.facts
	rec.CreativeStatus = co.status
	if co.err == nil && strings.TrimSpace(rec.CreativeStatus) == "" {
		rec.CreativeStatus = creative.StatusOK
	}
	rec.Analysis = io.instr

	if h.cancelled.Load() {
		logger.Debug("track cancelled; skipping persistence")
		h.resolveFinal(Result{Err: context.Canceled})
		return
	}

	s.emit(Event{Key: h.key, File: h.file, Stage: PhaseMerge, Status: StatusProcessing})
	final, err := s.analyzer.Merge(logging.WithPhase(context.WithoutCancel(ctx), PhaseMerge), rec)
	if err != nil {
		s.emit(Event{Key: h.key, File: h.file, Stage: PhaseMerge, Status: StatusError, Note: err.Error()})
		logger.Error("merge failed", logging.Error(err))
		h.resolveFinal(Result{Record: rec, Err: err})
		return
	}
	s.emit(Event{Key: h.key, File: h.file, Stage: PhaseMerge, Status: StatusComplete})
	s.emitProgress(h.file, 100, "Analysis complete")
	h.resolveFinal(Result{Record: final})
}

func eventNote(status string, err error) string {
	if strings.TrimSpace(status) != "" {
		return status
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
