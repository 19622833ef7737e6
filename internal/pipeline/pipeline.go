// Package pipeline composes the per-phase services into the unit the
// scheduler drives: container inspection, tag reading, window probes, and
// tempo estimation in the technical phase; the Ollama client in the creative
// phase; the classifier with rescue and finalization in the instrumentation
// phase; and the sidecar, waveform, and library-store writes in the merge.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/config"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/ensemble"
	"rhythmdb/internal/instruments"
	"rhythmdb/internal/library"
	"rhythmdb/internal/logging"
	"rhythmdb/internal/media/ffprobe"
	"rhythmdb/internal/media/pcm"
	"rhythmdb/internal/media/tags"
	"rhythmdb/internal/probes"
	"rhythmdb/internal/scheduler"
	"rhythmdb/internal/services"
	"rhythmdb/internal/tempo"
	"rhythmdb/internal/trackkey"
)

// Pipeline implements the scheduler's per-phase contract over the configured
// external tools and the library store.
type Pipeline struct {
	cfg      *config.Config
	store    *library.Store
	logger   *slog.Logger
	base     *slog.Logger
	probes   *probes.Runner
	llm      *creative.Client
	ensemble *ensemble.Runner
	waveform *analysis.Waveform
}

var _ scheduler.Analyzer = (*Pipeline)(nil)

// New wires the phase services from the configuration. The store is shared
// with the caller so criteria rebuilds can run against the same instance.
func New(cfg *config.Config, store *library.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		base:   logger,
		probes: probes.NewRunner(
			cfg.PythonBinary(),
			cfg.Analysis.ProbeScript,
			cfg.Analysis.ProbeWindows,
			float64(cfg.Analysis.ProbeWindowSeconds),
			cfg.ProbeTimeout(),
			logger,
		),
		llm: creative.NewClient(creative.Config{
			BaseURL:        cfg.Ollama.BaseURL,
			Model:          cfg.Ollama.Model,
			TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
		}, logger),
		ensemble: ensemble.NewRunner(
			cfg.PythonBinary(),
			cfg.Ensemble.Script,
			cfg.EnsembleTimeout(),
			cfg.Ensemble.UseDemucs,
			logger,
		),
		waveform: analysis.NewWaveform(cfg.FFmpegBinary(), cfg.Paths.WaveformDir, logger),
	}
}

// Technical probes the container, reads tags, runs the window probes, and
// estimates tempo. A container probe failure is fatal for the track; every
// other input degrades to its empty value.
func (p *Pipeline) Technical(ctx context.Context, path string) (analysis.Record, error) {
	rec := analysis.NewRecord(path)

	container, err := ffprobe.Inspect(ctx, p.cfg.FFprobeBinary(), path)
	if err != nil {
		return analysis.Record{}, services.Wrap(services.ErrProbeFailed, "technical", "inspect container", trackkey.Base(path), err)
	}
	if container.AudioStreamCount() == 0 {
		return analysis.Record{}, services.Wrap(services.ErrProbeFailed, "technical", "inspect container", "no audio stream in "+trackkey.Base(path), nil)
	}
	rec.Technical.DurationSec = container.DurationSeconds()
	rec.Technical.SampleRateHz = container.SampleRateHz()
	rec.Technical.Channels = container.ChannelCount()
	rec.Technical.BitRate = container.BitRate()
	rec.Technical.Codec = container.Codec()
	rec.Technical.HasWAVVersion = analysis.HasWAVSibling(path)

	// Tag reading and window probes are independent; neither can fail the
	// track, so the group only coordinates completion.
	var (
		tagMap  tags.TagMap
		windows probes.Result
	)
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := tags.Read(path)
		if err != nil {
			logging.WithContext(groupCtx, p.logger).Debug("tag read failed", logging.Error(err))
			return nil
		}
		tagMap = m
		return nil
	})
	g.Go(func() error {
		windows = p.probes.Run(groupCtx, path, rec.Technical.DurationSec)
		return nil
	})
	if err := g.Wait(); err != nil {
		return analysis.Record{}, err
	}
	rec.Technical.Tags = tagMap
	rec.ProbeHints = windows.HintLabels()

	tbpm := tagMap.TBPM
	if tbpm == "" {
		if v, ok := container.TBPM(); ok {
			tbpm = v
		}
	}
	estimator := tempo.NewEstimator(p.decoderFor(path), p.base)
	rec.Technical.ApplyTempo(estimator.Estimate(ctx, rec.Technical.DurationSec, tbpm, windows))
	return rec, nil
}

// Creative classifies mood, genre, theme, and vocals through the local LLM.
// The client degrades failures to defaults plus a status string; a dead
// context is reported as an error instead so the record carries the
// interrupted status rather than a misleading offline one.
func (p *Pipeline) Creative(ctx context.Context, rec analysis.Record) (creative.Facts, string, error) {
	if err := ctx.Err(); err != nil {
		return creative.Facts{}, "", err
	}
	facts, status := p.llm.Analyze(ctx, creative.Request{
		Title: rec.Title(),
		BPM:   rec.BPM(),
		Hints: rec.ProbeHints,
	})
	if err := ctx.Err(); err != nil && status != creative.StatusOK {
		return creative.Facts{}, "", err
	}
	return facts, status, nil
}

// Instrumentation runs the classifier and finalizes its instrument list.
// With no classifier configured the phase yields an empty result; classifier
// failures surface as errors and the scheduler degrades them to defaults.
func (p *Pipeline) Instrumentation(ctx context.Context, rec analysis.Record, hints []string) (analysis.Instrumentation, error) {
	if !p.ensemble.Enabled() {
		logging.WithContext(ctx, p.logger).Debug("classifier not configured; skipping instrumentation")
		return analysis.Instrumentation{}, nil
	}
	if err := ctx.Err(); err != nil {
		return analysis.Instrumentation{}, err
	}

	res, err := p.ensemble.Classify(ctx, rec.Path, hints)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return analysis.Instrumentation{}, ctxErr
		}
		return analysis.Instrumentation{}, err
	}

	trace := res.Trace()
	var rescues []string
	if len(res.Instruments) == 0 && !res.UsedDemucs {
		if rescues = trace.MixOnlyRescue(); len(rescues) > 0 {
			logging.WithContext(ctx, p.logger).Info("mix-only rescue applied",
				logging.Int("instruments", len(rescues)))
		}
	}
	final := instruments.Finalize(res.Instruments, rescues, trace.BoosterAdditions())

	return analysis.Instrumentation{
		Instruments:      final,
		FinalInstruments: final,
		DecisionTrace:    res.DecisionTrace,
		UsedDemucs:       res.UsedDemucs,
		Mode:             res.Mode,
	}, nil
}

// Merge finishes a track: the electronic-elements assessment, the waveform
// image, the per-file sidecar, and the library-store upsert. It returns the
// merged store record as the final result.
func (p *Pipeline) Merge(ctx context.Context, rec analysis.Record) (analysis.Record, error) {
	logger := logging.WithContext(ctx, p.logger)

	// Mode is set whenever the classifier actually ran; without a run the
	// electronic field stays absent rather than reporting a false negative.
	if rec.Analysis.Mode != "" {
		rec.Analysis.ElectronicElements = analysis.DetectElectronicElements(
			rec.Analysis.FinalInstruments, rec.ProbeHints, rec.Creative.Genre)
	}

	if p.waveform.Enabled() {
		image, err := p.waveform.Generate(ctx, rec.Path)
		if err != nil {
			logger.Warn("waveform render failed", logging.Error(err))
		} else {
			rec.WaveformPNG = image
		}
	}

	if _, err := analysis.WriteSidecar(rec); err != nil {
		return analysis.Record{}, err
	}
	merged, err := p.store.Upsert(rec)
	if err != nil {
		return analysis.Record{}, err
	}
	return merged, nil
}

// decoderFor adapts the ffmpeg PCM decode to the tempo estimator's window
// interface for one audio file.
func (p *Pipeline) decoderFor(path string) tempo.Decoder {
	return func(ctx context.Context, startSec, durationSec float64, sampleRate int) ([]float64, error) {
		return pcm.Decode(ctx, p.cfg.FFmpegBinary(), path, pcm.Window{
			StartSec:    startSec,
			DurationSec: durationSec,
		}, sampleRate)
	}
}
