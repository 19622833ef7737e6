package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/library"
	"rhythmdb/internal/pipeline"
	"rhythmdb/internal/preflight"
	"rhythmdb/internal/scan"
	"rhythmdb/internal/scheduler"
)

type analyzeOptions struct {
	mode    string
	workers int
	jsonOut bool
	verbose bool
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [files or directories...]",
		Short: "Analyze audio files into the library store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, ctx, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "Background phase ordering: concurrent or sequential (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker count for every phase pool (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit final records as JSON instead of progress and tables")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print per-phase status transitions")
	return cmd
}

func runAnalyze(cmd *cobra.Command, ctx *commandContext, args []string, opts analyzeOptions) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	for _, status := range preflight.CheckSystemDeps(signalCtx, cfg) {
		if !status.Available && !status.Optional {
			return fmt.Errorf("%s unavailable: %s (run `rhythmdb doctor`)", status.Name, status.Detail)
		}
	}

	files, err := scan.Collect(args...)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No audio files found")
		return nil
	}

	logger, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	store := library.NewStore(cfg.Paths.DBFolder, logger)
	analyzer := pipeline.New(cfg, store, logger)

	schedCfg := scheduler.Config{
		TechWorkers:            cfg.Analysis.TechnicalWorkers,
		CreativeWorkers:        cfg.Analysis.CreativeWorkers,
		InstrumentationWorkers: cfg.Analysis.InstrumentationWorkers,
		Mode:                   cfg.Analysis.Mode,
		ShutdownGrace:          cfg.ShutdownGrace(),
	}
	if opts.mode != "" {
		schedCfg.Mode = opts.mode
	}
	if opts.workers > 0 {
		schedCfg.TechWorkers = opts.workers
		schedCfg.CreativeWorkers = opts.workers
		schedCfg.InstrumentationWorkers = opts.workers
	}

	sched, err := scheduler.New(analyzer, schedCfg, logger)
	if err != nil {
		return err
	}
	if err := sched.Start(signalCtx); err != nil {
		return err
	}
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(sched.Stop) }
	defer stop()

	colorize := shouldColorize(out)
	if !opts.jsonOut {
		fmt.Fprintf(out, "Analyzing %d file(s) in %s mode\n", len(files), schedCfg.Mode)
	}

	// A single goroutine drains both feeds so progress lines and verbose
	// events never interleave mid-write.
	var renderWG sync.WaitGroup
	renderWG.Add(1)
	go func() {
		defer renderWG.Done()
		progressCh := sched.ProgressUpdates()
		eventsCh := sched.Events()
		for progressCh != nil || eventsCh != nil {
			select {
			case p, ok := <-progressCh:
				if !ok {
					progressCh = nil
					continue
				}
				if opts.jsonOut {
					continue
				}
				fmt.Fprintln(out, renderProgressLine(p, colorize))
			case evt, ok := <-eventsCh:
				if !ok {
					eventsCh = nil
					continue
				}
				if opts.jsonOut || !opts.verbose {
					continue
				}
				note := ""
				if evt.Note != "" {
					note = " (" + evt.Note + ")"
				}
				fmt.Fprintf(out, "%s%-16s %-10s %s%s\n", statusIndent, evt.Stage, evt.Status, evt.File, note)
			}
		}
	}()

	handles := make([]*scheduler.Handle, 0, len(files))
	for _, file := range files {
		h, err := sched.Submit(file)
		if err != nil {
			stop()
			renderWG.Wait()
			return err
		}
		handles = append(handles, h)
	}
	sched.SignalReady()

	results := make([]scheduler.Result, len(handles))
	for i, h := range handles {
		results[i] = <-h.Done()
	}
	stop()
	renderWG.Wait()

	return summarizeAnalysis(cmd, out, store, handles, results, opts)
}

func summarizeAnalysis(cmd *cobra.Command, out io.Writer, store *library.Store, handles []*scheduler.Handle, results []scheduler.Result, opts analyzeOptions) error {
	var analyzed, interrupted, cancelled, failed int
	rows := make([][]string, 0, len(results))
	records := make([]analysis.Record, 0, len(results))

	for i, res := range results {
		switch {
		case errors.Is(res.Err, context.Canceled):
			cancelled++
			rows = append(rows, []string{handles[i].File(), "-", "cancelled", "", ""})
			continue
		case res.Err != nil:
			failed++
			rows = append(rows, []string{handles[i].File(), "-", "failed", "", ""})
			continue
		}

		rec := res.Record
		records = append(records, rec)
		state := "ok"
		if rec.CreativeStatus == creative.StatusInterrupted {
			interrupted++
			state = "interrupted"
		} else {
			analyzed++
		}
		bpm := "-"
		if rec.BPM() > 0 {
			bpm = strconv.Itoa(rec.BPM())
		}
		rows = append(rows, []string{
			rec.File,
			bpm,
			state,
			strings.Join(rec.Creative.Genre, ", "),
			strings.Join(library.EffectiveInstruments(rec), ", "),
		})
	}

	if opts.jsonOut {
		if err := writeJSON(cmd, records); err != nil {
			return err
		}
	} else {
		renderTable(out, []string{"File", "BPM", "Status", "Genre", "Instruments"}, rows, 1)
		fmt.Fprintf(out, "Analyzed %d, interrupted %d, cancelled %d, failed %d\n",
			analyzed, interrupted, cancelled, failed)
	}

	if analyzed+interrupted > 0 {
		criteria, err := store.RebuildCriteria()
		if err != nil {
			return fmt.Errorf("rebuild criteria: %w", err)
		}
		if !opts.jsonOut {
			fmt.Fprintf(out, "Criteria rebuilt: %d facet values\n", criteria.ValueCount())
		}
	}

	switch {
	case cancelled > 0:
		return context.Canceled
	case failed > 0:
		return fmt.Errorf("%d of %d files failed; see the log for details", failed, len(results))
	}
	return nil
}

func renderProgressLine(p scheduler.Progress, colorize bool) string {
	line := fmt.Sprintf("[%3d%%] %-30s %s", p.Pct, p.File, p.Label)
	if colorize && p.Pct == 100 {
		return ansiGreen + line + ansiReset
	}
	return line
}
