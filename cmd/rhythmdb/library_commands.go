package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rhythmdb/internal/library"
	"rhythmdb/internal/logging"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect and maintain the library stores",
	}

	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryRebuildCommand(ctx))

	return libraryCmd
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the analyzed tracks in the main store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(logging.NewNop())
			if err != nil {
				return err
			}
			main, err := store.Load()
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, main)
			}

			out := cmd.OutOrStdout()
			if len(main.Tracks) == 0 {
				fmt.Fprintf(out, "No tracks in %s\n", store.MainPath())
				return nil
			}

			keys := make([]string, 0, len(main.Tracks))
			for key := range main.Tracks {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				rec := main.Tracks[key]
				bpm := "-"
				tempo := "-"
				if rec.BPM() > 0 {
					bpm = strconv.Itoa(rec.BPM())
					tempo = library.TempoBand(rec.BPM())
				}
				rows = append(rows, []string{
					rec.File,
					bpm,
					tempo,
					strings.Join(rec.Creative.Genre, ", "),
					strings.Join(library.EffectiveInstruments(rec), ", "),
					rec.UpdatedAt,
				})
			}

			renderTable(out, []string{"File", "BPM", "Tempo", "Genre", "Instruments", "Updated"}, rows, 1)
			fmt.Fprintf(out, "%d track(s) in %s\n", len(keys), store.MainPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the main store as JSON")
	return cmd
}

func newLibraryRebuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the criteria store from the main store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := fileLogger(cfg)
			if err != nil {
				return err
			}
			store, err := ctx.openStore(logger)
			if err != nil {
				return err
			}

			criteria, err := store.RebuildCriteria()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Genre", strconv.Itoa(len(criteria.Genre))},
				{"Mood", strconv.Itoa(len(criteria.Mood))},
				{"Instrument", strconv.Itoa(len(criteria.Instrument))},
				{"Vocals", strconv.Itoa(len(criteria.Vocals))},
				{"Theme", strconv.Itoa(len(criteria.Theme))},
				{"Tempo bands", strconv.Itoa(len(criteria.TempoBands))},
				{"Keys", strconv.Itoa(len(criteria.Keys))},
				{"Artists", strconv.Itoa(len(criteria.Artists))},
				{"Electronic elements", strconv.Itoa(len(criteria.ElectronicElements))},
			}
			renderTable(out, []string{"Facet", "Values"}, rows, 1)
			fmt.Fprintf(out, "Wrote %d facet values to %s\n", criteria.ValueCount(), store.CriteriaPath())
			return nil
		},
	}
}
