package main

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"himyc/internal/align"
	"himyc/internal/store"
	"himyc/internal/workbench"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage alignment runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsStatsCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <episode>",
		Short: "List the episode's runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				runs, err := wb.ListRuns(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(cmd, runs)
				}
				printTable(cmd, "No alignment runs", []string{"Run", "Pivot", "Kind", "Created", "Links"},
					buildRunRows(runs), []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}
}

func buildRunRows(runs []store.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.PivotLang,
			string(run.SegmentKind()),
			run.CreatedAt.Local().Format(time.DateTime),
			summaryTotal(run.Summary),
		})
	}
	return rows
}

// summaryTotal sums the link counts recorded in a run summary.
func summaryTotal(summary map[string]any) string {
	total, ok := number(summary["pivot_links"])
	if !ok {
		return "-"
	}
	if targets, ok := summary["target_links"].(map[string]any); ok {
		for _, v := range targets {
			n, _ := number(v)
			total += n
		}
	}
	return strconv.Itoa(total)
}

func number(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode> <run>",
		Short: "Show a run's parameters and summary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				run, err := wb.GetRun(cmd.Context(), args[1], args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, run)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:     %s\n", run.ID)
				fmt.Fprintf(out, "Episode: %s\n", run.EpisodeID)
				fmt.Fprintf(out, "Pivot:   %s\n", run.PivotLang)
				fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintln(out, renderTable([]string{"Param", "Value"}, mapRows(run.Params), nil))
				fmt.Fprintln(out, renderTable([]string{"Summary", "Value"}, mapRows(run.Summary), nil))
				return nil
			})
		},
	}
}

func mapRows(values map[string]any) [][]string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprint(values[key])})
	}
	return rows
}

func newRunsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <episode> <run>",
		Short: "Aggregate a run's links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				stats, err := wb.RunStats(cmd.Context(), args[1], args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				rows := [][]string{
					{"Total links", strconv.Itoa(stats.Total)},
					{"Pivot segments", strconv.Itoa(stats.PivotSegments)},
					{"Pivot cues", strconv.Itoa(stats.PivotCues)},
					{"Target cues", strconv.Itoa(stats.TargetCues)},
					{"Average confidence", strconv.FormatFloat(stats.AverageConfidence, 'f', 4, 64)},
				}
				statuses := make([]align.Status, 0, len(stats.ByStatus))
				for status := range stats.ByStatus {
					statuses = append(statuses, status)
				}
				slices.Sort(statuses)
				for _, status := range statuses {
					rows = append(rows, []string{"Status " + string(status), strconv.Itoa(stats.ByStatus[status])})
				}
				langs := make([]string, 0, len(stats.ByLang))
				for lang := range stats.ByLang {
					langs = append(langs, lang)
				}
				slices.Sort(langs)
				for _, lang := range langs {
					rows = append(rows, []string{"Language " + lang, strconv.Itoa(stats.ByLang[lang])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <episode> <run>",
		Short: "Delete a run and its links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				if err := wb.DeleteRun(cmd.Context(), args[1], args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[1])
				return nil
			})
		},
	}
}
