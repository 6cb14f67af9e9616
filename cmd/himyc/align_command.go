package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"himyc/internal/corpus"
	"himyc/internal/workbench"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var pivot string
	var targets []string
	var kind string

	cmd := &cobra.Command{
		Use:   "align <episode>",
		Short: "Align segments to the pivot track and target tracks to the pivot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := workbench.AlignRequest{EpisodeID: args[0], PivotLang: pivot, TargetLangs: targets}
			if kind != "" {
				parsed, err := corpus.ParseSegmentKind(kind)
				if err != nil {
					return err
				}
				req.SegmentKind = parsed
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				result, err := wb.AlignEpisode(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (pivot %s)\n", result.Run.ID, result.Run.PivotLang)
				rows := [][]string{{"segments → " + result.Run.PivotLang, "", strconv.Itoa(result.PivotLinks)}}
				langs := make([]string, 0, len(result.TargetLinks))
				for lang := range result.TargetLinks {
					langs = append(langs, lang)
				}
				sort.Strings(langs)
				for _, lang := range langs {
					rows = append(rows, []string{result.Run.PivotLang + " → " + lang, string(result.Strategies[lang]), strconv.Itoa(result.TargetLinks[lang])})
				}
				fmt.Fprintln(out, renderTable([]string{"Pass", "Strategy", "Links"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				if result.TotalLinks() == 0 {
					fmt.Fprintln(out, "No links were produced; lower alignment.min_confidence or choose another cue_strategy")
				}
				if result.Cancelled {
					fmt.Fprintln(out, "Alignment was cancelled; the run holds partial results")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pivot, "pivot", "", "Pivot language (default alignment.pivot_lang)")
	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Target language (repeatable; default every imported track)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Segment kind to align (default alignment.segment_kind)")
	return cmd
}
