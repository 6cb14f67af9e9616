package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"himyc/internal/workbench"
)

func newPropagateCommand(ctx *commandContext) *cobra.Command {
	var langs []string

	cmd := &cobra.Command{
		Use:   "propagate <episode> <run>",
		Short: "Write assigned speakers into segments, cues, and subtitle files",
		Long: "Propagation sets segment speakers, prefixes linked cues with the localized character " +
			"name, and regenerates the subtitle file of every touched language. It rewrites files " +
			"in place; keep a copy if you need to undo it.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				result, err := wb.Propagate(cmd.Context(), args[1], args[0], langs)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %d segment(s) and %d cue(s)\n", result.SegmentsUpdated, result.CuesUpdated)
				if len(result.Languages) == 0 {
					fmt.Fprintln(out, "No subtitle files touched")
					return nil
				}
				fmt.Fprintf(out, "Rewrote %s:\n", strings.Join(result.Languages, ", "))
				for _, path := range result.Files {
					fmt.Fprintf(out, "  %s\n", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Rewrite these languages even without changes (repeatable)")
	return cmd
}
