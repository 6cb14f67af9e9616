package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"himyc/internal/workbench"
)

func newIntegrityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity <episode>",
		Short: "Check the episode for links pointing at missing segments or cues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				report, err := wb.CheckIntegrity(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					rows := [][]string{
						{"Foreign key violations", strconv.Itoa(report.ForeignKeyViolations)},
						{"Links to missing segments", strconv.Itoa(report.OrphanSegmentLinks)},
						{"Links to missing pivot cues", strconv.Itoa(report.OrphanCueLinks)},
						{"Links to missing target cues", strconv.Itoa(report.OrphanTargetLinks)},
						{"Links without a run", strconv.Itoa(report.RunlessLinks)},
						{"Dangling assignments", strconv.Itoa(report.DanglingAssignments)},
					}
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, renderTable([]string{"Check", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
					fmt.Fprintf(out, "Consistent: %s\n", yesNo(report.OK()))
				}
				if !report.OK() {
					return errors.New("integrity check failed")
				}
				return nil
			})
		},
	}
}
