package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"himyc/internal/export"
	"himyc/internal/grouping"
	"himyc/internal/workbench"
)

func newGroupCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	var refresh bool
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "group <episode> <run>",
		Short: "Group consecutive segments by character into parallel-corpus rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f export.Format
			if format != "" {
				parsed, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}
			req := workbench.GroupRequest{EpisodeID: args[0], RunID: args[1], Tolerant: !strict, Refresh: refresh}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				if output != "" {
					n, err := wb.ExportGrouping(cmd.Context(), req, output, f)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d row(s) to %s\n", n, output)
					return nil
				}
				result, err := wb.Group(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				headers, rows := buildGroupRows(result)
				printTable(cmd, "No groups", headers, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Give unidentified segments their own group instead of merging them")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the cached grouping")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write rows to this file instead of printing")
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv, tsv, or jsonl (default from the file extension)")
	return cmd
}

func buildGroupRows(result *grouping.Result) ([]string, [][]string) {
	langs := append([]string{result.PivotLang}, result.Languages...)
	headers := []string{"Character", "Segments"}
	for _, lang := range langs {
		headers = append(headers, strings.ToUpper(lang))
	}
	rows := make([][]string, 0, len(result.Groups))
	for _, group := range result.Groups {
		character := group.CharacterID
		if character == "" {
			character = "?"
		}
		row := []string{character, strconv.Itoa(len(group.SegmentIDs))}
		for _, lang := range langs {
			row = append(row, group.TextsByLang[lang])
		}
		rows = append(rows, row)
	}
	return headers, rows
}
