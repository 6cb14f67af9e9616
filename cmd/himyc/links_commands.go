package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"himyc/internal/align"
	"himyc/internal/export"
	"himyc/internal/store"
	"himyc/internal/workbench"
)

func newLinksCommand(ctx *commandContext) *cobra.Command {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Review alignment links",
	}
	linksCmd.AddCommand(newLinksListCommand(ctx))
	linksCmd.AddCommand(newLinksSetStatusCommand(ctx))
	linksCmd.AddCommand(newLinksBulkCommand(ctx))
	linksCmd.AddCommand(newLinksExportCommand(ctx))
	return linksCmd
}

// linkFilterFlags are the filter flags shared by list and bulk.
type linkFilterFlags struct {
	run           string
	status        string
	minConfidence float64
	role          string
	lang          string
}

func (f *linkFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.run, "run", "r", "", "Run id (default every run of the episode)")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "Only links with this status (auto, accepted, rejected)")
	cmd.Flags().Float64Var(&f.minConfidence, "min-confidence", -1, "Only links at or above this confidence")
	cmd.Flags().StringVar(&f.role, "role", "", "Only pivot or target links")
	cmd.Flags().StringVarP(&f.lang, "lang", "l", "", "Only links of this language")
}

func (f *linkFilterFlags) filter(episodeID string) (store.LinkFilter, error) {
	filter := store.LinkFilter{EpisodeID: episodeID, RunID: f.run, Lang: f.lang}
	if f.status != "" {
		status, err := align.ParseStatus(f.status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if f.minConfidence >= 0 {
		value := f.minConfidence
		filter.MinConfidence = &value
	}
	if f.role != "" {
		role := align.Role(f.role)
		if !role.Valid() {
			return filter, fmt.Errorf("unknown link role %q", f.role)
		}
		filter.Role = role
	}
	return filter, nil
}

func newLinksListCommand(ctx *commandContext) *cobra.Command {
	var flags linkFilterFlags

	cmd := &cobra.Command{
		Use:   "list <episode>",
		Short: "List links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(args[0])
			if err != nil {
				return err
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				links, err := wb.Links(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return export.WriteLinksJSONL(cmd.OutOrStdout(), links)
				}
				printTable(cmd, "No links match",
					[]string{"Link", "Role", "Segment", "Cue", "Target", "Confidence", "Status"},
					buildLinkRows(links),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func buildLinkRows(links []align.Link) [][]string {
	rows := make([][]string, 0, len(links))
	for _, link := range links {
		segment, target := "-", "-"
		if link.Segment != nil {
			segment = link.Segment.String()
		}
		if link.CueTarget != nil {
			target = link.CueTarget.String()
		}
		rows = append(rows, []string{
			link.LinkID,
			string(link.Role),
			segment,
			link.Cue.String(),
			target,
			strconv.FormatFloat(link.Confidence, 'f', 4, 64),
			string(link.Status),
		})
	}
	return rows
}

func newLinksSetStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <link> <status>",
		Short: "Accept, reject, or reset one link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := align.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				link, err := wb.SetLinkStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, link)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Link %s is now %s\n", link.LinkID, link.Status)
				return nil
			})
		},
	}
}

func newLinksBulkCommand(ctx *commandContext) *cobra.Command {
	var flags linkFilterFlags

	cmd := &cobra.Command{
		Use:   "bulk <episode> <status>",
		Short: "Set the status of every link matching the filters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := align.ParseStatus(args[1])
			if err != nil {
				return err
			}
			filter, err := flags.filter(args[0])
			if err != nil {
				return err
			}
			if filter.RunID == "" {
				return errors.New("bulk updates require --run")
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				n, err := wb.BulkSetStatus(cmd.Context(), filter, status)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"updated": n, "status": status})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %d link(s) to %s\n", n, status)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newLinksExportCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <episode> <run> <file>",
		Short: "Export a run's links as CSV or JSON lines",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f export.Format
			if format != "" {
				parsed, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				n, err := wb.ExportLinks(cmd.Context(), args[1], args[0], args[2], f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d link(s) to %s\n", n, args[2])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or jsonl (default from the file extension)")
	return cmd
}
