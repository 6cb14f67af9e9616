package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"himyc/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var runID string
	var level string
	var event string

	cmd := &cobra.Command{
		Use:   "logs [episode]",
		Short: "Display the project log, optionally for one episode or run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			minLevel, err := logs.ParseLevel(level)
			if err != nil {
				return err
			}
			filter := logs.Filter{RunID: runID, MinLevel: minLevel, EventType: event}
			if len(args) == 1 {
				filter.EpisodeID = args[0]
			}

			offset := int64(-1)
			limit := lines
			if limit <= 0 {
				offset = 0
				limit = 0
			}
			out := cmd.OutOrStdout()
			printed := false
			for {
				result, err := logs.Tail(cmd.Context(), cfg.LogPath(), logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
					Filter: filter,
				})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, entry := range result.Entries {
					if ctx.jsonOutput() {
						fmt.Fprintln(out, entry.Raw)
					} else {
						fmt.Fprintln(out, entry.Format())
					}
					printed = true
				}
				offset = result.Offset
				if !follow {
					if !printed && !ctx.jsonOutput() {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				if cmd.Context().Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only entries for this alignment run")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, or error")
	cmd.Flags().StringVar(&event, "event", "", "Only entries with this event type")
	return cmd
}
