package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"himyc/internal/corpus"
	"himyc/internal/workbench"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import transcripts and subtitle tracks",
	}
	importCmd.AddCommand(newImportTranscriptCommand(ctx))
	importCmd.AddCommand(newImportSubtitlesCommand(ctx))
	importCmd.AddCommand(newImportRemoveCommand(ctx))
	return importCmd
}

func newImportTranscriptCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "transcript <episode> <file>",
		Short: "Segment a clean transcript (replaces segments and deletes the episode's runs)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var segKind corpus.SegmentKind
			if kind != "" {
				parsed, err := corpus.ParseSegmentKind(kind)
				if err != nil {
					return err
				}
				segKind = parsed
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				result, err := wb.ImportTranscript(cmd.Context(), args[0], args[1], segKind)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d %s segments for %s (%d with speaker labels)\n",
					result.Segments, result.Kind, result.EpisodeID, result.Speakers)
				if result.RunsDeleted > 0 {
					fmt.Fprintf(out, "Deleted %d alignment run(s) invalidated by re-segmentation\n", result.RunsDeleted)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Segment kind: sentence or utterance (default alignment.segment_kind)")
	return cmd
}

func newImportSubtitlesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subtitles <episode> <lang> <file>",
		Short: "Import an SRT or WebVTT track (replaces the language's cues and deletes the episode's runs)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				result, err := wb.ImportSubtitles(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d %s cues for %s from %s\n", result.Cues, result.Lang, result.EpisodeID, result.Format)
				if result.RemovedAds > 0 || result.RemovedEmpty > 0 {
					fmt.Fprintf(out, "Dropped %d advertisement and %d empty cue(s)\n", result.RemovedAds, result.RemovedEmpty)
				}
				fmt.Fprintf(out, "Copied to %s\n", result.FilePath)
				if result.RunsDeleted > 0 {
					fmt.Fprintf(out, "Deleted %d alignment run(s) invalidated by the new track\n", result.RunsDeleted)
				}
				return nil
			})
		},
	}
}

func newImportRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <episode> <lang>",
		Short: "Delete a subtitle track and its cues (deletes the episode's runs)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				runs, err := wb.DeleteSubtitles(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"episode_id": args[0], "lang": args[1], "runs_deleted": runs})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s track of %s (%d alignment run(s) deleted)\n", args[1], args[0], runs)
				return nil
			})
		},
	}
}
