package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"himyc/internal/corpus"
	"himyc/internal/workbench"
)

func newCharactersCommand(ctx *commandContext) *cobra.Command {
	charactersCmd := &cobra.Command{
		Use:   "characters",
		Short: "Manage the character catalog",
	}
	charactersCmd.AddCommand(newCharactersImportCommand(ctx))
	charactersCmd.AddCommand(newCharactersListCommand(ctx))
	charactersCmd.AddCommand(newCharactersAssignmentsCommand(ctx))
	return charactersCmd
}

func newCharactersImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Upsert characters from a YAML catalog (default catalog.path)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				n, err := wb.ImportCatalog(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d character(s)\n", n)
				return nil
			})
		},
	}
}

func newCharactersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				chars, err := wb.Characters(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if chars == nil {
						chars = []corpus.Character{}
					}
					return writeJSON(cmd, chars)
				}
				rows := make([][]string, 0, len(chars))
				for _, ch := range chars {
					rows = append(rows, []string{ch.ID, ch.Canonical, localizedNames(ch.Names)})
				}
				printTable(cmd, "Catalog is empty", []string{"ID", "Name", "Localized"}, rows, nil)
				return nil
			})
		},
	}
}

func newCharactersAssignmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assignments <episode>",
		Short: "List the episode's character assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				assignments, err := wb.Assignments(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if assignments == nil {
						assignments = []corpus.Assignment{}
					}
					return writeJSON(cmd, assignments)
				}
				rows := make([][]string, 0, len(assignments))
				for _, a := range assignments {
					rows = append(rows, []string{string(a.SourceType), a.SourceID, a.CharacterID})
				}
				printTable(cmd, "No assignments", []string{"Type", "Source", "Character"}, rows, nil)
				return nil
			})
		},
	}
}

func localizedNames(names map[string]string) string {
	parts := make([]string, 0, len(names))
	for lang, name := range names {
		parts = append(parts, lang+"="+name)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func newAssignCommand(ctx *commandContext) *cobra.Command {
	var clearFlag bool

	cmd := &cobra.Command{
		Use:   "assign <episode> <segment|cue> <source-id> [character]",
		Short: "Attribute a segment or cue to a character",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceType := corpus.SourceType(strings.ToLower(args[1]))
			switch sourceType {
			case corpus.SourceSegment, corpus.SourceCue:
			default:
				return fmt.Errorf("source type must be segment or cue, got %q", args[1])
			}
			assignment := corpus.Assignment{EpisodeID: args[0], SourceType: sourceType, SourceID: args[2]}
			switch {
			case clearFlag && len(args) == 4:
				return errors.New("--clear takes no character")
			case !clearFlag && len(args) == 3:
				return errors.New("character id is required (or pass --clear)")
			case !clearFlag:
				assignment.CharacterID = args[3]
			}
			return ctx.withWorkbench(func(wb *workbench.Workbench) error {
				if err := wb.Assign(cmd.Context(), assignment); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if clearFlag {
					fmt.Fprintf(out, "Cleared assignment of %s %s\n", sourceType, assignment.SourceID)
				} else {
					fmt.Fprintf(out, "Assigned %s %s to %s\n", sourceType, assignment.SourceID, assignment.CharacterID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearFlag, "clear", false, "Remove the assignment instead of setting one")
	return cmd
}
