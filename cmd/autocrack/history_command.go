package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"autocrack/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			switch format {
			case formatJSON:
				return writeJSON(cmd, runs)
			case formatYAML:
				return writeYAML(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunsTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	addFormatFlag(cmd, &format)
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the files it changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			run, err := store.Run(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			artifacts, err := store.Artifacts(cmd.Context(), ledger.ArtifactFilter{RunID: run.ID})
			if err != nil {
				return err
			}
			view := runView{Run: run, Artifacts: artifacts}
			switch format {
			case formatJSON:
				return writeJSON(cmd, view)
			case formatYAML:
				return writeYAML(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Game:     %s\n", run.GameDir)
			fmt.Fprintf(out, "App ID:   %s\n", valueOrDash(run.AppID))
			fmt.Fprintf(out, "Status:   %s\n", run.Status)
			fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
			if d := run.Duration(); d > 0 {
				fmt.Fprintf(out, "Duration: %s\n", d.Round(time.Millisecond))
			}
			if run.Error != "" {
				fmt.Fprintf(out, "Error:    %s (%s)\n", run.Error, run.ErrorKind)
			}
			if run.Summary != "" {
				fmt.Fprintf(out, "\n%s\n", run.Summary)
			}
			if len(artifacts) > 0 {
				fmt.Fprintf(out, "\n%s\n", renderArtifactsTable(artifacts))
			}
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

type runView struct {
	Run       ledger.Run        `json:"run" yaml:"run"`
	Artifacts []ledger.Artifact `json:"artifacts" yaml:"artifacts"`
}

func renderRunsTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			string(run.Status),
			valueOrDash(run.AppID),
			run.GameDir,
		})
	}
	return renderTable(
		[]column{left("ID"), left("Started"), left("Status"), right("App"), wrapped("Game", 60)},
		rows,
	)
}

func renderArtifactsTable(artifacts []ledger.Artifact) string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		size := "-"
		if a.Size > 0 {
			size = humanize.IBytes(uint64(a.Size))
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			string(a.Kind),
			a.Original,
			size,
			yesNo(a.Restored),
		})
	}
	return renderTable(
		[]column{right("#"), left("Kind"), wrapped("Path", 70), right("Size"), left("Restored")},
		rows,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
