package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"autocrack/internal/deps"
	"autocrack/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "doctor [game-dir]",
		Short: "Check configuration, dependency cache and external tools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var gameDir string
			if len(args) == 1 {
				if gameDir, err = resolveGameDir(args[0]); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, gameDir)
			if online {
				results = append(results, preflight.CheckSteamWebAPI(cmd.Context(), cfg.Steam.WebAPIURL, cfg.Steam.WebAPIKey))
			}

			writeLines(out, renderSectionHeader("Configuration", colorize))
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, valueOrDash(ctx.configPath), colorize))
			fmt.Fprintln(out, renderStatusLine("Unpack", statusInfo, yesNo(cfg.Unpack.Enabled), colorize))
			apiKind, apiMessage := statusOK, "configured"
			if cfg.Steam.WebAPIKey == "" {
				apiKind, apiMessage = statusWarn, "not set; achievements and stats are skipped"
			}
			fmt.Fprintln(out, renderStatusLine("Steam Web API key", apiKind, apiMessage, colorize))
			fmt.Fprintln(out)

			writeLines(out, renderSectionHeader("Checks", colorize))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if system := preflight.CheckSystemDeps(cfg); len(system) > 0 {
				fmt.Fprintln(out)
				writeLines(out, dependencyLines(system, colorize))
			}
			fmt.Fprintln(out)

			writeLines(out, renderSectionHeader("Dependency cache", colorize))
			fmt.Fprintln(out, renderCacheTable(deps.CheckCache(cfg.Paths.CacheDir)))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d checks failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "Also verify the Steam Web API key against the live API")
	return cmd
}

func renderCacheTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{s.Name, s.Description, yesNo(s.Available)})
	}
	return renderTable([]column{left("File"), wrapped("Purpose", 50), left("Present")}, rows)
}

func writeLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
