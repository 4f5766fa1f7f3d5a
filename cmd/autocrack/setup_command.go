package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"autocrack/internal/deps"
)

func newSetupCommand(ctx *commandContext) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download the emulator files and Steamless into the dependency cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			source := strings.TrimSpace(baseURL)
			if source == "" {
				source = cfg.Dependencies.BaseURL
			}
			result, err := deps.Setup(cmd.Context(), deps.SetupOptions{
				CacheDir:    cfg.Paths.CacheDir,
				BaseURL:     source,
				Concurrency: cfg.Dependencies.Concurrency,
				HTTP:        &http.Client{Timeout: cfg.RequestTimeout()},
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range result.Downloaded {
				fmt.Fprintf(out, "Downloaded %s\n", name)
			}
			if result.Extracted {
				fmt.Fprintf(out, "Extracted %s\n", deps.SteamlessZip)
			}
			if len(result.Downloaded) == 0 && !result.Extracted {
				fmt.Fprintln(out, "Dependency cache already complete")
			}
			fmt.Fprintf(out, "Cache: %s\n", cfg.Paths.CacheDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override dependencies.base_url")
	return cmd
}
