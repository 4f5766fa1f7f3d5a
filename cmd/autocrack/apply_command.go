package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"autocrack/internal/pipeline"
	"autocrack/internal/preflight"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		appID    string
		language string
		offline  bool
		noUnpack bool
	)

	cmd := &cobra.Command{
		Use:   "apply <game-dir>",
		Short: "Unpack executables and replace the Steam API libraries under a game directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if noUnpack {
				copied := *cfg
				copied.Unpack.Enabled = false
				cfg = &copied
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			gameDir, err := resolveGameDir(args[0])
			if err != nil {
				return err
			}

			lock, err := ctx.lockGame(gameDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, gameDir)); len(failed) > 0 {
				return preflightError(failed)
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			p, err := pipeline.NewFromConfig(cfg, logger, pipeline.WithLedger(store))
			if err != nil {
				return err
			}

			reporter, finish := newProgressReporter(cmd.ErrOrStderr(), logger)
			result, err := p.Run(cmd.Context(), pipeline.Request{
				GameDir:  gameDir,
				AppID:    appID,
				Language: language,
				Offline:  offline,
			}, reporter)
			finish()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "appid", "", "Steam app id of the game (required)")
	cmd.Flags().StringVar(&language, "language", "", "Emulator language (defaults to emulator.language)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip Steam lookups and write default metadata")
	cmd.Flags().BoolVar(&noUnpack, "no-unpack", false, "Skip the Steamless phase for this run")
	_ = cmd.MarkFlagRequired("appid")
	return cmd
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
}
