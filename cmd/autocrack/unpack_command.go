package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autocrack/internal/pipeline"
	"autocrack/internal/preflight"
)

func newUnpackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <game-dir>",
		Short: "Run only the Steamless phase over every executable in a game directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Unpack.Enabled {
				return fmt.Errorf("unpacking is disabled (set unpack.enabled = true)")
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

			checks := []preflight.Result{
				preflight.CheckDirectoryAccess("Game directory", gameDir),
				preflight.CheckUnpackerFromConfig(cfg),
			}
			if failed := preflight.Failed(checks); len(failed) > 0 {
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
			summary, err := p.Unpack(cmd.Context(), gameDir, reporter)
			finish()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Line())
			return nil
		},
	}
}
