package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autocrack/internal/pipeline"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <game-dir>",
		Short: "Revert every file autocrack changed under a game directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			p := pipeline.New(cfg.Paths.CacheDir, pipeline.WithLedger(store), pipeline.WithLogger(logger))
			result, err := p.Restore(cmd.Context(), gameDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			if len(result.Skipped) > 0 {
				return fmt.Errorf("%d artifacts could not be restored; see the log for details", len(result.Skipped))
			}
			return nil
		},
	}
}
