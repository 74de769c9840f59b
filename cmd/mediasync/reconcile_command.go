package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediasync/internal/deps"
	"mediasync/internal/orientation"
	"mediasync/internal/reconcile"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <project>",
		Short: "Reconcile a project's catalog with its files on disk",
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

			var normalizer reconcile.Normalizer
			if cfg.Orientation.Enabled {
				caps := deps.Probe(cfg.Orientation.FFmpegBinary, cfg.Orientation.FFprobeBinary)
				if caps.CanNormalize() {
					normalizer = orientation.New(cfg.Orientation, logger)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "ffmpeg/ffprobe not found; skipping orientation normalization")
				}
			}

			engine := reconcile.New(cfg, logger, normalizer)
			result, err := engine.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Indexed", strconv.Itoa(result.Indexed)},
				{"Removed", strconv.Itoa(result.Removed)},
				{"Relocated", strconv.Itoa(result.Relocated)},
				{"Skipped unsupported", strconv.Itoa(result.SkippedUnsupported)},
				{"Normalized", strconv.Itoa(result.Normalized)},
				{"Normalization failed", strconv.Itoa(result.NormalizationFailed)},
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s for project %s\n", result.RunID, result.Project)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Outcome", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
