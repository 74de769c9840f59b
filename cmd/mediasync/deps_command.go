package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasync/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(
				cfg.Orientation.FFmpegBinary, cfg.Orientation.FFprobeBinary))
			rows := make([][]string, 0, len(statuses))
			allFound := true
			for _, status := range statuses {
				state := "missing"
				if status.Available {
					state = status.Detail
				} else if status.Optional {
					state = "missing (optional)"
				}
				if !status.Available && !status.Optional {
					allFound = false
				}
				rows = append(rows, []string{status.Name, status.Command, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Binary", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if !allFound {
				fmt.Fprintln(cmd.OutOrStdout(), "Orientation normalization and artifact derivation need the missing tools.")
			}
			return nil
		},
	}
}
