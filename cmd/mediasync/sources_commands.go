package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasync/internal/sources"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage media storage sources",
	}
	cmd.AddCommand(newSourcesListCommand(ctx))
	cmd.AddCommand(newSourcesAddCommand(ctx))
	cmd.AddCommand(newSourcesRemoveCommand(ctx))
	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources and their reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			all, err := registry.ListAll()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(all))
			for _, source := range all {
				reach := sources.CheckReachability(source)
				state := "unreachable"
				free := "-"
				if reach.Accessible {
					state = "ok"
					free = formatBytes(reach.FreeBytes)
				}
				enabled := "yes"
				if !source.Enabled {
					enabled = "no"
				}
				rows = append(rows, []string{
					source.Name, source.Mode, source.Root, enabled, state, free,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Mode", "Root", "Enabled", "State", "Free"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <name> <root>",
		Short: "Register a read-only library source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			name, err := sources.NormalizeName(args[0])
			if err != nil {
				return err
			}

			saved, err := registry.Upsert(sources.Source{
				Name:         name,
				Root:         args[1],
				Type:         "local",
				Enabled:      !disabled,
				Mode:         sources.ModeLibrary,
				ReadOnly:     true,
				Capabilities: sources.DefaultCapabilities(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered source %s at %s\n", saved.Name, saved.Root)
			return nil
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the source without enabling it")
	return cmd
}

func newSourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registered source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			if err := registry.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", args[0])
			return nil
		},
	}
}

func formatBytes(value uint64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	div, exp := uint64(unit), 0
	for n := value / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/float64(div), "KMGTPE"[exp])
}
