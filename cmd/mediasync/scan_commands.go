package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasync/internal/bridge"
	"mediasync/internal/buckets"
	"mediasync/internal/services"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Stage, inspect, and commit library source scans",
	}
	cmd.AddCommand(newScanCreateCommand(ctx))
	cmd.AddCommand(newScanShowCommand(ctx))
	cmd.AddCommand(newScanCommitCommand(ctx))
	cmd.AddCommand(newScanDeleteCommand(ctx))
	return cmd
}

func newScanCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <source>",
		Short: "Stage a preview scan of a library source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			source, err := registry.Require(args[0], false)
			if err != nil {
				return err
			}

			store, err := bridge.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()

			scan, err := store.CreateScan(cmd.Context(), source, cfg.StageScan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scan %s of %s expires %s\n",
				scan.ID, scan.Source, scan.ExpiresAt.Format("15:04:05"))
			printScanTree(cmd, scan.Root, 0)
			return nil
		},
	}
}

func newScanShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show a staged scan tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := bridge.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()

			scan, err := store.GetScan(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("scan %s not found or expired; stage a new one with `mediasync scan create`", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scan %s of %s expires %s\n",
				scan.ID, scan.Source, scan.ExpiresAt.Format("15:04:05"))
			printScanTree(cmd, scan.Root, 0)
			return nil
		},
	}
}

func newScanCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <scan-id> <path>...",
		Short: "Commit selected scan paths as library roots",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := bridge.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()

			selected := args[1:]
			scan, err := store.Commit(cmd.Context(), args[0], selected)
			if err != nil {
				return err
			}

			// Pin the matching buckets so rediscovery keeps the committed roots.
			bucketStore, err := buckets.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer bucketStore.Close()
			for _, root := range selected {
				pinErr := bucketStore.SetPinned(cmd.Context(), buckets.BucketID(scan.Source, root), true)
				if pinErr != nil && !errors.Is(pinErr, services.ErrNotFound) {
					return pinErr
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d library roots for %s\n", len(selected), scan.Source)
			return nil
		},
	}
}

func newScanDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scan-id>",
		Short: "Discard a staged scan without committing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := bridge.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteScan(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded scan %s\n", args[0])
			return nil
		},
	}
}

func printScanTree(cmd *cobra.Command, node *bridge.Node, indent int) {
	if node == nil {
		return
	}
	marker := " "
	if node.Suggested {
		marker = "*"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s %s (%d media, score %.2f)\n",
		strings.Repeat("  ", indent), marker, node.Path, node.DescendantMediaCount, node.Score)
	for _, child := range node.Children {
		printScanTree(cmd, child, indent+1)
	}
}
