package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediasync/internal/buckets"
)

func newBucketsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Discover and browse media buckets in library sources",
	}
	cmd.AddCommand(newBucketsDiscoverCommand(ctx))
	cmd.AddCommand(newBucketsListCommand(ctx))
	cmd.AddCommand(newBucketsPinCommand(ctx, true))
	cmd.AddCommand(newBucketsPinCommand(ctx, false))
	return cmd
}

func newBucketsDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <source>",
		Short: "Re-run bucket discovery over a library source",
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

			discovered, err := buckets.Discover(source, cfg.Buckets)
			if err != nil {
				return err
			}
			store, err := buckets.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Replace(cmd.Context(), source.Name, discovered); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Discovered %d buckets in %s\n", len(discovered), source.Name)
			printBuckets(cmd, discovered)
			return nil
		},
	}
}

func newBucketsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <source>",
		Short: "List the stored buckets of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := buckets.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()

			listed, err := store.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(listed) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No buckets stored for %s; run `mediasync buckets discover %s`.\n", args[0], args[0])
				return nil
			}
			printBuckets(cmd, listed)
			return nil
		},
	}
}

func newBucketsPinCommand(ctx *commandContext, pin bool) *cobra.Command {
	use, short := "pin <bucket-id>", "Pin a bucket so rediscovery keeps it"
	if !pin {
		use, short = "unpin <bucket-id>", "Unpin a bucket"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := buckets.OpenStore(cfg.SourcesDir())
			if err != nil {
				return err
			}
			defer store.Close()
			return store.SetPinned(cmd.Context(), args[0], pin)
		},
	}
}

func printBuckets(cmd *cobra.Command, listed []buckets.Bucket) {
	rows := make([][]string, 0, len(listed))
	for _, bucket := range listed {
		pinned := ""
		if bucket.Pinned {
			pinned = "pinned"
		}
		rows = append(rows, []string{
			bucket.ID[:12],
			bucket.Title,
			bucket.RelRoot,
			strconv.Itoa(bucket.FileCount),
			strings.Join(bucket.Kinds, ","),
			pinned,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Title", "Root", "Files", "Kinds", ""},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}
