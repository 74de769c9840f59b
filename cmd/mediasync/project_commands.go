package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediasync/internal/catalog"
	"mediasync/internal/derive"
	"mediasync/internal/manifest"
	"mediasync/internal/media"
	"mediasync/internal/paths"
	"mediasync/internal/services"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect catalog projects",
	}
	cmd.AddCommand(newProjectCreateCommand(ctx))
	cmd.AddCommand(newProjectListCommand(ctx))
	cmd.AddCommand(newProjectShowCommand(ctx))
	cmd.AddCommand(newProjectDeriveCommand(ctx))
	return cmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project with an empty catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projectRoot, err := paths.ProjectPath(cfg.Paths.ProjectsRoot, args[0])
			if err != nil {
				return err
			}
			if _, err := catalog.Load(projectRoot); err == nil {
				return services.Wrap(services.ErrConflict, "cli", "project create",
					fmt.Sprintf("project %q already exists", args[0]), nil)
			}

			for _, dir := range []string{paths.IngestDir, paths.MetadataDir, paths.ThumbnailDir} {
				if err := os.MkdirAll(filepath.Join(projectRoot, dir), 0o755); err != nil {
					return fmt.Errorf("create project directory: %w", err)
				}
			}
			if _, err := catalog.Seed(projectRoot, args[0], notes); err != nil {
				return err
			}
			store, err := manifest.Open(projectRoot)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s at %s\n", args[0], projectRoot)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form project notes")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects and their catalog counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(cfg.Paths.ProjectsRoot)
			if err != nil {
				return fmt.Errorf("read projects root: %w", err)
			}

			var rows [][]string
			for _, entry := range entries {
				name := entry.Name()
				if !entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
					continue
				}
				index, err := catalog.Load(filepath.Join(cfg.Paths.ProjectsRoot, name))
				if err != nil {
					continue
				}
				rows = append(rows, []string{
					index.Project,
					strconv.Itoa(len(index.Files)),
					strconv.Itoa(index.Counts.Videos),
					strconv.Itoa(index.Counts.DuplicatesSkipped),
					strconv.Itoa(index.Counts.RemovedMissingRecords),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Project", "Files", "Videos", "Duplicates", "Removed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a project's catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projectRoot, err := paths.ProjectPath(cfg.Paths.ProjectsRoot, args[0])
			if err != nil {
				return err
			}
			index, err := catalog.Load(projectRoot)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", index.Project)
			if index.Notes != "" {
				fmt.Fprintf(out, "Notes:   %s\n", index.Notes)
			}
			fmt.Fprintf(out, "Files: %d  Videos: %d  Duplicates skipped: %d  Removed: %d\n",
				len(index.Files), index.Counts.Videos,
				index.Counts.DuplicatesSkipped, index.Counts.RemovedMissingRecords)

			if len(index.Files) == 0 {
				return nil
			}
			var rows [][]string
			for i, entry := range index.Files {
				if limit > 0 && i >= limit {
					break
				}
				rows = append(rows, []string{
					entry.RelativePath,
					entry.SHA256[:12],
					strconv.FormatInt(entry.SizeBytes, 10),
					entry.IndexedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Path", "SHA256", "Bytes", "Indexed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to display (0 for all)")
	return cmd
}

func newProjectDeriveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <name>",
		Short: "Generate thumbnails and waveforms for a project's indexed media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projectRoot, err := paths.ProjectPath(cfg.Paths.ProjectsRoot, args[0])
			if err != nil {
				return err
			}
			index, err := catalog.Load(projectRoot)
			if err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			generator := derive.NewGenerator(cfg, logger)
			var ready, degraded, skipped int
			for _, entry := range index.Files {
				var artifact derive.Artifact
				switch media.KindFor(entry.RelativePath) {
				case media.KindVideo, media.KindImage:
					artifact, err = generator.Thumbnail(cmd.Context(), projectRoot, entry.RelativePath, entry.SHA256)
				case media.KindAudio:
					artifact, err = generator.Waveform(cmd.Context(), projectRoot, entry.RelativePath, entry.SHA256)
				default:
					skipped++
					continue
				}
				if err != nil {
					return err
				}
				if artifact.Degraded {
					degraded++
					continue
				}
				ready++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Derived artifacts ready: %d (busy elsewhere: %d, unsupported: %d)\n",
				ready, degraded, skipped)
			return nil
		},
	}
}
