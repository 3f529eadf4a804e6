package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"videoflix/internal/app"
	"videoflix/internal/library"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var metadataPath string

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Bulk import .mp4 files from a directory",
		Long: "Import every .mp4 file in a directory. With --metadata, only files named\n" +
			"in the JSON file are imported, using its title and description. An image\n" +
			"with the same stem (jpg, jpeg, png) becomes the thumbnail.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var metadata map[string]library.Metadata
			if strings.TrimSpace(metadataPath) != "" {
				loaded, err := library.LoadMetadata(metadataPath)
				if err != nil {
					return err
				}
				metadata = loaded
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				report, err := a.Library.Import(cmd.Context(), args[0], metadata)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, created := range report.Created {
					fmt.Fprintf(out, "Imported %s as asset %d\n", created.Asset.Title, created.Asset.ID)
				}
				for _, skipped := range report.Skipped {
					fmt.Fprintf(out, "Skipped %s: %s\n", skipped.File, skipped.Reason)
				}
				for _, failed := range report.Failed {
					fmt.Fprintf(out, "Failed %s: %s\n", failed.File, failed.Reason)
				}
				fmt.Fprintf(out, "Import complete: %d created, %d skipped, %d failed\n",
					len(report.Created), len(report.Skipped), len(report.Failed))
				if len(report.Failed) > 0 {
					return fmt.Errorf("%d files failed to import", len(report.Failed))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&metadataPath, "metadata", "m", "", "JSON file mapping file names to title and description")
	return cmd
}

func newRetagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retag",
		Short: "Re-run category tagging over every asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				summary, err := a.Library.RetagAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retagged %d assets: %d matched, %d changed, %d without a match\n",
					summary.Total, summary.Tagged, summary.Changed, summary.Unmatched)
				return nil
			})
		},
	}
}

func newRequeueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue [id...]",
		Short: "Queue transcode jobs for unfinished assets",
		Long: "Queue a new job for each pending, failed, or partial asset that still has\n" +
			"its original and no job in flight. Without ids every eligible asset is queued.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				jobs, err := a.Library.Requeue(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Nothing to requeue")
					return nil
				}
				for _, job := range jobs {
					fmt.Fprintf(out, "Queued job %d for asset %d\n", job.ID, job.AssetID)
				}
				return nil
			})
		},
	}
}
