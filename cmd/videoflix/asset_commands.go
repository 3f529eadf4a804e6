package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"videoflix/internal/app"
	"videoflix/internal/config"
	"videoflix/internal/library"
	"videoflix/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var in library.CreateInput

	cmd := &cobra.Command{
		Use:   "ingest <video>",
		Short: "Add a video to the catalog and queue it for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.SourcePath = args[0]
			return ctx.withApp(cmd, func(a *app.App) error {
				created, err := a.Library.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created asset %d (%s)\n", created.Asset.ID, created.Asset.Title)
				if created.Job != nil {
					fmt.Fprintf(out, "Queued job %d\n", created.Job.ID)
				} else {
					fmt.Fprintln(out, "Warning: no transcode job was queued; run `videoflix requeue` to retry")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Asset title (default derived from the file name)")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Asset description")
	cmd.Flags().StringVar(&in.ThumbnailPath, "thumbnail", "", "Thumbnail image; its file name drives category tagging")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.AssetFilter{Category: category}
			for _, value := range statuses {
				status, err := store.ParseAssetStatus(value)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				assets, err := a.Store.ListAssets(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "No assets")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]column{numCol("ID"), col("Title"), col("Status"), col("Category"), col("Renditions"), col("Created")},
					buildAssetRows(assets),
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, partial, done, failed)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	return cmd
}

func buildAssetRows(assets []*store.Asset) [][]string {
	rows := make([][]string, 0, len(assets))
	for _, asset := range assets {
		rows = append(rows, []string{
			strconv.FormatInt(asset.ID, 10),
			asset.Title,
			string(asset.Status),
			dashIfEmpty(asset.Category),
			renditionSummary(asset.Renditions),
			asset.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one asset with its renditions and jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				asset, err := a.Store.GetAsset(cmd.Context(), id)
				if err != nil {
					return notFoundHint(err, id)
				}
				jobs, err := a.Store.JobsForAsset(cmd.Context(), id)
				if err != nil {
					return err
				}
				writeAssetDetail(cmd.OutOrStdout(), asset, jobs)
				return nil
			})
		},
	}
}

func writeAssetDetail(out io.Writer, asset *store.Asset, jobs []*store.Job) {
	fmt.Fprintf(out, "Asset %d\n", asset.ID)
	fmt.Fprintf(out, "  Title:       %s\n", asset.Title)
	if asset.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", asset.Description)
	}
	fmt.Fprintf(out, "  Status:      %s\n", asset.Status)
	fmt.Fprintf(out, "  Category:    %s\n", dashIfEmpty(asset.Category))
	fmt.Fprintf(out, "  Original:    %s\n", dashIfEmpty(asset.OriginalPath))
	fmt.Fprintf(out, "  Thumbnail:   %s\n", dashIfEmpty(asset.Thumbnail))
	for _, profile := range config.KnownProfiles {
		fmt.Fprintf(out, "  %-12s %s\n", profile+":", dashIfEmpty(asset.Renditions.Get(profile)))
	}
	if asset.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:       %s\n", asset.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:     %s\n", asset.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Updated:     %s\n", asset.UpdatedAt.Local().Format(time.DateTime))
	if len(jobs) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable(
		[]column{numCol("Job"), col("Status"), col("Stage"), numCol("Attempts"), col("Worker"), col("Error")},
		buildJobRows(jobs, false),
	))
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an asset's title or description without re-encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			titleSet := cmd.Flags().Changed("title")
			descSet := cmd.Flags().Changed("description")
			if !titleSet && !descSet {
				return errors.New("nothing to change: pass --title and/or --description")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				current, err := a.Store.GetAsset(cmd.Context(), id)
				if err != nil {
					return notFoundHint(err, id)
				}
				newTitle, newDesc := current.Title, current.Description
				if titleSet {
					newTitle = title
				}
				if descSet {
					newDesc = description
				}
				updated, err := a.Library.UpdateMetadata(cmd.Context(), id, newTitle, newDesc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated asset %d (%s)\n", updated.ID, updated.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an asset and every stored file it references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				result, err := a.Library.Delete(cmd.Context(), id)
				if err != nil {
					return notFoundHint(err, id)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted asset %d (%d files removed", id, len(result.Removed))
				if len(result.Missing) > 0 {
					fmt.Fprintf(out, ", %d already missing", len(result.Missing))
				}
				fmt.Fprintln(out, ")")
				for _, key := range result.Failed {
					fmt.Fprintf(out, "Warning: could not remove %s\n", key)
				}
				return nil
			})
		},
	}
}

func renditionSummary(r store.Renditions) string {
	var present []string
	for _, profile := range config.KnownProfiles {
		if r.Get(profile) != "" {
			present = append(present, profile)
		}
	}
	if len(present) == 0 {
		return "-"
	}
	return strings.Join(present, ",")
}

func notFoundHint(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("asset %d not found", id)
	}
	return err
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
