package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"videoflix/internal/app"
	"videoflix/internal/preflight"
	"videoflix/internal/store"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check directories, storage, encoder, and catalog health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withApp(cmd, func(a *app.App) error {
				w := newStatusWriter(out)

				w.section("Preflight")
				results := preflight.RunAll(cmd.Context(), a.Config, a.Backend)
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					w.line(result.Name, kind, result.Detail)
				}

				w.section("Catalog")
				health, err := a.Store.CheckHealth(cmd.Context())
				dbKind := statusOK
				if err != nil || !health.DatabaseReadable {
					dbKind = statusError
				}
				w.line("Database", dbKind, health.DBPath)
				w.line("Schema version", statusInfo, fmt.Sprint(health.SchemaVersion))
				w.line("Assets", statusInfo, fmt.Sprint(health.Assets))
				if stats, statsErr := a.Store.AssetStats(cmd.Context()); statsErr == nil {
					assetKind := statusInfo
					if stats[store.AssetFailed]+stats[store.AssetPartial] > 0 {
						assetKind = statusWarn
					}
					w.line("Asset status", assetKind, fmt.Sprintf(
						"%d pending, %d processing, %d done, %d partial, %d failed",
						stats[store.AssetPending], stats[store.AssetProcessing], stats[store.AssetDone],
						stats[store.AssetPartial], stats[store.AssetFailed],
					))
				}

				jobs, jobErr := a.Store.Health(cmd.Context())
				if jobErr == nil {
					jobKind := statusInfo
					if jobs.Failed > 0 {
						jobKind = statusWarn
					}
					w.line("Jobs", jobKind, fmt.Sprintf(
						"%d total, %d queued, %d running, %d succeeded, %d failed",
						jobs.Total, jobs.Queued, jobs.Running, jobs.Succeeded, jobs.Failed,
					))
				}

				w.flush(out)
				if failed := preflight.Failed(results); len(failed) > 0 {
					return fmt.Errorf("%d checks failed", len(failed))
				}
				return errors.Join(err, jobErr)
			})
		},
	}
}
