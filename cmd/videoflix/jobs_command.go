package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"videoflix/internal/app"
	"videoflix/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transcode jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []store.JobStatus
			for _, value := range statuses {
				status, err := store.ParseJobStatus(value)
				if err != nil {
					return err
				}
				filter = append(filter, status)
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				jobs, err := a.Store.ListJobs(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]column{numCol("Job"), numCol("Asset"), col("Status"), col("Stage"), numCol("Attempts"), col("Worker"), col("Error")},
					buildJobRows(jobs, true),
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (queued, running, succeeded, failed)")
	cmd.AddCommand(newJobsRetryCommand(ctx))
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Return failed jobs to the queue",
		Long:  "Return failed jobs to the queue. With no IDs every failed job is retried.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				count, err := a.Store.RetryFailedJobs(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if count == 0 {
					fmt.Fprintln(out, "No failed jobs to retry")
					return nil
				}
				fmt.Fprintf(out, "Retrying %d job(s)\n", count)
				return nil
			})
		},
	}
}

func buildJobRows(jobs []*store.Job, withAsset bool) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		row := []string{strconv.FormatInt(job.ID, 10)}
		if withAsset {
			row = append(row, strconv.FormatInt(job.AssetID, 10))
		}
		row = append(row,
			string(job.Status),
			dashIfEmpty(job.Stage),
			strconv.Itoa(job.Attempts),
			dashIfEmpty(job.Worker),
			dashIfEmpty(truncate(job.ErrorMessage, 60)),
		)
		rows = append(rows, row)
	}
	return rows
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
