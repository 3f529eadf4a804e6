package main

import (
	"github.com/spf13/cobra"

	"videoflix/internal/daemonrun"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the transcode worker pool in the foreground",
		Long: "Run transcode workers until interrupted. Jobs left running by a previous\n" +
			"worker with the same --name are requeued on startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Worker name prefix (default host name)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	return cmd
}
