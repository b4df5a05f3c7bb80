package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/difflens/internal/engine"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/workerpool"
)

// workerCmd is the child side of the process-workers flag: the pool starts
// one per worker and speaks JSON lines over its stdin and stdout.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve diff-engine functions over stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		id := os.Getenv("DIFFLENS_WORKER_ID")
		log.Debug(log.CatEngine, "Worker process started", "workerID", id, "pid", os.Getpid())

		err := workerpool.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), engine.NewRegistry())
		log.Debug(log.CatEngine, "Worker process exiting", "workerID", id, "error", err)
		if ctx.Err() != nil {
			// Interrupted by the parent tearing the worker down.
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
