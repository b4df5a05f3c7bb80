package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/difflens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the difflens config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return err
	},
}

var configFlagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List feature flags and their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "FLAG\tENABLED\tDESCRIPTION")
		for _, f := range flagRegistry.Status() {
			_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\n", f.Name, f.Enabled, f.Description)
		}
		return tw.Flush()
	},
}

var configSetFlagCmd = &cobra.Command{
	Use:     "set-flag <name> <true|false>",
	Short:   "Turn a feature flag on or off in the config file",
	Example: "  difflens config set-flag process-workers true",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("flag value must be true or false, got %q", args[1])
		}
		path := configPath()
		if err := config.SaveFlag(path, args[0], enabled); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %t in %s\n", args[0], enabled, path)
		return err
	},
}

var configSetPoolCmd = &cobra.Command{
	Use:     "set-pool",
	Short:   "Update the worker pool section of the config file",
	Example: "  difflens config set-pool --max-workers 4 --timeout 30s",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pool := cfg.Pool
		fs := cmd.Flags()
		if fs.Changed("max-workers") {
			pool.MaxWorkers, _ = fs.GetInt("max-workers")
		}
		if fs.Changed("max-queue") {
			pool.MaxQueue, _ = fs.GetInt("max-queue")
		}
		if fs.Changed("timeout") {
			pool.Timeout, _ = fs.GetDuration("timeout")
		}
		if fs.Changed("auto-terminate") {
			pool.AutoTerminate, _ = fs.GetDuration("auto-terminate")
		}
		if fs.Changed("sweep-interval") {
			pool.SweepInterval, _ = fs.GetDuration("sweep-interval")
		}

		path := configPath()
		if err := config.SavePool(path, pool); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "updated pool in %s\n", path)
		return err
	},
}

var configForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configFlagsCmd, configSetFlagCmd, configSetPoolCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configSetPoolCmd.Flags().Int("max-workers", 0, "maximum live workers (0 = one per CPU)")
	configSetPoolCmd.Flags().Int("max-queue", 0, "maximum queued invocations (0 = unbounded)")
	configSetPoolCmd.Flags().Duration("timeout", 0, "per-invocation timeout")
	configSetPoolCmd.Flags().Duration("auto-terminate", 0, "idle time before a worker is reaped")
	configSetPoolCmd.Flags().Duration("sweep-interval", 0, "how often idle workers are checked")
}
