package cli

import (
	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/logging"
)

var (
	logLevel string
	stage    string
	region   string
)

var rootCmd = &cobra.Command{
	Use:   "stackfn",
	Short: "Serverless function stacks from declarative definitions",
	Long: `Stackfn turns declarative function definitions into deployable stack
templates. Templates are emitted in a single synchronous pass; function
bundling runs afterwards as deferred builds that patch the emitted
templates in place, and layers shared across stacks are routed through
live parameter reads instead of immutable exports.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&stage, "stage", "dev", "Deployment stage")
	rootCmd.PersistentFlags().StringVar(&region, "region", "us-east-1", "AWS region")

	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(paramCmd)
	rootCmd.AddCommand(versionCmd)
}
