// Package commands implements the CLI commands for the wirecall binary.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wirecall",
	Short: "Wirecall - length-prefixed binary RPC transport",
	Long: `Wirecall is a length-prefixed binary RPC transport: a synchronous
request/response client over an asynchronous wire protocol, and a dispatching
multi-worker server.

Use "wirecall [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/wirecall/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig loads the configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger configures the global logger from the loaded configuration.
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wirecall %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}
