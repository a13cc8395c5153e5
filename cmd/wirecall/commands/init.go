package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/wirecall/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample wirecall configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/wirecall/config.yaml. Use --config to specify a custom path.

Examples:
  # Initialize with default location
  wirecall init

  # Initialize with custom path
  wirecall init --config /etc/wirecall/config.yaml

  # Force overwrite existing config
  wirecall init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = filepath.Join(config.DefaultConfigDir(), "config.yaml")
	}

	if err := config.WriteSample(configPath, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: wirecall serve")
	fmt.Printf("  3. Or specify custom config: wirecall serve --config %s\n", configPath)
	return nil
}
