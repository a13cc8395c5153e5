package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/wirecall/pkg/client"
)

var (
	pingAddr  string
	pingValue int32
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Round-trip a value through a server's _ping probe",
	Long: `Send a value to a running wirecall server and report the echoed
response and its latency.

Examples:
  wirecall ping --addr localhost:7343
  wirecall ping --addr localhost:7343 --value 42`,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().StringVar(&pingAddr, "addr", "localhost:7343", "Server address (host:port)")
	pingCmd.Flags().Int32Var(&pingValue, "value", 1, "Value to echo")
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	c, err := client.Dial(pingAddr, client.FromConfig(cfg.Client))
	if err != nil {
		return fmt.Errorf("dial %s: %w", pingAddr, err)
	}
	defer c.Close()

	start := time.Now()
	echoed, err := c.Ping(pingValue)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	if echoed != pingValue {
		return fmt.Errorf("ping echoed %d, want %d", echoed, pingValue)
	}

	fmt.Printf("ping %s: value=%d time=%.2fms\n", pingAddr, echoed, float64(time.Since(start).Microseconds())/1000.0)
	return nil
}
