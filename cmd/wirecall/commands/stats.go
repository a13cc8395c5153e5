package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/wirecall/pkg/client"
	"github.com/marmos91/wirecall/pkg/server"
)

var statsAddr string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch a server's _getStats snapshot",
	Long: `Query a running wirecall server for its ingress queue depth and
per-client counters.

Example:
  wirecall stats --addr localhost:7343`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "localhost:7343", "Server address (host:port)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	c, err := client.Dial(statsAddr, client.FromConfig(cfg.Client))
	if err != nil {
		return fmt.Errorf("dial %s: %w", statsAddr, err)
	}
	defer c.Close()

	stats, err := client.Call[bool, server.ServerStats](c, server.StatsHandler, true)
	if err != nil {
		return fmt.Errorf("getStats: %w", err)
	}

	fmt.Printf("ingress queue length: %d\n", stats.IngressQueueLength)
	fmt.Printf("clients: %d\n", len(stats.Clients))
	for _, cs := range stats.Clients {
		fmt.Printf("  %s  outgoing=%d  queries=%d  responses=%d\n",
			cs.Addr, cs.OutgoingQueueLength, cs.QueriesReceived, cs.ResponsesReturned)
	}
	return nil
}
