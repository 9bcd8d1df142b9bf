package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/autoaccept/internal/cdp"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List debuggable editor pages",
	Long:  `Probe the configured port range and list every page that exposes a debugger URL.`,
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	d := cdp.NewDiscoverer(cfg.CDP.Host, cfg.CDP.Ports(), cfg.CDP.DiscoveryTimeout)
	instances := d.Discover(cmd.Context())

	if len(instances) == 0 {
		_, _ = fmt.Fprintf(out, "No debuggable pages on %s:%d-%d\n", cfg.CDP.Host, cfg.CDP.PortStart, cfg.CDP.PortEnd)
		_, _ = fmt.Fprintln(out, "Start the editor with 'autoaccept launch'.")
		return nil
	}
	for _, inst := range instances {
		_, _ = fmt.Fprintf(out, "Port %d:\n", inst.Port)
		for _, p := range inst.Pages {
			_, _ = fmt.Fprintf(out, "  %-36s  %-8s  %s\n", p.ID, p.Type, p.Title)
		}
	}
	return nil
}
