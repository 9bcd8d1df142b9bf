package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsReset bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lifetime click statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "zero every counter")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if statsReset {
		if err := store.Stats().Reset(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Statistics reset")
		return nil
	}

	s, err := store.Stats().Get(cmd.Context())
	if err != nil {
		return err
	}
	last := "never"
	if !s.LastSessionAt.IsZero() {
		last = s.LastSessionAt.Local().Format("2006-01-02 15:04")
	}
	_, _ = fmt.Fprintf(out, "Clicks:       %d\n", s.Clicks)
	_, _ = fmt.Fprintf(out, "Blocked:      %d\n", s.Blocked)
	_, _ = fmt.Fprintf(out, "Sessions:     %d\n", s.Sessions)
	_, _ = fmt.Fprintf(out, "Last session: %s\n", last)
	return nil
}
