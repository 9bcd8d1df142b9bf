package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Turn auto-accept on or off",
	Long:  `Flip the persisted on/off switch. A running 'autoaccept run' picks it up on its next tick.`,
	Args:  cobra.NoArgs,
	RunE:  runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

func runToggle(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	on, err := store.Settings().Toggle(cmd.Context(), cfg.Enabled)
	if err != nil {
		return err
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Auto-accept %s\n", state)
	return nil
}
