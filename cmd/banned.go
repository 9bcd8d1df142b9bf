package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/autoaccept/internal/safety"
	"github.com/zjrosen/autoaccept/internal/session"
)

var bannedCmd = &cobra.Command{
	Use:   "banned",
	Short: "Manage banned command patterns",
	Long: `Banned patterns are never accepted automatically.

Plain text matches case-insensitively anywhere in the command.
/pattern/flags is a regular expression; an invalid one matches literally.
Changes apply to the next 'autoaccept run'.`,
}

var bannedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the active patterns",
	Args:  cobra.NoArgs,
	RunE:  runBannedList,
}

var bannedAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add a pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runBannedAdd,
}

var bannedResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop customizations and use the config file or built-in list",
	Args:  cobra.NoArgs,
	RunE:  runBannedReset,
}

func init() {
	bannedCmd.AddCommand(bannedListCmd, bannedAddCmd, bannedResetCmd)
	rootCmd.AddCommand(bannedCmd)
}

func runBannedList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	_, custom, err := store.Banned().List(cmd.Context())
	if err != nil {
		return err
	}
	patterns, err := session.ResolveBanned(cmd.Context(), store, cfg.BannedCommands)
	if err != nil {
		return err
	}

	source := "built-in"
	switch {
	case custom:
		source = "customized"
	case cfg.BannedCommands != nil:
		source = "config file"
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Banned patterns (%s):\n", source)
	if len(patterns) == 0 {
		_, _ = fmt.Fprintln(out, "  (none)")
	}
	for _, p := range patterns {
		kind := "text "
		if safety.IsRegex(p) {
			kind = "regex"
		}
		_, _ = fmt.Fprintf(out, "  %s  %s\n", kind, p)
	}
	return nil
}

func runBannedAdd(cmd *cobra.Command, args []string) error {
	pattern := args[0]
	if pattern == "" {
		return fmt.Errorf("pattern is empty")
	}
	if err := safety.Validate(pattern); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; it will match literally\n", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	base, err := session.ResolveBanned(cmd.Context(), store, cfg.BannedCommands)
	if err != nil {
		return err
	}
	if err := store.Banned().Add(cmd.Context(), pattern, base); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %q\n", pattern)
	return nil
}

func runBannedReset(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Banned().Reset(cmd.Context()); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Banned patterns reset")
	return nil
}
