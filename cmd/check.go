package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/autoaccept/internal/safety"
	"github.com/zjrosen/autoaccept/internal/session"
)

// errBanned makes 'check' exit non-zero for banned commands.
var errBanned = errors.New("command is banned")

var checkCmd = &cobra.Command{
	Use:   "check <command-text>",
	Short: "Test a command line against the banned patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	patterns, err := session.ResolveBanned(cmd.Context(), store, cfg.BannedCommands)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if pattern, banned := safety.NewMatcher(patterns).Match(text); banned {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "BLOCKED  %q matches %q\n", text, pattern)
		return errBanned
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ALLOWED  %q\n", text)
	return nil
}
