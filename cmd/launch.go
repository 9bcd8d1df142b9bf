package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/autoaccept/internal/launcher"
)

var launchCmd = &cobra.Command{
	Use:   "launch [-- editor-args...]",
	Short: "Start the editor with remote debugging enabled",
	Long: `Start the editor with --remote-debugging-port so 'autoaccept run' can connect.
Does nothing if the port already answers.`,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	exe, err := launcher.FindExecutable(cfg.Launch.Executable)
	if err != nil {
		return fmt.Errorf("%w; set launch.executable in %s", err, configPath())
	}
	l := launcher.New(launcher.Config{
		Executable: exe,
		Args:       append(append([]string{}, cfg.Launch.Args...), args...),
		Host:       cfg.CDP.Host,
		Port:       cfg.Launch.Port,
		Wait:       cfg.Launch.Wait,
	})
	if err := l.Launch(cmd.Context()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Debugging port %d is ready. Run 'autoaccept run'.\n", cfg.Launch.Port)
	return nil
}
