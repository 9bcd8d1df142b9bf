package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zjrosen/autoaccept/internal/config"
	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/editor"
	"github.com/zjrosen/autoaccept/internal/entitlement"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/session"
	"github.com/zjrosen/autoaccept/internal/ui/notice"
	"github.com/zjrosen/autoaccept/internal/ui/status"
)

var (
	runTUI         bool
	runUpgradeBase string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the editor and accept agent prompts",
	Long: `Connect to the editor and keep accepting agent prompts until interrupted.

For Cursor, start the editor with a debugging port first ('autoaccept launch').
For Antigravity, set native_runner in the config file.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show the live status view")
	runCmd.Flags().StringVar(&runUpgradeBase, "upgrade-url", "", "base URL linked from the upgrade notice")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	profile, err := editor.Lookup(cfg.Editor)
	if err != nil {
		return err
	}

	userID, err := store.Settings().UserID(ctx)
	if err != nil {
		return err
	}
	upgradeURL := entitlement.UpgradeURL(runUpgradeBase, userID)

	opts := session.Options{
		Config:  cfg,
		Profile: profile,
		Store:   store,
	}
	if cfg.Entitlement.Endpoint != "" {
		opts.Verifier = entitlement.NewVerifier(cfg.Entitlement.Endpoint, cfg.Entitlement.CacheTTL, nil)
	}
	if profile.HasNative() && len(cfg.NativeRunner) > 0 {
		opts.Runner = editor.NewExecRunner(cfg.NativeRunner, 0)
	}

	var bridge status.Bridge
	if runTUI {
		opts.Prompter = &bridge
		opts.OnEvent = bridge.OnEvent
	} else {
		opts.Prompter = notice.NewTerminalPrompter(cmd.ErrOrStderr(), upgradeURL, notice.StyleDark, 80)
	}

	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}

	// The program is attached before the session starts so a prompt raised
	// on the first ticks reaches the view once it runs.
	var p *tea.Program
	if runTUI {
		model := status.New(sess, status.Options{UpgradeURL: upgradeURL, NoticeStyle: notice.StyleDark})
		p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		bridge.Attach(p)
	}

	if !sess.Start(ctx) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"No editor pages found yet. Start the editor with 'autoaccept launch'; autoaccept keeps looking.")
	}
	defer sess.Stop()

	watchConfig(sess)

	if p != nil {
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("status view: %w", err)
		}
		return nil
	}

	reportStatus(ctx, cmd.OutOrStdout(), sess, time.Second)
	return nil
}

// watchConfig re-applies the live-tunable settings when the config file changes.
func watchConfig(sess *session.Session) {
	if v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var next config.Config
		if err := v.Unmarshal(&next); err != nil {
			log.ErrorErr(log.CatConfig, "Reloading config failed", err, "path", e.Name)
			return
		}
		if err := next.Validate(); err != nil {
			log.ErrorErr(log.CatConfig, "Ignoring invalid config", err, "path", e.Name)
			return
		}
		sess.ApplyConfig(next)
	})
	v.WatchConfig()
}

type indicatorSource interface {
	Status() controlplane.Indicator
}

// reportStatus prints the status line whenever it changes, until ctx ends.
func reportStatus(ctx context.Context, w io.Writer, src indicatorSource, every time.Duration) {
	last := ""
	report := func() {
		if s := src.Status().String(); s != last {
			last = s
			_, _ = fmt.Fprintf(w, "%s  %s\n", time.Now().Format("15:04:05"), s)
		}
	}
	report()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report()
		}
	}
}
