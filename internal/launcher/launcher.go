// Package launcher starts the editor with its remote debugging port open.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/paths"
)

// DebugPortFlag is the editor flag that opens the debugging endpoint.
const DebugPortFlag = "--remote-debugging-port"

// versionTimeout bounds one /json/version probe.
const versionTimeout = 2 * time.Second

// ErrNotFound is returned when no editor executable can be located.
var ErrNotFound = errors.New("editor executable not found")

// knownPaths lists per-platform install locations checked before PATH.
var knownPaths = map[string][]string{
	"darwin": {
		"/Applications/Cursor.app/Contents/MacOS/Cursor",
		"/Applications/Antigravity.app/Contents/MacOS/Electron",
		"~/Applications/Cursor.app/Contents/MacOS/Cursor",
	},
	"linux": {
		"/usr/bin/cursor",
		"/usr/share/cursor/cursor",
		"/opt/Cursor/cursor",
		"~/.local/bin/cursor",
		"/usr/bin/antigravity",
	},
	"windows": {
		`~\AppData\Local\Programs\cursor\Cursor.exe`,
		`~\AppData\Local\Programs\Antigravity\Antigravity.exe`,
	},
}

// Config describes one launch.
type Config struct {
	Executable string
	Args       []string
	Host       string
	Port       int
	// Wait bounds how long Launch waits for the debugging endpoint.
	Wait time.Duration
}

// BuildArgs constructs the command line for the editor:
//
//	<executable> --remote-debugging-port=<port> [args...]
//
// A debugging flag already present in Args is kept and no second one is added.
func BuildArgs(cfg Config) []string {
	args := make([]string, 0, len(cfg.Args)+1)
	hasFlag := false
	for _, a := range cfg.Args {
		if a == DebugPortFlag || strings.HasPrefix(a, DebugPortFlag+"=") {
			hasFlag = true
		}
	}
	if !hasFlag {
		args = append(args, DebugPortFlag+"="+strconv.Itoa(cfg.Port))
	}
	return append(args, cfg.Args...)
}

// Launcher spawns the editor and waits for its debugging endpoint.
type Launcher struct {
	cfg    Config
	client *http.Client
	spawn  func(name string, args []string) error
	poll   time.Duration
}

// New creates a Launcher.
func New(cfg Config) *Launcher {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9222
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 15 * time.Second
	}
	return &Launcher{
		cfg:    cfg,
		client: &http.Client{Timeout: versionTimeout},
		spawn:  spawnDetached,
		poll:   250 * time.Millisecond,
	}
}

// Available reports whether /json/version answers 200 on the configured port.
func (l *Launcher) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	u := "http://" + net.JoinHostPort(l.cfg.Host, strconv.Itoa(l.cfg.Port)) + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Launch starts the editor unless the endpoint is already up, then waits
// for /json/version to answer.
func (l *Launcher) Launch(ctx context.Context) error {
	if l.Available(ctx) {
		log.Info(log.CatLaunch, "Debugging port already open", "port", l.cfg.Port)
		return nil
	}

	exe, err := FindExecutable(l.cfg.Executable)
	if err != nil {
		return err
	}
	args := BuildArgs(l.cfg)
	log.Info(log.CatLaunch, "Launching editor", "executable", exe, "args", args)
	if err := l.spawn(exe, args); err != nil {
		return fmt.Errorf("starting %s: %w", exe, err)
	}
	return l.WaitReady(ctx)
}

// WaitReady polls the endpoint until it answers or Wait elapses.
func (l *Launcher) WaitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		if l.Available(ctx) {
			log.Info(log.CatLaunch, "Debugging port ready", "port", l.cfg.Port)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("debugging port %d not ready after %s", l.cfg.Port, l.cfg.Wait)
		case <-ticker.C:
		}
	}
}

// FindExecutable resolves the editor binary. An explicit path wins; otherwise
// the platform's known install locations are checked, then PATH.
func FindExecutable(explicit string) (string, error) {
	if explicit != "" {
		p := paths.Expand(explicit, "")
		if isExecutable(p) {
			return p, nil
		}
		if found, err := exec.LookPath(explicit); err == nil {
			return found, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, explicit)
	}
	for _, candidate := range knownPaths[runtime.GOOS] {
		p := paths.Expand(candidate, "")
		if isExecutable(p) {
			return p, nil
		}
	}
	for _, name := range []string{"cursor", "antigravity"} {
		if found, err := exec.LookPath(name); err == nil {
			return found, nil
		}
	}
	return "", ErrNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// spawnDetached starts the process and lets it outlive this one.
func spawnDetached(name string, args []string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
