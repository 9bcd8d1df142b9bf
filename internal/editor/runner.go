package editor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/autoaccept/internal/log"
)

// Placeholder is replaced with the command identifier in runner argv templates.
const Placeholder = "{command}"

// ErrNoRunner is returned when no native runner is configured.
var ErrNoRunner = errors.New("no native command runner configured")

// CommandRunner invokes one editor-native command.
type CommandRunner interface {
	Execute(ctx context.Context, command string) error
}

// ExecRunner runs an external program for each command.
type ExecRunner struct {
	argv    []string
	timeout time.Duration
}

// NewExecRunner creates an ExecRunner from an argv template. Every argument
// equal to or containing Placeholder has it replaced with the command
// identifier; if no argument contains it, the identifier is appended.
func NewExecRunner(argv []string, timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ExecRunner{argv: argv, timeout: timeout}
}

// Args expands the argv template for command.
func (r *ExecRunner) Args(command string) []string {
	out := make([]string, 0, len(r.argv)+1)
	substituted := false
	for _, a := range r.argv {
		if strings.Contains(a, Placeholder) {
			a = strings.ReplaceAll(a, Placeholder, command)
			substituted = true
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, command)
	}
	return out
}

// Execute runs the program and waits for it to exit.
func (r *ExecRunner) Execute(ctx context.Context, command string) error {
	if len(r.argv) == 0 {
		return ErrNoRunner
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.Args(command)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NativeLoop invokes a profile's native commands on a fixed cadence.
type NativeLoop struct {
	runner   CommandRunner
	commands []string
	interval time.Duration
	allow    func(ctx context.Context) bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	executed int64
}

// NewNativeLoop creates a loop over commands. allow is consulted before each
// tick; nil always allows.
func NewNativeLoop(runner CommandRunner, commands []string, interval time.Duration, allow func(context.Context) bool) *NativeLoop {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if allow == nil {
		allow = func(context.Context) bool { return true }
	}
	return &NativeLoop{runner: runner, commands: commands, interval: interval, allow: allow}
}

// RunOnce invokes every command once. Failures mean nothing was pending and
// are only logged at debug level. It returns the number of successful commands.
func (l *NativeLoop) RunOnce(ctx context.Context) int {
	n := 0
	for _, cmd := range l.commands {
		if err := l.runner.Execute(ctx, cmd); err != nil {
			log.Debug(log.CatEditor, "Native command failed", "command", cmd, "error", err)
			continue
		}
		n++
	}
	l.mu.Lock()
	l.executed += int64(n)
	l.mu.Unlock()
	return n
}

// Executed returns the number of successful command invocations so far.
func (l *NativeLoop) Executed() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executed
}

// Start runs the loop until ctx ends or Stop is called.
func (l *NativeLoop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.done != nil {
		l.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	log.SafeGo("editor.nativeLoop", func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if l.allow(loopCtx) {
					l.RunOnce(loopCtx)
				}
			}
		}
	})
	log.Info(log.CatEditor, "Native loop started", "commands", l.commands, "interval", l.interval)
}

// Stop ends the loop. Safe to call multiple times.
func (l *NativeLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info(log.CatEditor, "Native loop stopped")
}
