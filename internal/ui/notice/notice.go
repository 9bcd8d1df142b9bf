// Package notice renders the upgrade notice shown when a stall needs
// recovery that the current tier does not include.
package notice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/log"
)

// Glamour style names.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// Markdown builds the notice body. upgradeURL may be empty.
func Markdown(verdict classifier.StuckState, upgradeURL string) string {
	var b strings.Builder
	b.WriteString("## Agent looks stuck\n\n")
	if verdict.Reason != "" {
		fmt.Fprintf(&b, "Detected: `%s`", verdict.Reason)
		if d := verdict.PendingFor(); d > 0 {
			fmt.Fprintf(&b, " for %s", d.Round(time.Second))
		}
		b.WriteString(".\n\n")
	}
	b.WriteString("Automatic recovery retries the stuck step up to three times ")
	b.WriteString("and keeps more than one editor window connected.\n\n")
	if upgradeURL != "" {
		fmt.Fprintf(&b, "Upgrade: %s\n\n", upgradeURL)
	}
	b.WriteString("_This notice is shown at most once per session._\n")
	return b.String()
}

// Render renders markdown for a terminal of the given width.
func Render(markdown, style string, width int) (string, error) {
	if style == "" {
		style = StyleDark
	}
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering notice: %w", err)
	}
	return out, nil
}

// TerminalPrompter writes the rendered notice to a terminal.
type TerminalPrompter struct {
	mu         sync.Mutex
	w          io.Writer
	upgradeURL string
	style      string
	width      int
}

// NewTerminalPrompter creates a prompter writing to w.
func NewTerminalPrompter(w io.Writer, upgradeURL, style string, width int) *TerminalPrompter {
	return &TerminalPrompter{w: w, upgradeURL: upgradeURL, style: style, width: width}
}

// ShowUpgrade writes the notice. Rendering failures fall back to plain markdown.
func (p *TerminalPrompter) ShowUpgrade(_ context.Context, verdict classifier.StuckState) {
	md := Markdown(verdict, p.upgradeURL)
	out, err := Render(md, p.style, p.width)
	if err != nil {
		log.Debug(log.CatUI, "Notice render failed", "error", err)
		out = md
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, out); err != nil {
		log.Debug(log.CatUI, "Notice write failed", "error", err)
	}
}
