// Package status provides the live status view for 'autoaccept run --tui'.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/autoaccept/internal/cdp"
	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/ui/notice"
	"github.com/zjrosen/autoaccept/internal/ui/styles"
)

const maxEvents = 8

// Source is the running session as seen by the view.
type Source interface {
	Status() controlplane.Indicator
	Pages() []cdp.PageInfo
	Toggle(ctx context.Context) (bool, error)
	DismissPrompt(ctx context.Context) error
}

// Options configures the Model.
type Options struct {
	// Refresh is how often the status is re-read. Defaults to 500ms.
	Refresh time.Duration
	// UpgradeURL is linked from the upgrade notice.
	UpgradeURL string
	// NoticeStyle is the glamour style for the notice.
	NoticeStyle string
}

// EventMsg carries a monitor event into the view.
type EventMsg struct{ Event controlplane.Event }

// UpgradeMsg asks the view to show the upgrade notice.
type UpgradeMsg struct{ Verdict classifier.StuckState }

type refreshMsg time.Time

type toggledMsg struct {
	enabled bool
	err     error
}

type dismissedMsg struct{ err error }

// Model holds the status view state.
type Model struct {
	src     Source
	opts    Options
	spinner spinner.Model

	width  int
	height int

	indicator controlplane.Indicator
	pages     []cdp.PageInfo
	events    []string
	notice    string
	err       error
}

// New creates a status view over src.
func New(src Source, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 500 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.StatusOnColor)
	m := Model{src: src, opts: opts, spinner: sp}
	m.refresh()
	return m
}

// Init starts the spinner and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scheduleRefresh())
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) refresh() {
	m.indicator = m.src.Status()
	m.pages = m.src.Pages()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "t":
			return m, m.toggle()
		case "d":
			if m.notice != "" {
				m.notice = ""
				return m, m.dismiss()
			}
		}

	case refreshMsg:
		m.refresh()
		return m, m.scheduleRefresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.pushEvent(describeEvent(msg.Event))
		m.refresh()

	case UpgradeMsg:
		m.notice = m.renderNotice(msg.Verdict)

	case toggledMsg:
		m.err = msg.err
		if msg.err == nil {
			m.pushEvent(fmt.Sprintf("%s auto-accept %s", time.Now().Format("15:04:05"), onOff(msg.enabled)))
		}
		m.refresh()

	case dismissedMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m Model) toggle() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		on, err := src.Toggle(context.Background())
		return toggledMsg{enabled: on, err: err}
	}
}

func (m Model) dismiss() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		return dismissedMsg{err: src.DismissPrompt(context.Background())}
	}
}

func (m *Model) pushEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

func (m Model) renderNotice(verdict classifier.StuckState) string {
	md := notice.Markdown(verdict, m.opts.UpgradeURL)
	out, err := notice.Render(md, m.opts.NoticeStyle, max(m.width-6, 20))
	if err != nil {
		log.Debug(log.CatUI, "Notice render failed", "error", err)
		return md
	}
	return strings.TrimRight(out, "\n")
}

// View renders the status panel.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	status := m.indicator.String()
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.StatusColor(status))
	labelStyle := lipgloss.NewStyle().Foreground(styles.TextDescriptionColor)
	mutedStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)

	var b strings.Builder
	head := statusStyle.Render(status)
	if status != "OFF" {
		head = m.spinner.View() + " " + head
	}
	b.WriteString(head)
	b.WriteString("\n\n")

	snap := m.indicator.Snapshot
	if m.indicator.CDP {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Pages:    %d connected", m.indicator.Connections)))
		b.WriteString("\n")
		for _, p := range m.pages {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s (port %d)", styles.TruncateString(p.ID, 24), p.Port)))
			b.WriteString("\n")
		}
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("State:    %s", snap.State)))
	if snap.Reason != "" {
		b.WriteString(mutedStyle.Render(" (" + snap.Reason + ")"))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("Clicks:   %d   Blocked: %d   Ticks: %d", snap.Clicks, snap.Blocked, snap.Ticks)))
	b.WriteString("\n")
	tier := "free"
	if snap.Entitled {
		tier = "pro"
	}
	b.WriteString(labelStyle.Render("Tier:     " + tier))
	b.WriteString("\n")

	if len(m.events) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Recent"))
		b.WriteString("\n")
		for _, e := range m.events {
			b.WriteString(mutedStyle.Render("  " + e))
			b.WriteString("\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.StatusOffColor).Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	hint := "t toggle • q quit"
	if m.notice != "" {
		hint = "t toggle • d dismiss notice • q quit"
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Italic(true).Render(hint))

	return styles.RenderPanel(b.String(), "autoaccept", status, m.width, m.height,
		styles.TextPrimaryColor, styles.BorderDefaultColor)
}

// SetSize updates the view dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

func describeEvent(e controlplane.Event) string {
	ts := e.Timestamp.Format("15:04:05")
	switch e.Type {
	case controlplane.EventStateChanged:
		return fmt.Sprintf("%s %s -> %s", ts, e.From, e.To)
	case controlplane.EventRecoveryStarted:
		return fmt.Sprintf("%s recovery attempt %d", ts, e.Attempt)
	case controlplane.EventRecoveryExhausted:
		return fmt.Sprintf("%s recovery gave up: %s", ts, e.Details)
	case controlplane.EventClicked:
		return fmt.Sprintf("%s clicked %s", ts, e.Details)
	}
	return fmt.Sprintf("%s %s %s", ts, e.Type, e.Details)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
