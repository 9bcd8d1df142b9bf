package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderPanel draws content in a rounded box of the given outer size with
// leftTitle and rightTitle embedded in the top edge. Either title may be "".
func RenderPanel(content, leftTitle, rightTitle string, width, height int, titleColor, borderColor lipgloss.TerminalColor) string {
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(titleColor)

	inner := max(width-2, 1)
	rows := max(height-2, 1)

	body := lipgloss.NewStyle().Width(inner).Height(rows).MaxHeight(rows).Render(content)
	lines := strings.Split(body, "\n")

	var b strings.Builder
	b.WriteString(topBorder(leftTitle, rightTitle, inner, borderStyle, titleStyle))
	for i := range rows {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		if w := lipgloss.Width(line); w < inner {
			line += strings.Repeat(" ", inner-w)
		}
		b.WriteString("\n")
		b.WriteString(borderStyle.Render(borderVertical) + line + borderStyle.Render(borderVertical))
	}
	b.WriteString("\n")
	b.WriteString(borderStyle.Render(borderBottomLeft + strings.Repeat(borderHorizontal, inner) + borderBottomRight))
	return b.String()
}

// topBorder renders ╭─ Left ───── Right ─╮, dropping the right title and then
// truncating the left one when inner is too narrow.
func topBorder(left, right string, inner int, borderStyle, titleStyle lipgloss.Style) string {
	plain := borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, inner) + borderTopRight)
	if left == "" && right == "" {
		return plain
	}

	// "─ " + left + " " ... " " + right + " ─"
	need := 0
	if left != "" {
		need += lipgloss.Width(left) + 3
	}
	if right != "" {
		need += lipgloss.Width(right) + 3
	}
	if need+1 > inner && right != "" {
		right = ""
		need = lipgloss.Width(left) + 3
	}
	if left != "" && need+1 > inner {
		if inner < 5 {
			return plain
		}
		left = TruncateString(left, inner-4)
		need = lipgloss.Width(left) + 3
	}
	if left == "" && right == "" {
		return plain
	}

	var b strings.Builder
	b.WriteString(borderStyle.Render(borderTopLeft))
	if left != "" {
		b.WriteString(borderStyle.Render(borderHorizontal + " "))
		b.WriteString(titleStyle.Render(left))
		b.WriteString(borderStyle.Render(" "))
	}
	b.WriteString(borderStyle.Render(strings.Repeat(borderHorizontal, max(inner-need, 0))))
	if right != "" {
		b.WriteString(borderStyle.Render(" "))
		b.WriteString(titleStyle.Render(right))
		b.WriteString(borderStyle.Render(" " + borderHorizontal))
	}
	b.WriteString(borderStyle.Render(borderTopRight))
	return b.String()
}

// TruncateString truncates a string to fit within maxWidth, adding ellipsis if needed.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > maxWidth-3 {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "..."
}
