package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/guardian/internal/model"
)

const (
	defaultWidth = 72
	minWidth     = 40

	badgeWarning = "보호 필요"
	badgeInfo    = "정상 통과"
	emptyText    = "유튜브 활동을 감시하고 있습니다..."
)

// View renders the display.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n\n")
	b.WriteString(m.renderSection(width))
	b.WriteString("\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		text := emptyText
		if m.stopped {
			text = "감시가 종료되었습니다."
		}
		b.WriteString(emptyStyle.Width(width).Align(lipgloss.Center).Render("🛡️  " + text))
		b.WriteString("\n")
	} else {
		for _, e := range m.entries {
			b.WriteString(renderEntry(e, width))
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render("q: 종료"))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	brand := "🛡️  " + brandStyle.Render("SILVER ") + accentStyle.Render("GUARDIAN")

	var pill string
	switch {
	case m.stopped:
		pill = pillStyle.Render(stoppedDot + " 감시 중지됨")
	case m.link == LinkDown:
		pill = pillStyle.Render(stalledDot + " 연결 끊김 · 재연결 중")
	default:
		pill = pillStyle.Render(liveDot + " AI 분석 엔진 가동 중")
	}

	gap := width - lipgloss.Width(brand) - lipgloss.Width(pill)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, brand, strings.Repeat(" ", gap), pill)
}

func (m Model) renderSection(width int) string {
	title := sectionStyle.Render("실시간 분석 리포트")
	count := countStyle.Render(fmt.Sprintf("%d/%d", len(m.entries), m.cap))
	gap := width - lipgloss.Width(title) - lipgloss.Width(count)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + count
}

// renderEntry draws one entry: clock, headline and badge on the first line,
// the URL dimmed underneath.
func renderEntry(e model.LogEntry, width int) string {
	badge := infoBadge.Render(badgeInfo)
	headStyle := headlineStyle
	if e.Severity == model.SeverityWarning {
		badge = warningBadge.Render(badgeWarning)
		headStyle = warningStyle
	}

	clock := clockStyle.Render(e.Clock())
	room := width - lipgloss.Width(clock) - lipgloss.Width(badge) - 3
	headline := headStyle.Render(truncate(e.Headline(), room))
	gap := width - lipgloss.Width(clock) - lipgloss.Width(headline) - lipgloss.Width(badge) - 1
	if gap < 1 {
		gap = 1
	}
	first := clock + " " + headline + strings.Repeat(" ", gap) + badge

	indent := strings.Repeat(" ", lipgloss.Width(clock)+1)
	second := indent + urlStyle.Render(truncate(e.URL, width-len(indent)))
	return first + "\n" + second
}

// truncate shortens s to at most max display cells, marking the cut with "…".
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > max-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}
