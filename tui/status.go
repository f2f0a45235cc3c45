package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/vnplayer/types"
)

// threadSummary is a compact per-character progress line:
// "Lumine L2 · Zhongli ✓ · Venti L1". Characters not met yet are left out.
func (m Model) threadSummary() string {
	st := m.engine.Story()
	var parts []string
	for _, c := range st.Cast {
		switch {
		case m.progress.IsCompleted(c.ID):
			parts = append(parts, c.Name+" ✓")
		case m.progress.Stage(c.ID) != types.StageUnset:
			parts = append(parts, c.Name+" "+m.progress.Stage(c.ID).String())
		}
	}
	return strings.Join(parts, " · ")
}

// renderStatusBar produces a full-width inverted status line showing the
// story title, completed threads, per-character stages and turn count.
func (m Model) renderStatusBar() string {
	st := m.engine.Story()

	left := fmt.Sprintf(" %s | Threads %d/%d", st.Title, len(m.progress.Completed), len(st.Cast))
	right := fmt.Sprintf("T:%d ", m.turns)
	switch {
	case m.busy:
		right = "… " + right
	case m.ended:
		right = "The End | " + right
	}

	// Show per-character stages if they fit.
	if summary := m.threadSummary(); summary != "" {
		candidate := left + " | " + summary
		if lipgloss.Width(candidate)+lipgloss.Width(right)+2 < m.width {
			left = candidate
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

// renderBook draws the character book overlay from the last snapshot.
func (m Model) renderBook() string {
	var b strings.Builder
	b.WriteString(styleBookTitle.Render("Character Book"))
	b.WriteString("\n\n")

	if len(m.book) == 0 {
		b.WriteString("You have not met anyone yet.")
	}
	for i, e := range m.book {
		if i > 0 {
			b.WriteString("\n\n")
		}
		status := "stage " + e.Stage.String()
		switch {
		case e.Completed:
			status = "completed"
		case e.Stage == types.StageUnset:
			status = "just met"
		}
		b.WriteString(speakerStyle(m.engine.Story(), types.Speaker(e.ID)).Render(e.Name))
		b.WriteString(fmt.Sprintf(", %s (%s)", e.Title, status))
		if e.Description != "" {
			b.WriteString("\n  " + e.Description)
		}
		quotes := e.Quotes()
		if len(quotes) > 3 {
			quotes = quotes[len(quotes)-3:]
		}
		for _, q := range quotes {
			b.WriteString(fmt.Sprintf("\n  %q", q))
		}
	}
	b.WriteString("\n\n" + styleSystem.Render("esc to close"))

	width := m.width - 2
	if width < 20 {
		width = 20
	}
	return styleBookBorder.Width(width).Render(b.String())
}
