package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matthall00/wikiscroll/internal/store"
)

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return lines
}

// renderEntryList draws saved/history entries two lines each, windowed
// around the cursor the same way devtools list panes scroll.
func renderEntryList(articles []store.Article, stamp func(store.Article) string, cursor, height, width int) string {
	if len(articles) == 0 {
		return centerText("Nothing here yet", width, height)
	}

	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(articles) {
		end = len(articles)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		a := articles[i]
		var title string
		if i == cursor {
			title = itemSelectedStyle.Render("> " + truncateStr(a.Title, width-4))
		} else {
			title = itemTitleStyle.Render("  " + truncateStr(a.Title, width-4))
		}
		meta := "  " + itemTimeStyle.Render(stamp(a))
		b.WriteString(title + "\n" + meta)
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func centerText(s string, width, height int) string {
	// lipgloss.Width ignores ANSI sequences styled callers carry.
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
