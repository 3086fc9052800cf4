package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(articleCount int, feedLabel string, width int, notice string, hints string) string {
	left := fmt.Sprintf(" %d articles · %s", articleCount, feedLabel)
	if notice != "" {
		left += " · " + notice
	}

	right := " " + hints + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
