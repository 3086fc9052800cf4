package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matthall00/wikiscroll/internal/store"
)

func (a *App) renderSaved(height int) string {
	title := headerStyle.Render("Saved articles")
	list := renderEntryList(a.saved, func(x store.Article) string {
		return "saved " + relativeTime(x.SavedAt)
	}, a.listCursor, height-2, a.width-2)
	return title + "\n\n" + list
}

func (a *App) renderHistory(height int) string {
	title := headerStyle.Render("History")
	list := renderEntryList(a.history, func(x store.Article) string {
		return "viewed " + relativeTime(x.ViewedAt)
	}, a.listCursor, height-2, a.width-2)
	return title + "\n\n" + list
}

// renderInterests shows the topic picker; checked topics bias the random
// feed.
func (a *App) renderInterests(height int) string {
	title := headerStyle.Render("Interests")
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for i, name := range a.topics {
		check := "[ ]"
		if a.interests[name] {
			check = pickerCheckStyle.Render("[x]")
		}
		line := fmt.Sprintf("  %s %s", check, name)
		if i == a.pickCursor {
			line = pickerActiveStyle.Render("> ") + check + " " + name
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpDimStyle.Render("  space toggle · esc back"))
	return b.String()
}

func (a *App) renderCategories(height int) string {
	title := headerStyle.Render("Categories")
	var b strings.Builder
	b.WriteString(title + "\n\n")
	options := append([]string{"(random feed)"}, a.topics...)
	for i, name := range options {
		line := "  " + name
		if i == a.pickCursor {
			line = pickerActiveStyle.Render("> " + name)
		}
		if (i == 0 && a.category == "") || (i > 0 && name == a.category) {
			line += " " + savedMarkStyle.Render("*")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpDimStyle.Render("  enter select · esc back"))
	return b.String()
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("wikiscroll")
	dim := helpDimStyle

	help := title + dim.Render(" — Keyboard Shortcuts") + "\n\n" +
		dim.Render("Feed") + "\n" +
		"  j/k, ↑/↓     Scroll the feed\n" +
		"  g/G           Jump to top / bottom\n" +
		"  k at top      Pull to refresh (hold it)\n" +
		"  r             Refresh feed\n\n" +
		dim.Render("Actions") + "\n" +
		"  s             Save / unsave article\n" +
		"  o, enter      Open article in browser\n" +
		"  /             Search Wikipedia\n" +
		"  c             Pick a category\n" +
		"  i             Edit interests\n\n" +
		dim.Render("Views") + "\n" +
		"  b             Saved articles\n" +
		"  h             History\n" +
		"  esc           Back to the feed\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}
