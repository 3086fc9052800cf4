package tui

import (
	"fmt"
	"strings"

	"github.com/matthall00/wikiscroll/internal/feed"
	"github.com/matthall00/wikiscroll/internal/store"
	"github.com/matthall00/wikiscroll/internal/window"
)

// renderFeed draws only the cards inside the virtualization window; the
// rest of the sequence stays unmounted.
func (a *App) renderFeed(m feed.ReadModel, height int) string {
	if m.IsLoading {
		return centerText(a.spinner.View()+" Loading feed...", a.width, height)
	}
	if len(m.Articles) == 0 {
		if m.Terminal {
			return centerText("Feed unavailable. Check your connection and restart.", a.width, height)
		}
		if m.Err != nil {
			return centerText(errStyle.Render(fmt.Sprintf("Error: %v  (r to retry, %d/%d)", m.Err, m.Retries, a.retryCap)), a.width, height)
		}
		return centerText("No articles", a.width, height)
	}

	extent := a.cardExtent
	scrollOffset := a.cursor * extent
	win := window.Visible(scrollOffset, height, extent, len(m.Articles), a.overscan)

	var b strings.Builder
	for i := win.Start; i < win.End; i++ {
		b.WriteString(a.renderCard(m.Articles[i], i == a.cursor))
		b.WriteString("\n")
	}

	if m.IsFetchingMore && win.End == len(m.Articles) {
		b.WriteString(a.spinner.View() + " loading more...")
	}

	// Trim to the rows between the active card and the bottom so the
	// cursor's card is always on screen.
	lines := strings.Split(b.String(), "\n")
	skip := (a.cursor - win.Start) * extent
	if skip > 0 && skip < len(lines) {
		lines = lines[skip:]
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderCard produces exactly cardExtent rows for one article.
func (a *App) renderCard(art store.Article, active bool) string {
	width := a.width - 4
	if width < 20 {
		width = 20
	}

	style := cardStyle
	if active {
		style = cardActiveStyle
	}

	title := cardTitleStyle.Render(truncateStr(art.Title, width-2))

	mark := ""
	if a.savedIDs[art.ID] {
		mark = " " + savedMarkStyle.Render("[saved]")
	}
	img := ""
	if art.Thumbnail != "" {
		img = cardMetaStyle.Render(" · img")
	}
	meta := cardMetaStyle.Render(fmt.Sprintf("#%d", art.ID)) + img + mark

	// Body rows: excerpt wrapped, padded so every card has equal extent.
	// A card occupies cardExtent rows: borders, title, meta, body and the
	// separator line the feed adds after each card.
	bodyRows := a.cardExtent - 5
	if bodyRows < 1 {
		bodyRows = 1
	}
	wrapped := wrapText(art.Excerpt, width-2)
	if len(wrapped) > bodyRows {
		wrapped = wrapped[:bodyRows]
	}
	for len(wrapped) < bodyRows {
		wrapped = append(wrapped, "")
	}
	body := cardExcerptStyle.Render(strings.Join(wrapped, "\n"))

	content := title + "\n" + meta + "\n" + body
	card := style.Width(a.width - 2).Render(content)

	// Normalize to the fixed extent so window math stays valid.
	rows := a.cardExtent - 1
	lines := strings.Split(card, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
