package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/matthall00/wikiscroll/internal/browser"
	"github.com/matthall00/wikiscroll/internal/config"
	"github.com/matthall00/wikiscroll/internal/feed"
	"github.com/matthall00/wikiscroll/internal/store"
	"github.com/matthall00/wikiscroll/internal/wiki"
	"github.com/matthall00/wikiscroll/internal/window"
)

type mode int

const (
	modeFeed mode = iota
	modeSearch
	modeSaved
	modeHistory
	modeInterests
	modeCategories
	modeHelp
)

type App struct {
	cfg    *config.Config
	orch   *feed.Orchestrator
	client *wiki.Client
	db     *store.Store
	log    *zap.Logger

	mode   mode
	width  int
	height int

	// Feed scroll state
	cursor     int
	overscroll int
	viewedID   int64

	cardExtent int
	overscan   int
	pullRows   int
	retryCap   int

	// Sub-components
	searchInput textinput.Model
	spinner     spinner.Model

	topics    []string
	interests map[string]bool
	savedIDs  map[int64]bool

	saved      []store.Article
	history    []store.Article
	listCursor int
	pickCursor int

	category   string
	searchTerm string
	notice     string
}

// RunOpts holds all collaborators for launching the TUI.
type RunOpts struct {
	Cfg          *config.Config
	Orchestrator *feed.Orchestrator
	Client       *wiki.Client
	Store        *store.Store
	Logger       *zap.Logger

	// Initial feed identity, when set from the command line.
	Category   string
	SearchTerm string
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search Wikipedia..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &App{
		cfg:         opts.Cfg,
		orch:        opts.Orchestrator,
		client:      opts.Client,
		db:          opts.Store,
		log:         log,
		cardExtent:  opts.Cfg.CardExtent(),
		overscan:    opts.Cfg.OverscanRows(),
		pullRows:    opts.Cfg.PullRows(),
		retryCap:    opts.Cfg.Retries(),
		topics:      opts.Cfg.Categories,
		interests:   make(map[string]bool),
		savedIDs:    make(map[int64]bool),
		searchInput: ti,
		spinner:     sp,
		category:    opts.Category,
		searchTerm:  opts.SearchTerm,
	}
}

func (a *App) Init() tea.Cmd {
	a.orch.Start()
	return tea.Batch(
		a.waitForFeed(),
		a.spinner.Tick,
		a.loadSavedCmd(),
		a.loadInterestsCmd(),
	)
}

// waitForFeed converts orchestrator updates into render messages.
func (a *App) waitForFeed() tea.Cmd {
	ch := a.orch.Updates()
	return func() tea.Msg {
		<-ch
		return feedChangedMsg{}
	}
}

func (a *App) loadSavedCmd() tea.Cmd {
	db := a.db
	return func() tea.Msg {
		articles, err := db.SavedArticles()
		return savedListMsg{articles: articles, err: err}
	}
}

func (a *App) loadHistoryCmd() tea.Cmd {
	db := a.db
	return func() tea.Msg {
		articles, err := db.History()
		return historyListMsg{articles: articles, err: err}
	}
}

func (a *App) loadInterestsCmd() tea.Cmd {
	db := a.db
	return func() tea.Msg {
		interests, err := db.Interests()
		names := make(map[string]bool, len(interests))
		if err == nil {
			for _, i := range interests {
				names[i.Name] = true
			}
		}
		return interestsMsg{names: names}
	}
}

func (a *App) searchCmd(term string) tea.Cmd {
	client := a.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		articles, err := client.Search(ctx, term, 20)
		return searchDoneMsg{term: term, articles: articles, err: err}
	}
}

func (a *App) toggleSaveCmd(art store.Article) tea.Cmd {
	orch := a.orch
	return func() tea.Msg {
		saved, err := orch.ToggleSave(art)
		return savedToggledMsg{id: art.ID, saved: saved, err: err}
	}
}

func (a *App) toggleInterestCmd(name string) tea.Cmd {
	orch := a.orch
	db := a.db
	return func() tea.Msg {
		if err := orch.ToggleInterest(name); err != nil {
			return noticeMsg{text: "storage unavailable"}
		}
		interests, err := db.Interests()
		names := make(map[string]bool, len(interests))
		if err == nil {
			for _, i := range interests {
				names[i.Name] = true
			}
		}
		return interestsMsg{names: names}
	}
}

func openArticleCmd(lang string, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := browser.OpenArticle(lang, id); err != nil {
			return noticeMsg{text: "could not open browser"}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		a.notice = ""
		return a.handleKey(msg)

	case tea.MouseMsg:
		if a.mode != modeFeed {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelDown:
			return a, a.moveCursor(1)
		case tea.MouseButtonWheelUp:
			return a, a.scrollUp()
		}
		return a, nil

	case feedChangedMsg:
		m := a.orch.Snapshot()
		if a.cursor >= len(m.Articles) {
			a.cursor = max(0, len(m.Articles)-1)
		}
		return a, tea.Batch(a.waitForFeed(), a.recordActive())

	case searchDoneMsg:
		if msg.err != nil {
			a.notice = "search failed"
			a.log.Warn("search failed", zap.String("term", msg.term), zap.Error(msg.err))
			return a, nil
		}
		a.searchTerm = msg.term
		a.orch.SetSearchResults(msg.articles)
		a.mode = modeFeed
		a.cursor = 0
		return a, nil

	case savedListMsg:
		if msg.err == nil {
			a.saved = msg.articles
			a.savedIDs = make(map[int64]bool, len(msg.articles))
			for _, x := range msg.articles {
				a.savedIDs[x.ID] = true
			}
		}
		return a, nil

	case historyListMsg:
		if msg.err == nil {
			a.history = msg.articles
		}
		return a, nil

	case historyClearedMsg:
		return a, a.loadHistoryCmd()

	case interestsMsg:
		a.interests = msg.names
		return a, nil

	case savedToggledMsg:
		if msg.err != nil {
			a.notice = "storage unavailable"
			return a, nil
		}
		a.savedIDs[msg.id] = msg.saved
		if msg.saved {
			a.notice = "saved"
		} else {
			a.notice = "removed"
		}
		return a, a.loadSavedCmd()

	case noticeMsg:
		a.notice = msg.text
		return a, nil

	case spinner.TickMsg:
		m := a.orch.Snapshot()
		if m.IsLoading || m.IsFetchingMore {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		// Keep ticking so the spinner resumes when a fetch starts.
		return a, a.spinner.Tick
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeSaved:
		return a.handleSavedKey(msg)
	case modeHistory:
		return a.handleHistoryKey(msg)
	case modeInterests:
		return a.handleInterestsKey(msg)
	case modeCategories:
		return a.handleCategoriesKey(msg)
	case modeHelp:
		switch msg.String() {
		case "?", "esc", "q":
			a.mode = modeFeed
		}
		return a, nil
	}
	return a.handleFeedKey(msg)
}

func (a *App) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		return a, a.moveCursor(1)
	case "k", "up":
		return a, a.scrollUp()
	case "g":
		a.cursor = 0
		a.overscroll = 0
		return a, a.recordActive()
	case "G":
		m := a.orch.Snapshot()
		a.cursor = max(0, len(m.Articles)-1)
		return a, tea.Batch(a.recordActive(), a.prefetch())
	case "r":
		a.orch.Refresh()
		return a, nil
	case "s":
		if art, ok := a.activeArticle(); ok {
			return a, a.toggleSaveCmd(art)
		}
		return a, nil
	case "o", "enter":
		if art, ok := a.activeArticle(); ok {
			return a, openArticleCmd(a.cfg.Lang(), art.ID)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.SetValue("")
		a.searchInput.Focus()
		return a, textinput.Blink
	case "c":
		a.mode = modeCategories
		a.pickCursor = 0
		return a, nil
	case "i":
		a.mode = modeInterests
		a.pickCursor = 0
		return a, a.loadInterestsCmd()
	case "b":
		a.mode = modeSaved
		a.listCursor = 0
		return a, a.loadSavedCmd()
	case "h":
		a.mode = modeHistory
		a.listCursor = 0
		return a, a.loadHistoryCmd()
	case "esc":
		if a.searchTerm != "" {
			a.searchTerm = ""
			a.cursor = 0
			a.orch.ClearSearch()
		}
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}
	return a, nil
}

// scrollUp moves the cursor up, or accumulates overscroll at the top of
// the feed until the pull-to-refresh threshold fires.
func (a *App) scrollUp() tea.Cmd {
	if a.cursor > 0 {
		a.cursor--
		a.overscroll = 0
		return a.recordActive()
	}
	a.overscroll++
	if window.PullThresholdReached(true, a.overscroll, a.pullRows) {
		a.overscroll = 0
		a.notice = "refreshing..."
		a.orch.Refresh()
	}
	return nil
}

func (a *App) moveCursor(delta int) tea.Cmd {
	m := a.orch.Snapshot()
	if len(m.Articles) == 0 {
		return nil
	}
	a.overscroll = 0
	a.cursor += delta
	if a.cursor < 0 {
		a.cursor = 0
	}
	if a.cursor >= len(m.Articles) {
		a.cursor = len(m.Articles) - 1
		// Pushing past the end explicitly requests the next page; this
		// also retries a page whose fetch previously failed.
		a.orch.LoadMore()
	}
	return tea.Batch(a.recordActive(), a.prefetch())
}

func (a *App) prefetch() tea.Cmd {
	a.orch.MaybePrefetch(a.cursor)
	return nil
}

func (a *App) activeArticle() (store.Article, bool) {
	m := a.orch.Snapshot()
	if a.cursor < 0 || a.cursor >= len(m.Articles) {
		return store.Article{}, false
	}
	return m.Articles[a.cursor], true
}

// recordActive tracks the currently visible article into history, once
// per article.
func (a *App) recordActive() tea.Cmd {
	art, ok := a.activeArticle()
	if !ok || art.ID == a.viewedID {
		return nil
	}
	a.viewedID = art.ID
	a.orch.RecordView(art)
	return nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeFeed
		a.searchInput.Blur()
		return a, nil
	case "enter":
		term := a.searchInput.Value()
		a.searchInput.Blur()
		a.mode = modeFeed
		if term == "" {
			return a, nil
		}
		a.notice = "searching..."
		return a, a.searchCmd(term)
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (a *App) handleSavedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b", "q":
		a.mode = modeFeed
		return a, nil
	case "j", "down":
		if a.listCursor < len(a.saved)-1 {
			a.listCursor++
		}
		return a, nil
	case "k", "up":
		if a.listCursor > 0 {
			a.listCursor--
		}
		return a, nil
	case "o", "enter":
		if a.listCursor < len(a.saved) {
			return a, openArticleCmd(a.cfg.Lang(), a.saved[a.listCursor].ID)
		}
		return a, nil
	case "u", "d":
		if a.listCursor < len(a.saved) {
			art := a.saved[a.listCursor]
			if a.listCursor > 0 {
				a.listCursor--
			}
			return a, a.toggleSaveCmd(art)
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "h", "q":
		a.mode = modeFeed
		return a, nil
	case "j", "down":
		if a.listCursor < len(a.history)-1 {
			a.listCursor++
		}
		return a, nil
	case "k", "up":
		if a.listCursor > 0 {
			a.listCursor--
		}
		return a, nil
	case "o", "enter":
		if a.listCursor < len(a.history) {
			return a, openArticleCmd(a.cfg.Lang(), a.history[a.listCursor].ID)
		}
		return a, nil
	case "x":
		db := a.db
		a.listCursor = 0
		return a, func() tea.Msg {
			return historyClearedMsg{err: db.ClearHistory()}
		}
	}
	return a, nil
}

func (a *App) handleInterestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "i", "q":
		a.mode = modeFeed
		return a, nil
	case "j", "down":
		if a.pickCursor < len(a.topics)-1 {
			a.pickCursor++
		}
		return a, nil
	case "k", "up":
		if a.pickCursor > 0 {
			a.pickCursor--
		}
		return a, nil
	case " ", "enter":
		if a.pickCursor < len(a.topics) {
			return a, a.toggleInterestCmd(a.topics[a.pickCursor])
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleCategoriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	options := len(a.topics) + 1 // leading "(random feed)" entry
	switch msg.String() {
	case "esc", "c", "q":
		a.mode = modeFeed
		return a, nil
	case "j", "down":
		if a.pickCursor < options-1 {
			a.pickCursor++
		}
		return a, nil
	case "k", "up":
		if a.pickCursor > 0 {
			a.pickCursor--
		}
		return a, nil
	case "enter":
		a.mode = modeFeed
		a.cursor = 0
		a.searchTerm = ""
		if a.pickCursor == 0 {
			a.category = ""
			a.orch.SelectCategory("")
		} else {
			a.category = a.topics[a.pickCursor-1]
			a.orch.SelectCategory(a.category)
		}
		return a, nil
	}
	return a, nil
}

func (a *App) feedLabel() string {
	switch {
	case a.searchTerm != "":
		return "search: " + a.searchTerm
	case a.category != "":
		return a.category
	case len(a.interests) > 0:
		return fmt.Sprintf("random · %d interests", len(a.interests))
	default:
		return "random"
	}
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  wikiscroll")
	}

	if a.mode == modeHelp {
		return a.renderHelp()
	}

	headerLeft := headerStyle.Render("wikiscroll")
	headerRight := headerDateStyle.Render(time.Now().Format("Jan 2"))
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	if a.mode == modeSearch {
		header = a.searchInput.View()
	}

	contentHeight := a.height - 2
	if contentHeight < 3 {
		contentHeight = 3
	}

	m := a.orch.Snapshot()

	var content string
	hints := "s save  o open  / search  c categories  ? help  q quit"
	switch a.mode {
	case modeSaved:
		content = a.renderSaved(contentHeight)
		hints = "o open  u unsave  esc back"
	case modeHistory:
		content = a.renderHistory(contentHeight)
		hints = "o open  x clear  esc back"
	case modeInterests:
		content = a.renderInterests(contentHeight)
		hints = "space toggle  esc back"
	case modeCategories:
		content = a.renderCategories(contentHeight)
		hints = "enter select  esc back"
	default:
		content = a.renderFeed(m, contentHeight)
	}

	notice := a.notice
	if m.Err != nil && notice == "" && a.mode == modeFeed {
		if m.Terminal {
			notice = errStyle.Render("feed unavailable")
		} else {
			notice = errStyle.Render(fmt.Sprintf("fetch failed (r to retry, %d/%d)", m.Retries, a.retryCap))
		}
	}
	status := renderStatusBar(len(m.Articles), a.feedLabel(), a.width, notice, hints)

	// Pad content to fill the space above the status bar.
	lines := contentHeight
	rendered := lipgloss.NewStyle().Height(lines).Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, rendered, status)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
