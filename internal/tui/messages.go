package tui

import (
	"github.com/matthall00/wikiscroll/internal/store"
)

// feedChangedMsg arrives whenever the orchestrator's read model moved.
type feedChangedMsg struct{}

type searchDoneMsg struct {
	term     string
	articles []store.Article
	err      error
}

type savedListMsg struct {
	articles []store.Article
	err      error
}

type historyListMsg struct {
	articles []store.Article
	err      error
}

type historyClearedMsg struct {
	err error
}

type interestsMsg struct {
	names map[string]bool
}

type savedToggledMsg struct {
	id    int64
	saved bool
	err   error
}

type noticeMsg struct {
	text string
}
