// Package feed composes the wiki client, the pagination stream and the
// persistent store into the single read model the presentation layer
// consumes.
package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matthall00/wikiscroll/internal/paging"
	"github.com/matthall00/wikiscroll/internal/store"
	"github.com/matthall00/wikiscroll/internal/wiki"
	"github.com/matthall00/wikiscroll/internal/window"
)

// Fetcher is the slice of the wiki client the orchestrator needs.
type Fetcher interface {
	FetchPage(ctx context.Context, q wiki.Query, cursor string) (wiki.Page, error)
}

// ReadModel is the snapshot the presentation layer renders from.
type ReadModel struct {
	Articles       []store.Article
	IsLoading      bool // first page of a fresh identity in flight
	IsFetchingMore bool
	HasMore        bool
	Err            error
	Retries        int
	Terminal       bool // retry budget spent; stop offering retry
}

// Options tune the orchestrator.
type Options struct {
	PreloadDistance int // remaining-items threshold that triggers prefetch
	RetryCap        int // user-visible retry attempts before terminal
	Logger          *zap.Logger
}

// Orchestrator owns the current query identity and reconciles category
// selection, search overrides, interest-weighted random selection,
// prefetch and refresh. All state is guarded by one mutex; fetches run in
// goroutines and re-enter under the lock, where completions for a
// superseded stream are discarded.
type Orchestrator struct {
	fetcher Fetcher
	store   *store.Store
	log     *zap.Logger
	rng     *rand.Rand

	preload  int
	retryCap int

	mu              sync.Mutex
	stream          *paging.Stream
	streamCancel    context.CancelFunc
	streamCtx       context.Context
	interestDerived bool
	category        string
	searchActive    bool
	searchResults   []store.Article
	prev            []store.Article // kept visible while a refresh is in flight
	loading         bool
	err             error
	retries         int

	updates chan struct{}
}

func New(f Fetcher, st *store.Store, opts Options) *Orchestrator {
	preload := opts.PreloadDistance
	if preload <= 0 {
		preload = 3
	}
	retryCap := opts.RetryCap
	if retryCap <= 0 {
		retryCap = 3
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:  f,
		store:    st,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		preload:  preload,
		retryCap: retryCap,
		updates:  make(chan struct{}, 1),
	}
}

// Updates signals after every state change; the TUI turns it into a
// render message. The channel is never closed.
func (o *Orchestrator) Updates() <-chan struct{} { return o.updates }

func (o *Orchestrator) notifyLocked() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}

// Snapshot returns the current read model. During a refresh the previous
// sequence stays visible until new data arrives.
func (o *Orchestrator) Snapshot() ReadModel {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := ReadModel{Err: o.err, Retries: o.retries, Terminal: o.retries >= o.retryCap}
	if o.searchActive {
		m.Articles = append(m.Articles, o.searchResults...)
		return m
	}
	if o.stream != nil {
		if o.stream.Len() > 0 {
			m.Articles = o.stream.Articles()
		} else if len(o.prev) > 0 {
			m.Articles = append(m.Articles, o.prev...)
		}
		m.HasMore = o.stream.HasMore()
		m.IsFetchingMore = o.stream.IsFetching() && o.stream.Started()
	}
	m.IsLoading = o.loading && len(m.Articles) == 0
	return m
}

// Start derives the initial identity and fetches the first page. Safe to
// call once at startup.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil || o.searchActive {
		return
	}
	o.replaceStreamLocked(o.ambientQueryLocked())
	o.startFetchLocked()
}

// SelectCategory switches the feed to a category stream; the empty string
// returns to the interest-weighted random feed.
func (o *Orchestrator) SelectCategory(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.category = name
	o.searchActive = false
	o.searchResults = nil
	o.prev = nil

	if name != "" {
		o.replaceStreamLocked(wiki.Category(name))
	} else {
		o.replaceStreamLocked(o.ambientQueryLocked())
	}
	o.startFetchLocked()
	o.notifyLocked()
}

// SetSearchResults overrides the feed with externally fetched search
// results. Any in-flight stream work is superseded.
func (o *Orchestrator) SetSearchResults(articles []store.Article) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dropStreamLocked()
	o.searchActive = true
	o.searchResults = articles
	o.prev = nil
	o.loading = false
	o.err = nil
	o.retries = 0
	o.notifyLocked()
}

// ClearSearch drops the search override and restarts the underlying feed.
func (o *Orchestrator) ClearSearch() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.searchActive {
		return
	}
	o.searchActive = false
	o.searchResults = nil
	if o.category != "" {
		o.replaceStreamLocked(wiki.Category(o.category))
	} else {
		o.replaceStreamLocked(o.ambientQueryLocked())
	}
	o.startFetchLocked()
	o.notifyLocked()
}

// LoadMore fetches the next page if one is available and none is in
// flight; otherwise it is a no-op.
func (o *Orchestrator) LoadMore() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.searchActive {
		return
	}
	if o.stream == nil {
		o.replaceStreamLocked(o.ambientQueryLocked())
	}
	o.startFetchLocked()
}

// MaybePrefetch starts the next page fetch when the visible index is
// within the preload distance of the end of the sequence.
func (o *Orchestrator) MaybePrefetch(visibleIndex int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.searchActive || o.stream == nil {
		return
	}
	if window.ShouldPrefetch(o.stream.Len(), visibleIndex, o.preload, o.stream.HasMore(), o.stream.IsFetching()) {
		o.startFetchLocked()
	}
}

// Refresh requeries the current identity from page one. The previous
// sequence remains visible until the new first page lands. A refresh
// while the search override is active is a no-op: those results are owned
// by the caller.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.searchActive {
		return
	}
	if o.stream != nil {
		o.prev = o.stream.Articles()
	}
	if o.category != "" {
		o.replaceStreamLocked(wiki.Category(o.category))
	} else {
		o.replaceStreamLocked(o.ambientQueryLocked())
	}
	o.startFetchLocked()
	o.notifyLocked()
}

// RecordView persists a view into history. Failures are logged and never
// surfaced; view tracking must not block or break rendering.
func (o *Orchestrator) RecordView(a store.Article) {
	go func() {
		if err := o.store.RecordView(a); err != nil {
			o.log.Warn("recording view", zap.Int64("id", a.ID), zap.Error(err))
		}
	}()
}

// ToggleSave saves the article, or removes it if already saved. Returns
// whether the article is saved afterwards.
func (o *Orchestrator) ToggleSave(a store.Article) (bool, error) {
	saved, err := o.store.IsSaved(a.ID)
	if err != nil {
		o.log.Warn("checking saved state", zap.Int64("id", a.ID), zap.Error(err))
		return false, err
	}
	if saved {
		if err := o.store.UnsaveArticle(a.ID); err != nil {
			o.log.Warn("unsaving", zap.Int64("id", a.ID), zap.Error(err))
			return true, err
		}
		return false, nil
	}
	if err := o.store.SaveArticle(a); err != nil {
		o.log.Warn("saving", zap.Int64("id", a.ID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// ToggleInterest adds or removes a topic from the interest set. The new
// set takes effect on the next first-page fetch of the random feed.
func (o *Orchestrator) ToggleInterest(name string) error {
	prefs, err := o.store.Preferences()
	if err != nil {
		o.log.Warn("reading preferences", zap.Error(err))
		return err
	}
	if prefs.HasInterest(name) {
		return o.store.RemoveInterest(name)
	}
	return o.store.AddInterest(name)
}

// ambientQueryLocked derives the identity used when no category or search
// is active: one recorded interest chosen at random, or the plain random
// stream when there are none (or the store is unavailable).
func (o *Orchestrator) ambientQueryLocked() wiki.Query {
	o.interestDerived = false
	interests, err := o.store.Interests()
	if err != nil {
		o.log.Warn("reading interests, using plain random", zap.Error(err))
		return wiki.Random()
	}
	if len(interests) == 0 {
		return wiki.Random()
	}
	pick := interests[o.rng.Intn(len(interests))]
	o.interestDerived = true
	return wiki.SearchFor(pick.Name)
}

func (o *Orchestrator) replaceStreamLocked(q wiki.Query) {
	o.dropStreamLocked()
	ctx, cancel := context.WithCancel(context.Background())
	o.streamCtx = ctx
	o.streamCancel = cancel
	o.stream = paging.NewStream(q)
	o.err = nil
	o.retries = 0
}

func (o *Orchestrator) dropStreamLocked() {
	if o.streamCancel != nil {
		o.streamCancel()
		o.streamCancel = nil
	}
	o.stream = nil
	o.streamCtx = nil
}

// startFetchLocked begins the next page fetch for the current stream. The
// completion re-checks stream identity: a response that belongs to a
// superseded stream is discarded, never merged.
func (o *Orchestrator) startFetchLocked() {
	st := o.stream
	if st == nil {
		return
	}
	cursor, ok := st.BeginFetch()
	if !ok {
		return
	}
	first := !st.Started()
	if first && st.Len() == 0 && len(o.prev) == 0 {
		o.loading = true
	}
	ctx := o.streamCtx
	o.notifyLocked()

	go func() {
		page, err := o.fetcher.FetchPage(ctx, st.Query(), cursor)

		o.mu.Lock()
		defer o.mu.Unlock()

		if o.stream != st {
			o.log.Debug("discarding stale response", zap.String("mode", st.Query().Mode.String()))
			return
		}

		if err != nil {
			st.FailFetch()
			o.loading = false
			o.err = err
			o.retries++
			o.log.Warn("page fetch failed",
				zap.String("mode", st.Query().Mode.String()),
				zap.Int("retries", o.retries),
				zap.Error(err))
			o.notifyLocked()
			return
		}

		st.CompleteFetch(page)
		o.loading = false
		o.err = nil
		o.retries = 0

		// An interest-weighted first page with zero results falls back
		// to the plain random stream for this attempt only. The previous
		// sequence stays visible until the fallback resolves.
		if first && o.interestDerived && st.Len() == 0 && o.category == "" && !o.searchActive {
			o.interestDerived = false
			o.replaceStreamLocked(wiki.Random())
			o.startFetchLocked()
			return
		}
		o.prev = nil
		o.notifyLocked()
	}()
}
