// Package paging owns the continuation-token state machine for one feed
// stream and assembles fetched pages into a deduplicated, order-stable
// article sequence.
package paging

import (
	"github.com/matthall00/wikiscroll/internal/store"
	"github.com/matthall00/wikiscroll/internal/wiki"
)

// Stream tracks cursor state for a single query identity. Changing
// identity means discarding the whole stream and starting a new one; a
// Stream never serves two identities. Streams are not self-synchronized —
// the orchestrator serializes access.
type Stream struct {
	query    wiki.Query
	cursor   string
	started  bool
	fetching bool
	hasMore  bool

	seq   []store.Article
	index map[int64]int // article id -> position in seq
}

func NewStream(q wiki.Query) *Stream {
	return &Stream{
		query:   q,
		hasMore: true,
		index:   make(map[int64]int),
	}
}

func (s *Stream) Query() wiki.Query { return s.query }

// CanFetch reports whether a "load next" is allowed: more pages exist and
// no fetch is already in flight.
func (s *Stream) CanFetch() bool { return s.hasMore && !s.fetching }

func (s *Stream) IsFetching() bool { return s.fetching }

func (s *Stream) HasMore() bool { return s.hasMore }

// Started reports whether at least one fetch has completed.
func (s *Stream) Started() bool { return s.started }

// BeginFetch transitions to the fetching state and returns the cursor to
// request. ok is false when a fetch is already running or the stream is
// exhausted.
func (s *Stream) BeginFetch() (cursor string, ok bool) {
	if !s.CanFetch() {
		return "", false
	}
	s.fetching = true
	return s.cursor, true
}

// CompleteFetch merges a fetched page and advances the cursor. An empty
// page with no continuation simply ends the stream; that is a legitimate
// terminal state, not an error.
func (s *Stream) CompleteFetch(p wiki.Page) {
	s.fetching = false
	s.started = true
	s.cursor = p.Continue
	s.hasMore = p.Continue != ""
	s.merge(p.Articles)
}

// FailFetch clears the in-flight flag and leaves hasMore untouched so the
// same page can be retried.
func (s *Stream) FailFetch() {
	s.fetching = false
}

// merge appends new articles and replaces duplicates in place: a repeated
// id keeps its original position but takes the newest content. The whole
// page is applied before anyone can observe the sequence, so it is never
// seen partially merged.
func (s *Stream) merge(articles []store.Article) {
	for _, a := range articles {
		if i, ok := s.index[a.ID]; ok {
			s.seq[i] = a
			continue
		}
		s.index[a.ID] = len(s.seq)
		s.seq = append(s.seq, a)
	}
}

// Articles returns a copy of the merged sequence.
func (s *Stream) Articles() []store.Article {
	out := make([]store.Article, len(s.seq))
	copy(out, s.seq)
	return out
}

func (s *Stream) Len() int { return len(s.seq) }
