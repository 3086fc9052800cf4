package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func randomBody(ids []int64, withContinue bool) string {
	pages := ""
	for i, id := range ids {
		if i > 0 {
			pages += ","
		}
		pages += fmt.Sprintf(`"%d":{"pageid":%d,"title":"Article %d","extract":"Extract %d","index":%d}`, id, id, id, id, i+1)
	}
	cont := ""
	if withContinue {
		cont = `"continue":{"grncontinue":"0.123|456","continue":"grncontinue||"},`
	}
	return fmt.Sprintf(`{%s"query":{"pages":{%s}}}`, cont, pages)
}

func testClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.RateFloor == 0 {
		opts.RateFloor = time.Millisecond
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 5 * time.Millisecond
	}
	return NewClient(opts)
}

func TestFetchPageNormalization(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":{
			"7":{"pageid":7,"title":"Seven","extract":"Short extract","index":2,"thumbnail":{"source":"https://img/7.jpg"}},
			"3":{"pageid":3,"title":"Three","extract":"","index":1}
		}}}`)
	}, Options{PageSize: 2})

	page, err := c.FetchPage(context.Background(), Random(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(page.Articles))
	}
	// Generator order restored via the index field.
	if page.Articles[0].ID != 3 || page.Articles[1].ID != 7 {
		t.Errorf("wrong order: %d, %d", page.Articles[0].ID, page.Articles[1].ID)
	}
	if page.Articles[1].Thumbnail != "https://img/7.jpg" {
		t.Errorf("thumbnail not mapped: %q", page.Articles[1].Thumbnail)
	}
}

func TestExcerptTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 250; i++ {
		long += "x"
	}
	got := excerpt(long)
	if len([]rune(got)) != 203 {
		t.Errorf("expected 200 runes + ellipsis, got %d", len([]rune(got)))
	}
	if excerpt("short") != "short" {
		t.Errorf("short extracts must pass through unchanged")
	}
}

func TestCategoryContinuation(t *testing.T) {
	var gotCursor string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCursor = r.URL.Query().Get("gcmcontinue")
		fmt.Fprint(w, `{"continue":{"gcmcontinue":"page|next|42"},"query":{"pages":{
			"1":{"pageid":1,"title":"A","extract":"a","index":1}
		}}}`)
	}, Options{PageSize: 10})

	page, err := c.FetchPage(context.Background(), Category("Physics"), "page|prev|41")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotCursor != "page|prev|41" {
		t.Errorf("cursor not forwarded, got %q", gotCursor)
	}
	if page.Continue != "page|next|42" {
		t.Errorf("continuation not extracted, got %q", page.Continue)
	}
}

func TestSearchNumericContinuation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"continue":{"gsroffset":10},"query":{"pages":{
			"1":{"pageid":1,"title":"A","extract":"a","index":1}
		}}}`)
	}, Options{})

	page, err := c.FetchPage(context.Background(), SearchFor("go"), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Continue != "10" {
		t.Errorf("numeric offset should become a string cursor, got %q", page.Continue)
	}
}

func TestRandomShortPageTerminates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Continue token present but only 2 of 5 requested articles.
		fmt.Fprint(w, randomBody([]int64{1, 2}, true))
	}, Options{PageSize: 5})

	page, err := c.FetchPage(context.Background(), Random(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Continue != "" {
		t.Errorf("short random page must end the stream, got cursor %q", page.Continue)
	}
}

func TestEmptyPageIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":{}}}`)
	}, Options{})

	page, err := c.FetchPage(context.Background(), Category("Empty"), "")
	if err != nil {
		t.Fatalf("an empty page is a terminal state, not an error: %v", err)
	}
	if len(page.Articles) != 0 || page.Continue != "" {
		t.Errorf("expected empty terminal page, got %+v", page)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, randomBody([]int64{1}, false))
	}, Options{PageSize: 1, RetryMax: 3})

	page, err := c.FetchPage(context.Background(), Random(), "")
	if err != nil {
		t.Fatalf("expected success after 3 failures, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
	if len(page.Articles) != 1 {
		t.Errorf("expected the successful page, got %d articles", len(page.Articles))
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Options{RetryMax: 3})

	_, err := c.FetchPage(context.Background(), Random(), "")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 1 attempt + 3 retries, got %d calls", calls)
	}
}

func TestFetchOnceCategory(t *testing.T) {
	var gotLimit, gotCursor string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("gcmlimit")
		gotCursor = r.URL.Query().Get("gcmcontinue")
		fmt.Fprint(w, `{"continue":{"gcmcontinue":"page|next|1"},"query":{"pages":{
			"1":{"pageid":1,"title":"A","extract":"a","index":1}
		}}}`)
	}, Options{PageSize: 5})

	articles, err := c.FetchOnce(context.Background(), Category("Physics"), 20)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != 1 {
		t.Fatalf("expected the category page, got %+v", articles)
	}
	if gotLimit != "20" {
		t.Errorf("one-shot must use its own limit, got %q", gotLimit)
	}
	if gotCursor != "" {
		t.Errorf("one-shot must not carry a cursor, got %q", gotCursor)
	}
}

func TestRetriesDisabled(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Options{RetryMax: -1})

	_, err := c.FetchPage(context.Background(), Random(), "")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("negative RetryMax must mean a single attempt, got %d calls", calls)
	}
}

func TestRequestSpacing(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		fmt.Fprint(w, randomBody([]int64{1}, false))
	}, Options{PageSize: 1, RateFloor: 60 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.FetchPage(context.Background(), Random(), "")
		}()
	}
	wg.Wait()

	if len(starts) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(starts))
	}
	gap := starts[1].Sub(starts[0])
	if gap < 0 {
		gap = -gap
	}
	if gap < 50*time.Millisecond {
		t.Errorf("request starts only %v apart, want >= ~60ms", gap)
	}
}

func TestResponseCache(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, randomBody([]int64{1}, false))
	}, Options{PageSize: 1, CacheTTL: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := c.FetchPage(context.Background(), Category("X"), "c1"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call for repeated (query, cursor), got %d", calls)
	}

	// A different cursor misses the cache.
	if _, err := c.FetchPage(context.Background(), Category("X"), "c2"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a cache miss for a new cursor, got %d calls", calls)
	}
}

func TestResponseCacheExpiry(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, randomBody([]int64{1}, false))
	}, Options{PageSize: 1, CacheTTL: 10 * time.Millisecond})

	c.FetchPage(context.Background(), Category("X"), "")
	time.Sleep(20 * time.Millisecond)
	c.FetchPage(context.Background(), Category("X"), "")

	if calls != 2 {
		t.Errorf("expired entries must never be served, got %d calls", calls)
	}
}
