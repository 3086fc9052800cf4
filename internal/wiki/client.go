package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matthall00/wikiscroll/internal/store"
)

// ErrFetchFailed means the request could not be completed after the retry
// budget was spent.
var ErrFetchFailed = errors.New("wiki: fetch failed")

// Page is one fetch result. An empty Continue means the stream has no
// further pages.
type Page struct {
	Articles []store.Article
	Continue string
}

// Options tune the client. Zero values fall back to sane defaults.
type Options struct {
	BaseURL    string
	Language   string
	PageSize   int
	RateFloor  time.Duration // minimum spacing between request starts
	RetryMax   int           // retries after the first attempt; negative disables retries
	MaxBackoff time.Duration
	CacheTTL   time.Duration // 0 disables the response cache
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the MediaWiki action API and normalizes responses into
// articles. The rate limiter is owned by the client and shared by every
// call site, so concurrent streams cannot collectively exceed the spacing
// floor.
type Client struct {
	baseURL  string
	pageSize int
	retryMax int
	maxWait  time.Duration
	httpc    *http.Client
	limiter  *rate.Limiter
	cache    *responseCache
	log      *zap.Logger
}

func NewClient(opts Options) *Client {
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	base := opts.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	floor := opts.RateFloor
	if floor <= 0 {
		floor = 500 * time.Millisecond
	}
	retryMax := opts.RetryMax
	switch {
	case retryMax < 0:
		retryMax = 0
	case retryMax == 0:
		retryMax = 3
	}
	maxWait := opts.MaxBackoff
	if maxWait <= 0 {
		maxWait = 8 * time.Second
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var cache *responseCache
	if opts.CacheTTL > 0 {
		cache = newResponseCache(opts.CacheTTL)
	}
	return &Client{
		baseURL:  base,
		pageSize: pageSize,
		retryMax: retryMax,
		maxWait:  maxWait,
		httpc:    httpc,
		limiter:  rate.NewLimiter(rate.Every(floor), 1),
		cache:    cache,
		log:      log,
	}
}

// PageSize reports the batch size the client requests per page.
func (c *Client) PageSize() int { return c.pageSize }

// FetchPage fetches one page of the given stream. The empty cursor means
// the first page.
func (c *Client) FetchPage(ctx context.Context, q Query, cursor string) (Page, error) {
	key := cacheKey(q, cursor)
	if c.cache != nil {
		if page, ok := c.cache.get(key); ok {
			return page, nil
		}
	}

	params := c.pageParams(q, cursor, c.pageSize)
	page, err := c.fetch(ctx, params, q.Mode)
	if err != nil {
		return Page{}, err
	}
	if c.cache != nil {
		c.cache.put(key, page)
	}
	return page, nil
}

// FetchOnce runs a single uncursored request for the given identity,
// with no streaming intent: the continuation token is discarded.
func (c *Client) FetchOnce(ctx context.Context, q Query, limit int) ([]store.Article, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	page, err := c.fetch(ctx, c.pageParams(q, "", limit), q.Mode)
	if err != nil {
		return nil, err
	}
	return page.Articles, nil
}

// Search runs a one-shot full-text search.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]store.Article, error) {
	return c.FetchOnce(ctx, SearchFor(term), limit)
}

func (c *Client) pageParams(q Query, cursor string, limit int) url.Values {
	params := baseParams()
	switch q.Mode {
	case ModeCategory:
		params.Set("generator", "categorymembers")
		params.Set("gcmtitle", "Category:"+q.Param)
		params.Set("gcmnamespace", "0")
		params.Set("gcmlimit", strconv.Itoa(limit))
		if cursor != "" {
			params.Set("gcmcontinue", cursor)
		}
	case ModeSearch:
		params.Set("generator", "search")
		params.Set("gsrsearch", q.Param)
		params.Set("gsrnamespace", "0")
		params.Set("gsrlimit", strconv.Itoa(limit))
		if cursor != "" {
			params.Set("gsroffset", cursor)
		}
	default:
		params.Set("generator", "random")
		params.Set("grnnamespace", "0")
		params.Set("grnlimit", strconv.Itoa(limit))
		if cursor != "" {
			params.Set("grncontinue", cursor)
		}
	}
	return params
}

func baseParams() url.Values {
	return url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts|pageimages"},
		"exintro":     {"true"},
		"explaintext": {"true"},
		"piprop":      {"thumbnail"},
		"pithumbsize": {"400"},
	}
}

func (c *Client) fetch(ctx context.Context, params url.Values, mode Mode) (Page, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	if c.maxWait < bo.InitialInterval {
		bo.InitialInterval = c.maxWait
	}
	bo.Multiplier = 2
	bo.MaxInterval = c.maxWait
	bo.MaxElapsedTime = 0

	page, err := backoff.RetryWithData(func() (Page, error) {
		return c.doRequest(ctx, params, mode)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retryMax)), ctx))
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return page, nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values, mode Mode) (Page, error) {
	// Serializes request starts across every stream; completions may
	// still overlap.
	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, backoff.Permanent(err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Continue map[string]json.RawMessage `json:"continue"`
		Query    struct {
			Pages map[string]struct {
				PageID    int64  `json:"pageid"`
				Title     string `json:"title"`
				Extract   string `json:"extract"`
				Index     int    `json:"index"`
				Thumbnail *struct {
					Source string `json:"source"`
				} `json:"thumbnail"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Page{}, fmt.Errorf("decoding response: %w", err)
	}

	type ordered struct {
		article store.Article
		index   int
	}
	items := make([]ordered, 0, len(result.Query.Pages))
	for _, p := range result.Query.Pages {
		if p.PageID == 0 || p.Title == "" {
			continue
		}
		a := store.Article{
			ID:      p.PageID,
			Title:   p.Title,
			Excerpt: excerpt(p.Extract),
		}
		if p.Thumbnail != nil {
			a.Thumbnail = p.Thumbnail.Source
		}
		items = append(items, ordered{article: a, index: p.Index})
	}
	// The pages object is a map; restore the generator's ordering.
	sort.Slice(items, func(i, j int) bool {
		if items[i].index != items[j].index {
			return items[i].index < items[j].index
		}
		return items[i].article.ID < items[j].article.ID
	})

	page := Page{Articles: make([]store.Article, 0, len(items))}
	for _, it := range items {
		page.Articles = append(page.Articles, it.article)
	}

	page.Continue = continueToken(result.Continue, mode)
	// The random generator never runs dry; a short page is the only
	// termination signal it has.
	if mode == ModeRandom && len(page.Articles) < c.pageSize {
		page.Continue = ""
	}

	c.log.Debug("fetched page",
		zap.String("mode", mode.String()),
		zap.Int("articles", len(page.Articles)),
		zap.Bool("has_more", page.Continue != ""))
	return page, nil
}

func continueToken(cont map[string]json.RawMessage, mode Mode) string {
	var key string
	switch mode {
	case ModeCategory:
		key = "gcmcontinue"
	case ModeSearch:
		key = "gsroffset"
	default:
		key = "grncontinue"
	}
	raw, ok := cont[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= 200 {
		return s
	}
	return string(runes[:200]) + "..."
}
