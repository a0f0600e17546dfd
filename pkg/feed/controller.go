package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/pexels-feed/pkg/client"
	"github.com/Sternrassler/pexels-feed/pkg/debounce"
	"github.com/Sternrassler/pexels-feed/pkg/logging"
	"github.com/Sternrassler/pexels-feed/pkg/model"
	"github.com/Sternrassler/pexels-feed/pkg/observable"
	"github.com/Sternrassler/pexels-feed/pkg/pagination"
)

// DefaultDebounce is the quiet period SetQuery waits before searching.
const DefaultDebounce = 300 * time.Millisecond

// Controller drives a paged photo feed: the curated listing while the query
// is empty, search results otherwise.
//
// All state is owned by a single event loop goroutine. Public methods are
// safe for concurrent use; they hand their work to the loop and wait for it.
// At most one page request is in flight at any time.
type Controller struct {
	fetcher  PageFetcher
	logger   zerolog.Logger
	delay    time.Duration
	debounce *debounce.Debouncer[string]

	cmds      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	// explicit counts Search calls. A debounced query scheduled before the
	// latest Search is dropped on delivery.
	explicit atomic.Uint64

	photos *observable.Value[[]model.Photo]
	busy   *observable.Value[bool]
	errs   *observable.Value[*ErrorInfo]

	// Owned by the loop.
	query     string
	lastPage  *model.Page
	list      []model.Photo
	inflight  *request
	nextToken uint64
	busyNow   bool
	lastErr   *ErrorInfo
}

// request is the fetch currently in flight.
type request struct {
	token   uint64
	page    int
	query   string
	started time.Time
	cancel  context.CancelFunc
}

// result is a fetch completion posted back to the loop.
type result struct {
	token uint64
	page  *model.Page
	err   error
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the SetQuery quiet period. Zero searches on the next
// timer tick.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New starts a controller on the curated listing. Nothing is fetched or
// published until the first FetchPage, FetchMore or Search call.
func New(fetcher PageFetcher, opts ...Option) *Controller {
	if fetcher == nil {
		panic("feed: page fetcher cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:  fetcher,
		logger:   logging.NewLogger("feed"),
		delay:    DefaultDebounce,
		debounce: debounce.New[string](),
		cmds:     make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		photos:   observable.NewValue[[]model.Photo](),
		busy:     observable.NewValue[bool](),
		errs:     observable.NewValue[*ErrorInfo](),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.quit:
			if c.inflight != nil {
				c.inflight.cancel()
				c.inflight = nil
			}
			return
		}
	}
}

// do runs fn on the loop and waits for it. It returns false once the
// controller is closed.
func (c *Controller) do(fn func()) bool {
	ran := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(ran) }:
	case <-c.done:
		return false
	}
	<-ran
	return true
}

// Photos publishes the merged list after every successful fetch. A new
// search does not publish an empty list; its first page replaces the old one.
func (c *Controller) Photos() observable.Observable[[]model.Photo] {
	return c.photos
}

// Busy is true while the first page of a session is loading.
func (c *Controller) Busy() observable.Observable[bool] {
	return c.busy
}

// Errors publishes each fetch failure. ClearError publishes nil.
func (c *Controller) Errors() observable.Observable[*ErrorInfo] {
	return c.errs
}

// FetchPage requests page n of the current session. It reports whether the
// request was accepted; it is ignored while another request is in flight,
// for n < 1 and after Close.
func (c *Controller) FetchPage(n int) bool {
	var accepted bool
	c.do(func() { accepted = c.startFetch(n) })
	return accepted
}

// FetchMore requests the page after the last one loaded, or the first page
// when nothing has loaded yet. It does nothing once the last page is in.
func (c *Controller) FetchMore() bool {
	var accepted bool
	c.do(func() {
		if !c.hasMore() {
			return
		}
		next := 1
		if c.lastPage != nil {
			next = c.lastPage.PageNumber + 1
		}
		accepted = c.startFetch(next)
	})
	return accepted
}

// Retry re-requests after a failure. Pages that failed were never merged,
// so this is FetchMore.
func (c *Controller) Retry() bool {
	return c.FetchMore()
}

// HasMore reports whether another page can be requested.
func (c *Controller) HasMore() bool {
	var more bool
	c.do(func() { more = c.hasMore() })
	return more
}

// ClearError publishes nil on Errors.
func (c *Controller) ClearError() {
	c.do(func() {
		c.lastErr = nil
		c.errs.Set(nil)
	})
}

// Search starts a new session for query immediately, cancelling any pending
// debounced query and abandoning the request in flight. An empty or blank
// query returns to the curated listing. Searching the current query again
// restarts it from page 1.
func (c *Controller) Search(query string) {
	c.explicit.Add(1)
	c.debounce.Cancel()
	c.do(func() { c.newSession(query) })
}

// SetQuery schedules a search for text after the debounce delay. Each call
// restarts the delay, so only the last text of a burst is searched.
func (c *Controller) SetQuery(text string) {
	gen := c.explicit.Load()
	c.debounce.Schedule(text, c.delay, func(q string) { c.typedSearch(gen, q) })
}

// typedSearch delivers a debounced query. gen is the Search count when the
// query was scheduled.
func (c *Controller) typedSearch(gen uint64, query string) {
	c.do(func() {
		if c.explicit.Load() != gen {
			c.logger.Debug().Str("query", query).Msg("Dropping debounced query superseded by search")
			return
		}
		c.newSession(query)
	})
}

// newSession must run on the loop.
func (c *Controller) newSession(query string) {
	if c.inflight != nil {
		c.logger.Debug().
			Int("page", c.inflight.page).
			Str("query", c.inflight.query).
			Msg("Abandoning request for new search")
		c.inflight.cancel()
		c.inflight = nil
	}

	c.query = strings.TrimSpace(query)
	c.lastPage = nil
	c.list = nil
	feedSearchesTotal.Inc()

	c.logger.Info().Str("query", c.query).Msg("Starting search")
	c.startFetch(1)
}

// Query returns the query of the current session.
func (c *Controller) Query() string {
	var q string
	c.do(func() { q = c.query })
	return q
}

// Snapshot is a point-in-time view of the controller state.
type Snapshot struct {
	Query    string        `json:"query"`
	Page     int           `json:"page"`
	HasMore  bool          `json:"has_more"`
	Busy     bool          `json:"busy"`
	InFlight bool          `json:"in_flight"`
	Items    int           `json:"items"`
	Error    string        `json:"error,omitempty"`
	Photos   []model.Photo `json:"photos"`
}

// Snapshot returns the current state. Photos is the merged list of the
// current session and is empty right after a new search.
func (c *Controller) Snapshot() Snapshot {
	var s Snapshot
	c.do(func() {
		s = Snapshot{
			Query:    c.query,
			HasMore:  c.hasMore(),
			Busy:     c.busyNow,
			InFlight: c.inflight != nil,
			Items:    pagination.ContentLen(c.list),
			Photos:   c.list,
		}
		if c.lastPage != nil {
			s.Page = c.lastPage.PageNumber
		}
		if c.lastErr != nil {
			s.Error = c.lastErr.Error()
		}
	})
	return s
}

// Close stops the controller. The request in flight is cancelled and its
// result discarded; later calls are no-ops. Subscribers are released.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.debounce.Stop()
		close(c.quit)
		<-c.done
		c.cancel()
		c.photos.Close()
		c.busy.Close()
		c.errs.Close()
		c.logger.Debug().Msg("Feed controller closed")
	})
}

func (c *Controller) hasMore() bool {
	return c.lastPage == nil || c.lastPage.HasNext()
}

// startFetch must run on the loop.
func (c *Controller) startFetch(n int) bool {
	if n < 1 || c.inflight != nil {
		feedRejectedFetchesTotal.Inc()
		c.logger.Debug().Int("page", n).Bool("in_flight", c.inflight != nil).Msg("Fetch rejected")
		return false
	}

	c.nextToken++
	ctx, cancel := context.WithCancel(c.ctx)
	req := &request{
		token:   c.nextToken,
		page:    n,
		query:   c.query,
		started: time.Now(),
		cancel:  cancel,
	}
	c.inflight = req

	if n == 1 {
		c.setBusy(true)
	}

	go c.fetch(ctx, req)
	return true
}

// fetch runs on its own goroutine and posts the outcome to the loop.
func (c *Controller) fetch(ctx context.Context, req *request) {
	var (
		page *model.Page
		err  error
	)
	if req.query == "" {
		page, err = c.fetcher.Curated(ctx, req.page)
	} else {
		page, err = c.fetcher.Search(ctx, req.query, req.page)
	}

	res := result{token: req.token, page: page, err: err}
	select {
	case c.cmds <- func() { c.complete(req, res) }:
	case <-c.done:
	}
}

func (c *Controller) complete(req *request, res result) {
	kind := kindOf(req.query)
	if c.inflight == nil || c.inflight.token != res.token {
		feedStaleResultsTotal.Inc()
		feedFetchesTotal.WithLabelValues(kind, "cancelled").Inc()
		c.logger.Debug().
			Int("page", req.page).
			Str("query", req.query).
			Msg("Dropping superseded result")
		return
	}
	c.inflight.cancel()
	c.inflight = nil
	feedFetchDuration.WithLabelValues(kind).Observe(time.Since(req.started).Seconds())

	if res.err == nil && res.page == nil {
		res.err = fmt.Errorf("%w: no page in response", client.ErrDecode)
	}

	switch {
	case res.err != nil && isCancellation(res.err):
		feedFetchesTotal.WithLabelValues(kind, "cancelled").Inc()
	case res.err != nil:
		feedFetchesTotal.WithLabelValues(kind, "error").Inc()
		c.logger.Warn().
			Err(res.err).
			Int("page", req.page).
			Str("query", req.query).
			Msg("Fetch failed")
		c.lastErr = &ErrorInfo{
			Err:   res.err,
			Page:  req.page,
			Query: req.query,
			Retry: c.Retry,
		}
		c.errs.Set(c.lastErr)
	default:
		feedFetchesTotal.WithLabelValues(kind, "success").Inc()
		c.list = pagination.Merge(c.list, res.page)
		c.lastPage = res.page
		feedItems.Set(float64(pagination.ContentLen(c.list)))
		c.logger.Debug().
			Int("page", res.page.PageNumber).
			Int("items", pagination.ContentLen(c.list)).
			Bool("has_more", res.page.HasNext()).
			Msg("Merged page")
		c.photos.Set(c.list)
	}

	c.setBusy(false)
}

func (c *Controller) setBusy(b bool) {
	c.busyNow = b
	c.busy.Set(b)
}

func kindOf(query string) string {
	if query == "" {
		return "curated"
	}
	return "search"
}
