package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Sternrassler/pexels-feed/pkg/feed"
	"github.com/Sternrassler/pexels-feed/pkg/model"
	"github.com/Sternrassler/pexels-feed/pkg/observable"
	"github.com/Sternrassler/pexels-feed/pkg/pagination"
)

// feedDriver is the part of *feed.Controller the console uses.
type feedDriver interface {
	FetchMore() bool
	Search(query string)
	SetQuery(text string)
	ClearError()
	Snapshot() feed.Snapshot
	Photos() observable.Observable[[]model.Photo]
	Busy() observable.Observable[bool]
	Errors() observable.Observable[*feed.ErrorInfo]
}

// console is the line-oriented front end of the feed. It prints every photo
// once per session and reads commands and queries from its input.
type console struct {
	ctrl feedDriver

	mu      sync.Mutex
	out     io.Writer
	printed mapset.Set[int]
	first   int
	shown   int
	lastErr *feed.ErrorInfo
}

func newConsole(ctrl feedDriver, out io.Writer) *console {
	return &console{
		ctrl:    ctrl,
		out:     out,
		printed: mapset.NewSet[int](),
	}
}

// Run subscribes to the feed, loads the first page and processes input
// lines until /quit, end of input or ctx is done.
func (c *console) Run(ctx context.Context, in io.Reader, query string) error {
	unsubscribe := []func(){
		c.ctrl.Photos().Subscribe(c.onPhotos),
		c.ctrl.Busy().Subscribe(c.onBusy),
		c.ctrl.Errors().Subscribe(c.onError),
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	if query != "" {
		c.ctrl.Search(query)
	} else {
		c.ctrl.FetchMore()
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if !c.handle(line) {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether to keep reading.
func (c *console) handle(line string) bool {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")

	switch cmd {
	case "/quit", "/exit":
		return false
	case "/more":
		if !c.ctrl.FetchMore() {
			c.printf("nothing to load\n")
		}
	case "/retry":
		c.mu.Lock()
		pending := c.lastErr
		c.mu.Unlock()
		if pending == nil || pending.Retry == nil {
			c.printf("no failed request\n")
			return true
		}
		c.mu.Lock()
		c.lastErr = nil
		c.mu.Unlock()
		pending.Retry()
	case "/search":
		c.ctrl.Search(strings.TrimSpace(arg))
	case "/status":
		s := c.ctrl.Snapshot()
		c.printf("query=%q page=%d items=%d has_more=%t busy=%t\n", s.Query, s.Page, s.Items, s.HasMore, s.Busy)
	default:
		if strings.HasPrefix(cmd, "/") {
			c.printf("unknown command %s\n", cmd)
			return true
		}
		c.ctrl.SetQuery(line)
	}
	return true
}

func (c *console) onPhotos(list []model.Photo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Pages of one session only ever add photos. A list that starts
	// elsewhere or holds no more photos than the last one is a new session.
	n := pagination.ContentLen(list)
	if len(list) > 0 && (list[0].ID != c.first || n <= c.shown) {
		c.first = list[0].ID
		c.printed.Clear()
	}
	c.shown = n
	for _, p := range list {
		if p.IsLoadingPlaceholder() || !c.printed.Add(p.ID) {
			continue
		}
		fmt.Fprintf(c.out, "#%d  %s  %s\n", p.ID, p.PhotographerName(), p.BestThumbURL())
	}
	if pagination.HasPlaceholder(list) {
		fmt.Fprintf(c.out, "-- %d photos, /more for the next page\n", pagination.ContentLen(list))
	} else {
		fmt.Fprintf(c.out, "-- %d photos, end of results\n", len(list))
	}
}

func (c *console) onBusy(busy bool) {
	if busy {
		c.printf("loading...\n")
	}
}

// onError shows a failure once and acknowledges it. The failure stays
// available to /retry until it is used.
func (c *console) onError(info *feed.ErrorInfo) {
	if info == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = info
	fmt.Fprintf(c.out, "error: %v (/retry to try again)\n", info)
	c.mu.Unlock()

	c.ctrl.ClearError()
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
