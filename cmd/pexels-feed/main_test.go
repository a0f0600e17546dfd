package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Sternrassler/pexels-feed/internal/testutil"
	"github.com/Sternrassler/pexels-feed/pkg/feed"
	"github.com/Sternrassler/pexels-feed/pkg/feed/mocks"
	"github.com/Sternrassler/pexels-feed/pkg/model"
	"github.com/Sternrassler/pexels-feed/pkg/ratelimit"
)

const waitFor = 3 * time.Second

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// photoLines counts output lines printed for photo id.
func photoLines(out string, id string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "#"+id+" ") {
			n++
		}
	}
	return n
}

type fixedSnapshot feed.Snapshot

func (s fixedSnapshot) Snapshot() feed.Snapshot { return feed.Snapshot(s) }

func TestHealthEndpoint(t *testing.T) {
	router := newStatusRouter(fixedSnapshot{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		w := httptest.NewRecorder()
		newStatusRouter(fixedSnapshot{}, nil, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	router := newStatusRouter(fixedSnapshot{}, nil, redisClient)

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		mr.Close()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestStatusEndpoint(t *testing.T) {
	snap := fixedSnapshot{
		Query:   "forest",
		Page:    2,
		HasMore: true,
		Items:   60,
		Photos:  []model.Photo{{ID: 1}, {ID: 2}, model.LoadingPhoto()},
	}
	tracker := ratelimit.NewTracker(nil, zerolog.Nop())
	router := newStatusRouter(snap, tracker, nil)

	t.Run("without photos", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var got statusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "forest", got.Feed.Query)
		assert.Equal(t, 2, got.Feed.Page)
		assert.Equal(t, 60, got.Feed.Items)
		assert.True(t, got.Feed.HasMore)
		assert.Empty(t, got.Feed.Photos)
		require.NotNil(t, got.Quota)
		assert.Equal(t, 20000, got.Quota.Remaining)
	})

	t.Run("with photos", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status?photos=true", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got statusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got.Feed.Photos, 3)
		assert.True(t, got.Feed.Photos[2].IsLoadingPlaceholder())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newStatusRouter(fixedSnapshot{}, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	// Unlabelled metrics are exported from startup.
	assert.Contains(t, body, "pexels_feed_searches_total")
	assert.Contains(t, body, "pexels_feed_stale_results_total")
}

func TestServeStatus_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveStatus(ctx, "127.0.0.1:0", newStatusRouter(fixedSnapshot{}, nil, nil))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("status server did not stop")
	}
}

func pageOf(n int, ids []int, next bool) *model.Page {
	p := &model.Page{TotalResults: 100, PageNumber: n, PerPage: model.DefaultPerPage}
	for _, id := range ids {
		p.Photos = append(p.Photos, testutil.NewPhoto(id))
	}
	if next {
		p.NextPage = "https://api.pexels.com/v1/curated/?page=2"
	}
	return p
}

func newTestConsole(t *testing.T, fetcher feed.PageFetcher) (*console, *syncBuffer, *feed.Controller) {
	t.Helper()
	ctrl := feed.New(fetcher, feed.WithLogger(zerolog.Nop()), feed.WithDebounce(10*time.Millisecond))
	t.Cleanup(ctrl.Close)
	out := &syncBuffer{}
	return newConsole(ctrl, out), out, ctrl
}

// runConsole starts the console on a pipe and returns the writer side and
// the channel receiving Run's result.
func runConsole(t *testing.T, c *console, query string) (*io.PipeWriter, <-chan error) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), pr, query) }()
	return pw, done
}

func TestConsole_PrintsPhotosOnce(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	gomock.InOrder(
		fetcher.EXPECT().Curated(gomock.Any(), 1).Return(pageOf(1, []int{11, 12}, true), nil),
		fetcher.EXPECT().Curated(gomock.Any(), 2).Return(pageOf(2, []int{13}, false), nil),
	)

	c, out, _ := newTestConsole(t, fetcher)
	in, done := runConsole(t, c, "")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "/more for the next page")
	}, waitFor, 5*time.Millisecond)

	_, err := io.WriteString(in, "/more\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "end of results")
	}, waitFor, 5*time.Millisecond)

	_, err = io.WriteString(in, "/quit\n")
	require.NoError(t, err)
	require.NoError(t, <-done)

	text := out.String()
	assert.Equal(t, 1, photoLines(text, "11"))
	assert.Equal(t, 1, photoLines(text, "12"))
	assert.Equal(t, 1, photoLines(text, "13"))
	assert.Contains(t, text, "loading...")
}

func TestConsole_RetryAfterError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	gomock.InOrder(
		fetcher.EXPECT().Curated(gomock.Any(), 1).Return(nil, errors.New("connection refused")),
		fetcher.EXPECT().Curated(gomock.Any(), 1).Return(pageOf(1, []int{21}, false), nil),
	)

	c, out, ctrl := newTestConsole(t, fetcher)
	in, done := runConsole(t, c, "")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "error:")
	}, waitFor, 5*time.Millisecond)
	// The console acknowledges the error once it has shown it.
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Error == ""
	}, waitFor, 5*time.Millisecond)

	_, err := io.WriteString(in, "/retry\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return photoLines(out.String(), "21") == 1
	}, waitFor, 5*time.Millisecond)

	_, err = io.WriteString(in, "/retry\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "no failed request")
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
	assert.Equal(t, 1, strings.Count(out.String(), "error:"))
}

func TestConsole_SameQueryReprints(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	fetcher.EXPECT().Search(gomock.Any(), "cats", 1).Return(pageOf(1, []int{51, 52}, false), nil).Times(2)

	c, out, _ := newTestConsole(t, fetcher)
	in, done := runConsole(t, c, "cats")

	require.Eventually(t, func() bool {
		return photoLines(out.String(), "52") == 1
	}, waitFor, 5*time.Millisecond)

	_, err := io.WriteString(in, "/search cats\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		text := out.String()
		return photoLines(text, "51") == 2 && photoLines(text, "52") == 2
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestConsole_InitialQueryAndTypedSearch(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	gomock.InOrder(
		fetcher.EXPECT().Search(gomock.Any(), "forest", 1).Return(pageOf(1, []int{31, 32}, false), nil),
		fetcher.EXPECT().Search(gomock.Any(), "lake", 1).Return(pageOf(1, []int{41}, false), nil),
	)

	c, out, ctrl := newTestConsole(t, fetcher)
	in, done := runConsole(t, c, "forest")

	require.Eventually(t, func() bool {
		return photoLines(out.String(), "32") == 1
	}, waitFor, 5*time.Millisecond)

	_, err := io.WriteString(in, "lake\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return photoLines(out.String(), "41") == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, "lake", ctrl.Query())

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestConsole_Commands(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	c, out, _ := newTestConsole(t, fetcher)

	assert.True(t, c.handle("/retry"))
	assert.Contains(t, out.String(), "no failed request")

	assert.True(t, c.handle("/bogus"))
	assert.Contains(t, out.String(), "unknown command /bogus")

	assert.True(t, c.handle("/status"))
	assert.Contains(t, out.String(), `query="" page=0 items=0 has_more=true`)

	assert.False(t, c.handle("/quit"))
	assert.False(t, c.handle("  /exit  "))
}

func TestConsole_StopsOnCancel(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(mockCtrl)
	fetcher.EXPECT().Curated(gomock.Any(), 1).Return(pageOf(1, []int{1}, false), nil).AnyTimes()

	c, _, _ := newTestConsole(t, fetcher)
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, pr, "") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("console did not stop")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version", "--format", "json"})

	require.NoError(t, cmd.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version, info["version"])
	assert.NotEmpty(t, info["go"])
}

// isolate keeps a developer's config file and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PEXELS_API_KEY", "")
	t.Setenv("PEXELS_REDIS_ADDR", "")
}

func TestRootCommand_RequiresAPIKey(t *testing.T) {
	isolate(t)

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--status-addr", "", "--log-level", "off"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")
}

func TestRootCommand_BrowsesMockAPI(t *testing.T) {
	isolate(t)

	mock := testutil.NewMockPexels()
	defer mock.Close()

	pr, pw := io.Pipe()
	defer pw.Close()
	out := &syncBuffer{}

	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(pr)
	cmd.SetArgs([]string{
		"--api-key", "test-key",
		"--base-url", mock.URL(),
		"--status-addr", "",
		"--debounce", "10ms",
		"--log-level", "off",
	})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "-- 30 photos, /more for the next page")
	}, waitFor, 10*time.Millisecond)

	_, err := io.WriteString(pw, "/more\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "-- 31 photos, end of results")
	}, waitFor, 10*time.Millisecond)

	_, err = io.WriteString(pw, "/quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("command did not exit")
	}
	assert.Equal(t, 1, photoLines(out.String(), "1"))
	assert.Equal(t, 1, photoLines(out.String(), "31"))
	assert.Equal(t, 2, mock.GetRequestCount())
}
