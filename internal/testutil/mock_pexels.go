// Package testutil provides testing utilities for the Pexels feed.
package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/pexels-feed/pkg/model"
)

// DefaultCuratedTotal is the size of the curated listing served by default.
const DefaultCuratedTotal = 31

// DefaultSearchTotal is the number of results served for any query by default.
const DefaultSearchTotal = 10

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPexels is a configurable mock Pexels API server.
//
// By default it serves generated curated and search listings with
// pagination, quota headers and ETags, and answers conditional requests
// with 304.
type MockPexels struct {
	server *httptest.Server

	mu           sync.RWMutex
	handlers     map[string]func(w http.ResponseWriter, r *http.Request)
	failures     []MockResponse
	curatedTotal int
	searchTotals map[string]int
	remaining    int
	delay        time.Duration

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	Requests          []string
}

// NewMockPexels creates and starts a new mock server.
func NewMockPexels() *MockPexels {
	mock := &MockPexels{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		curatedTotal: DefaultCuratedTotal,
		searchTotals: make(map[string]int),
		remaining:    19999,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockPexels) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	m.Requests = append(m.Requests, r.URL.RequestURI())
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}

	var failure *MockResponse
	if len(m.failures) > 0 {
		f := m.failures[0]
		m.failures = m.failures[1:]
		failure = &f
	}
	handler, exists := m.handlers[r.URL.Path]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case failure != nil:
		writeResponse(w, *failure)
	case exists:
		handler(w, r)
	default:
		m.listingHandler(w, r)
	}
}

// URL returns the mock server URL.
func (m *MockPexels) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPexels) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPexels) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPexels) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPexels) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		writeResponse(w, resp)
	})
}

// FailNext makes the next len(responses) requests, on any path, answer with
// the given responses in order.
func (m *MockPexels) FailNext(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, responses...)
}

// SetCuratedTotal sets the number of photos in the curated listing.
func (m *MockPexels) SetCuratedTotal(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.curatedTotal = n
}

// SetSearchTotal sets the number of results for query.
func (m *MockPexels) SetSearchTotal(query string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchTotals[query] = n
}

// SetRemaining sets the X-Ratelimit-Remaining value reported on responses.
func (m *MockPexels) SetRemaining(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = n
}

// SetDelay delays every response. A cancelled request aborts the delay.
func (m *MockPexels) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPexels) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPexels) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequests returns the request URIs seen so far.
func (m *MockPexels) GetRequests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Requests...)
}

// listingHandler serves /v1/curated and /v1/search from generated data.
func (m *MockPexels) listingHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	remaining := m.remaining
	curatedTotal := m.curatedTotal
	m.mu.RUnlock()

	m.setQuotaHeaders(w.Header(), remaining)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Authorization field missing"}`))
		return
	}

	query := r.URL.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = model.DefaultPerPage
	}

	var total, idBase int
	switch r.URL.Path {
	case "/v1/curated":
		total = curatedTotal
	case "/v1/search":
		q := query.Get("query")
		m.mu.RLock()
		n, ok := m.searchTotals[q]
		m.mu.RUnlock()
		if !ok {
			n = DefaultSearchTotal
		}
		total = n
		idBase = SearchIDBase(q)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Not found"}`))
		return
	}

	etag := fmt.Sprintf(`W/"%s-%d-%d-%d"`, r.URL.Path, page, perPage, total)
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body := BuildPage(r.URL.Path, query, page, perPage, total, idBase)
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (m *MockPexels) setQuotaHeaders(h http.Header, remaining int) {
	h.Set("X-Ratelimit-Limit", "20000")
	h.Set("X-Ratelimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

// SearchIDBase returns the offset of photo IDs generated for a query, so
// results of different queries are distinguishable.
func SearchIDBase(query string) int {
	h := fnv.New32a()
	h.Write([]byte(query))
	return 100000 * (1 + int(h.Sum32()%1000))
}

// BuildPage generates page number page of a listing with total photos whose
// IDs are idBase+1..idBase+total.
func BuildPage(path string, query url.Values, page, perPage, total, idBase int) model.Page {
	p := model.Page{
		TotalResults: total,
		PageNumber:   page,
		PerPage:      perPage,
		Photos:       []model.Photo{},
	}

	start := (page - 1) * perPage
	for i := start; i < start+perPage && i < total; i++ {
		p.Photos = append(p.Photos, NewPhoto(idBase+i+1))
	}

	if start+perPage < total {
		next := url.Values{}
		for k, v := range query {
			next[k] = v
		}
		next.Set("page", strconv.Itoa(page+1))
		next.Set("per_page", strconv.Itoa(perPage))
		p.NextPage = fmt.Sprintf("https://api.pexels.com%s/?%s", path, next.Encode())
	}
	return p
}

// NewPhoto builds a photo with the given ID and plausible attributes.
func NewPhoto(id int) model.Photo {
	photographer := fmt.Sprintf("Photographer %d", id%17)
	avg := "#978E82"
	return model.Photo{
		ID:           id,
		Width:        3024,
		Height:       4032,
		URL:          fmt.Sprintf("https://www.pexels.com/photo/%d/", id),
		Photographer: &photographer,
		AvgColor:     &avg,
		Src: &model.PhotoSrc{
			Original: fmt.Sprintf("https://images.pexels.com/photos/%d/pexels-photo-%d.jpeg", id, id),
			Medium:   fmt.Sprintf("https://images.pexels.com/photos/%d/pexels-photo-%d.jpeg?h=350", id, id),
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewUnauthorizedResponse creates a 401 Unauthorized response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "Invalid API key"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"page": 1, "photos": [`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}
