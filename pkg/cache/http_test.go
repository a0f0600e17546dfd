package cache

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "valid response with all headers",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Expires":       []string{time.Now().Add(1 * time.Hour).Format(http.TimeFormat)},
					"Last-Modified": []string{time.Now().Add(-1 * time.Hour).Format(http.TimeFormat)},
					"Etag":          []string{`W/"abc123"`},
					"Content-Type":  []string{"application/json"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"page": 1}`))),
			},
		},
		{
			name: "response without expires header",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"page": 1}`))),
			},
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, entry.Data) {
				t.Errorf("restored body = %q, want %q", body, entry.Data)
			}
			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.ETag != tt.resp.Header.Get("ETag") {
				t.Errorf("ETag = %v, want %v", entry.ETag, tt.resp.Header.Get("ETag"))
			}
			if entry.IsExpired() {
				t.Error("fresh response should not produce an expired entry")
			}
		})
	}
}

func TestParseExpires(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		header  string
		wantMin time.Time
		wantMax time.Time
	}{
		{
			name:    "missing header falls back to default TTL",
			header:  "",
			wantMin: now.Add(DefaultTTL - time.Second),
			wantMax: now.Add(DefaultTTL + time.Second),
		},
		{
			name:    "malformed header falls back to default TTL",
			header:  "not a date",
			wantMin: now.Add(DefaultTTL - time.Second),
			wantMax: now.Add(DefaultTTL + time.Second),
		},
		{
			name:    "past header clamps to now",
			header:  now.Add(-time.Hour).Format(http.TimeFormat),
			wantMin: now.Add(-time.Second),
			wantMax: now.Add(time.Second),
		},
		{
			name:    "future header is used",
			header:  now.Add(time.Hour).Format(http.TimeFormat),
			wantMin: now.Add(time.Hour - 2*time.Second),
			wantMax: now.Add(time.Hour + time.Second),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Expires", tt.header)
			}
			got := ParseExpires(h)
			if got.Before(tt.wantMin) || got.After(tt.wantMax) {
				t.Errorf("ParseExpires() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.pexels.com/v1/curated?page=1", nil)
	entry := &Entry{
		Data:       []byte(`{"page":1}`),
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
	}

	resp := EntryToResponse(entry, req, "HIT")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(HeaderCache); got != "HIT" {
		t.Errorf("%s = %q, want HIT", HeaderCache, got)
	}
	if resp.Request != req {
		t.Error("Request not attached to response")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"page":1}` {
		t.Errorf("body = %q", body)
	}
	if entry.Headers.Get(HeaderCache) != "" {
		t.Error("EntryToResponse must not modify the entry headers")
	}
}

func TestConditionalHeaders(t *testing.T) {
	lastMod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		entry           *Entry
		wantConditional bool
		wantIfNoneMatch string
		wantIfModified  string
	}{
		{name: "nil entry", entry: nil},
		{name: "no validators", entry: &Entry{}},
		{
			name:            "etag preferred",
			entry:           &Entry{ETag: `"v1"`, LastModified: lastMod},
			wantConditional: true,
			wantIfNoneMatch: `"v1"`,
		},
		{
			name:            "last modified only",
			entry:           &Entry{LastModified: lastMod},
			wantConditional: true,
			wantIfModified:  lastMod.Format(http.TimeFormat),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.wantConditional {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.wantConditional)
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/curated", nil)
			AddConditionalHeaders(req, tt.entry)
			if got := req.Header.Get("If-None-Match"); got != tt.wantIfNoneMatch {
				t.Errorf("If-None-Match = %q, want %q", got, tt.wantIfNoneMatch)
			}
			if got := req.Header.Get("If-Modified-Since"); got != tt.wantIfModified {
				t.Errorf("If-Modified-Since = %q, want %q", got, tt.wantIfModified)
			}
		})
	}
}
