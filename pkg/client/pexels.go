package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pexels-feed/pkg/cache"
	"github.com/Sternrassler/pexels-feed/pkg/model"
)

// Listing endpoints.
const (
	CuratedPath = "/v1/curated"
	SearchPath  = "/v1/search"
)

// Curated fetches one page of the curated listing.
func (c *Client) Curated(ctx context.Context, page int) (*model.Page, error) {
	params, err := c.pageParams(page)
	if err != nil {
		return nil, err
	}
	return c.fetchPage(ctx, CuratedPath, params)
}

// Search fetches one page of search results for query.
func (c *Client) Search(ctx context.Context, query string, page int) (*model.Page, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	params, err := c.pageParams(page)
	if err != nil {
		return nil, err
	}
	params.Set("query", query)
	return c.fetchPage(ctx, SearchPath, params)
}

func (c *Client) pageParams(page int) (url.Values, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	return url.Values{
		"page":     []string{strconv.Itoa(page)},
		"per_page": []string{strconv.Itoa(c.config.PerPage)},
	}, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, params url.Values) (*model.Page, error) {
	start := time.Now()

	resp, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page model.Page
	decodeErr := json.NewDecoder(resp.Body).Decode(&page)
	if decodeErr == nil {
		decodeErr = page.Validate()
	}
	if decodeErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}

		// Never serve the same broken body from cache again.
		u, _ := url.Parse(c.endpointURL(endpoint, params))
		if err := c.cache.Delete(ctx, cache.KeyFromURL(u)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to evict undecodable response")
		}

		pexelsErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &DecodeError{Endpoint: endpoint, Err: decodeErr}
	}

	c.logger.Info().
		Str("endpoint", endpoint).
		Int("page", page.PageNumber).
		Int("photos", len(page.Photos)).
		Bool("has_next", page.HasNext()).
		Str("cache", resp.Header.Get(cache.HeaderCache)).
		Dur("duration", time.Since(start)).
		Msg("Fetched page")

	return &page, nil
}
