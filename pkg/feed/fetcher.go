package feed

import (
	"context"

	"github.com/Sternrassler/pexels-feed/pkg/model"
)

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go PageFetcher

// PageFetcher retrieves listing pages. *client.Client implements it.
//
// Implementations must honour ctx cancellation; the controller cancels the
// context of a request that a new search superseded.
type PageFetcher interface {
	// Curated returns a page of the default listing.
	Curated(ctx context.Context, page int) (*model.Page, error)

	// Search returns a page of results for a non-empty query.
	Search(ctx context.Context, query string, page int) (*model.Page, error)
}
