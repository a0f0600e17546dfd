package model

import "fmt"

// DefaultPerPage is the page size requested from Pexels.
const DefaultPerPage = 30

// MaxPerPage is the largest page size Pexels accepts.
const MaxPerPage = 80

// Page is one response unit of the curated or search listing.
type Page struct {
	TotalResults int     `json:"total_results"`
	PageNumber   int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Photos       []Photo `json:"photos"`

	// NextPage is the URL of the following page. Empty on the last page.
	NextPage string `json:"next_page,omitempty"`
}

// HasNext reports whether more pages follow this one.
func (p *Page) HasNext() bool {
	return p != nil && p.NextPage != ""
}

// Validate checks the pagination metadata of a decoded page.
func (p *Page) Validate() error {
	if p == nil {
		return fmt.Errorf("page is nil")
	}
	if p.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1 (got %d)", p.PageNumber)
	}
	if p.PerPage <= 0 {
		return fmt.Errorf("per_page must be > 0 (got %d)", p.PerPage)
	}
	if p.TotalResults < 0 {
		return fmt.Errorf("total_results must be >= 0 (got %d)", p.TotalResults)
	}
	for i, photo := range p.Photos {
		if photo.IsLoadingPlaceholder() {
			return fmt.Errorf("photo at index %d uses reserved id %d", i, LoadingID)
		}
	}
	return nil
}
