// Package model defines the Pexels photo and page types shared by the client,
// the page merger and the feed controller.
package model

// LoadingID is the reserved identity of the synthetic "loading" placeholder.
// Pexels photo IDs are always positive.
const LoadingID = -1

// Photo represents a single Pexels photo.
type Photo struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`

	// Attribution fields are nullable in the Pexels payload
	Photographer    *string `json:"photographer,omitempty"`
	PhotographerURL *string `json:"photographer_url,omitempty"`
	PhotographerID  *int64  `json:"photographer_id,omitempty"`
	AvgColor        *string `json:"avg_color,omitempty"`
	Alt             *string `json:"alt,omitempty"`

	Src   *PhotoSrc `json:"src,omitempty"`
	Liked *bool     `json:"liked,omitempty"`
}

// PhotoSrc holds the image URLs of a photo by size.
type PhotoSrc struct {
	Original  string `json:"original"`
	Large2x   string `json:"large2x"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Portrait  string `json:"portrait"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// LoadingPhoto returns the placeholder entry appended to a list while more
// pages are available.
func LoadingPhoto() Photo {
	return Photo{ID: LoadingID}
}

// IsLoadingPlaceholder reports whether p is the loading placeholder rather
// than a real photo.
func (p Photo) IsLoadingPlaceholder() bool {
	return p.ID == LoadingID
}

// PhotographerName returns the photographer or "" when unknown.
func (p Photo) PhotographerName() string {
	if p.Photographer == nil {
		return ""
	}
	return *p.Photographer
}

// IsLiked returns the liked flag, treating a missing value as false.
func (p Photo) IsLiked() bool {
	return p.Liked != nil && *p.Liked
}

// BestThumbURL returns the most suitable thumbnail URL, or "" if the photo
// carries no image URLs.
func (p Photo) BestThumbURL() string {
	if p.Src == nil {
		return ""
	}
	for _, u := range []string{p.Src.Medium, p.Src.Small, p.Src.Tiny, p.Src.Large, p.Src.Original} {
		if u != "" {
			return u
		}
	}
	return ""
}

// SameItem reports whether a and b denote the same list entry.
//
// A placeholder is never the same item as a real photo. Real photos are
// compared by ID alone.
func SameItem(a, b Photo) bool {
	if a.IsLoadingPlaceholder() || b.IsLoadingPlaceholder() {
		return a.IsLoadingPlaceholder() && b.IsLoadingPlaceholder()
	}
	return a.ID == b.ID
}
