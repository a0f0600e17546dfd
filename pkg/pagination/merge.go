package pagination

import (
	"github.com/Sternrassler/pexels-feed/pkg/model"
)

// Merge combines a freshly fetched page with the previously accumulated list.
func Merge(previous []model.Photo, page *model.Page) []model.Photo {
	if page == nil {
		return StripPlaceholder(previous)
	}

	var retained []model.Photo
	if page.PageNumber > 1 {
		retained = StripPlaceholder(previous)
	}

	merged := make([]model.Photo, 0, len(retained)+len(page.Photos)+1)
	merged = append(merged, retained...)
	merged = append(merged, page.Photos...)

	if page.HasNext() {
		merged = append(merged, model.LoadingPhoto())
	}

	return merged
}

// StripPlaceholder returns a copy of list without its trailing loading
// placeholder.
func StripPlaceholder(list []model.Photo) []model.Photo {
	n := len(list)
	if n > 0 && list[n-1].IsLoadingPlaceholder() {
		n--
	}
	out := make([]model.Photo, n)
	copy(out, list[:n])
	return out
}

// HasPlaceholder reports whether list ends with the loading placeholder.
func HasPlaceholder(list []model.Photo) bool {
	return len(list) > 0 && list[len(list)-1].IsLoadingPlaceholder()
}

// ContentLen returns the number of real photos in list.
func ContentLen(list []model.Photo) int {
	if HasPlaceholder(list) {
		return len(list) - 1
	}
	return len(list)
}
