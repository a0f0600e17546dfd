package model

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestPhoto_IsLoadingPlaceholder(t *testing.T) {
	tests := []struct {
		name  string
		photo Photo
		want  bool
	}{
		{name: "placeholder", photo: LoadingPhoto(), want: true},
		{name: "real photo", photo: Photo{ID: 2014422}, want: false},
		{name: "zero id", photo: Photo{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.photo.IsLoadingPlaceholder(); got != tt.want {
				t.Errorf("IsLoadingPlaceholder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameItem(t *testing.T) {
	tests := []struct {
		name string
		a, b Photo
		want bool
	}{
		{name: "same id", a: Photo{ID: 1, Width: 10}, b: Photo{ID: 1, Width: 20}, want: true},
		{name: "different id", a: Photo{ID: 1}, b: Photo{ID: 2}, want: false},
		{name: "placeholder vs photo", a: LoadingPhoto(), b: Photo{ID: 1}, want: false},
		{name: "photo vs placeholder", a: Photo{ID: 1}, b: LoadingPhoto(), want: false},
		{name: "two placeholders", a: LoadingPhoto(), b: LoadingPhoto(), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameItem(tt.a, tt.b); got != tt.want {
				t.Errorf("SameItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhoto_BestThumbURL(t *testing.T) {
	tests := []struct {
		name  string
		photo Photo
		want  string
	}{
		{name: "no src", photo: Photo{ID: 1}, want: ""},
		{name: "medium preferred", photo: Photo{Src: &PhotoSrc{Medium: "m", Small: "s", Original: "o"}}, want: "m"},
		{name: "falls back to small", photo: Photo{Src: &PhotoSrc{Small: "s", Original: "o"}}, want: "s"},
		{name: "falls back to original", photo: Photo{Src: &PhotoSrc{Original: "o"}}, want: "o"},
		{name: "empty src", photo: Photo{Src: &PhotoSrc{}}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.photo.BestThumbURL(); got != tt.want {
				t.Errorf("BestThumbURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhoto_DecodeNullableFields(t *testing.T) {
	payload := `{
		"id": 2014422,
		"width": 3024,
		"height": 3024,
		"url": "https://www.pexels.com/photo/brown-rocks-during-golden-hour-2014422/",
		"photographer": "Joey Farina",
		"photographer_url": null,
		"photographer_id": 680589,
		"avg_color": "#978E82",
		"src": {"original": "https://images.pexels.com/photos/2014422/pexels-photo-2014422.jpeg"},
		"liked": false
	}`

	var p Photo
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if p.PhotographerName() != "Joey Farina" {
		t.Errorf("PhotographerName() = %q, want %q", p.PhotographerName(), "Joey Farina")
	}
	if p.PhotographerURL != nil {
		t.Errorf("PhotographerURL = %v, want nil", *p.PhotographerURL)
	}
	if p.PhotographerID == nil || *p.PhotographerID != 680589 {
		t.Errorf("PhotographerID = %v, want 680589", p.PhotographerID)
	}
	if p.IsLiked() {
		t.Error("IsLiked() = true, want false")
	}
	if p.BestThumbURL() == "" {
		t.Error("BestThumbURL() should fall back to original")
	}
}

func TestPhoto_PhotographerName(t *testing.T) {
	if got := (Photo{}).PhotographerName(); got != "" {
		t.Errorf("PhotographerName() = %q, want empty", got)
	}
	if got := (Photo{Photographer: strPtr("Ann")}).PhotographerName(); got != "Ann" {
		t.Errorf("PhotographerName() = %q, want Ann", got)
	}
}
