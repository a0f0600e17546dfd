package pagination

import (
	"testing"

	"github.com/Sternrassler/pexels-feed/pkg/model"
)

func photos(ids ...int) []model.Photo {
	out := make([]model.Photo, len(ids))
	for i, id := range ids {
		out[i] = model.Photo{ID: id}
	}
	return out
}

func ids(list []model.Photo) []int {
	out := make([]int, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const next = "https://api.pexels.com/v1/curated/?page=2"

func TestMerge(t *testing.T) {
	L := model.LoadingID

	tests := []struct {
		name     string
		previous []model.Photo
		page     *model.Page
		want     []int
	}{
		{
			name: "first page with more",
			page: &model.Page{PageNumber: 1, PerPage: 3, Photos: photos(1, 2, 3), NextPage: next},
			want: []int{1, 2, 3, L},
		},
		{
			name: "first page is last page",
			page: &model.Page{PageNumber: 1, PerPage: 3, Photos: photos(1, 2, 3)},
			want: []int{1, 2, 3},
		},
		{
			name:     "first page replaces previous session",
			previous: append(photos(7, 8, 9), model.LoadingPhoto()),
			page:     &model.Page{PageNumber: 1, PerPage: 3, Photos: photos(1), NextPage: next},
			want:     []int{1, L},
		},
		{
			name:     "second page appends and keeps placeholder",
			previous: append(photos(1, 2), model.LoadingPhoto()),
			page:     &model.Page{PageNumber: 2, PerPage: 2, Photos: photos(3, 4), NextPage: next},
			want:     []int{1, 2, 3, 4, L},
		},
		{
			name:     "last page drops placeholder",
			previous: append(photos(1, 2), model.LoadingPhoto()),
			page:     &model.Page{PageNumber: 2, PerPage: 2, Photos: photos(3)},
			want:     []int{1, 2, 3},
		},
		{
			name:     "empty later page",
			previous: append(photos(1, 2), model.LoadingPhoto()),
			page:     &model.Page{PageNumber: 2, PerPage: 2},
			want:     []int{1, 2},
		},
		{
			name: "empty first page",
			page: &model.Page{PageNumber: 1, PerPage: 30},
			want: []int{},
		},
		{
			name:     "duplicates across pages are kept",
			previous: photos(1, 2),
			page:     &model.Page{PageNumber: 2, PerPage: 2, Photos: photos(2, 3)},
			want:     []int{1, 2, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.previous, tt.page)
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("Merge() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	previous := append(photos(1, 2), model.LoadingPhoto())
	before := ids(previous)

	page := &model.Page{PageNumber: 2, PerPage: 2, Photos: photos(3, 4), NextPage: next}
	merged := Merge(previous, page)
	merged[0].ID = 99

	if !equalIDs(ids(previous), before) {
		t.Errorf("previous list modified: got %v, want %v", ids(previous), before)
	}
	if page.Photos[0].ID != 3 {
		t.Errorf("page photos modified: got %d, want 3", page.Photos[0].ID)
	}
}

func TestMerge_PlaceholderAlwaysLast(t *testing.T) {
	var list []model.Photo
	for n := 1; n <= 5; n++ {
		page := &model.Page{PageNumber: n, PerPage: 2, Photos: photos(n*10, n*10+1)}
		if n < 5 {
			page.NextPage = next
		}
		list = Merge(list, page)

		for i, p := range list[:len(list)-1] {
			if p.IsLoadingPlaceholder() {
				t.Fatalf("page %d: placeholder at index %d is not last", n, i)
			}
		}
		if got, want := ContentLen(list), n*2; got != want {
			t.Fatalf("page %d: ContentLen() = %d, want %d", n, got, want)
		}
	}
	if HasPlaceholder(list) {
		t.Error("final page should not leave a placeholder")
	}
}

func TestStripPlaceholder(t *testing.T) {
	if got := StripPlaceholder(nil); len(got) != 0 {
		t.Errorf("StripPlaceholder(nil) = %v, want empty", got)
	}
	got := StripPlaceholder(append(photos(1), model.LoadingPhoto()))
	if !equalIDs(ids(got), []int{1}) {
		t.Errorf("StripPlaceholder() = %v, want [1]", ids(got))
	}
	got = StripPlaceholder(photos(1, 2))
	if !equalIDs(ids(got), []int{1, 2}) {
		t.Errorf("StripPlaceholder() = %v, want [1 2]", ids(got))
	}
}
