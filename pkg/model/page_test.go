package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPage_HasNext(t *testing.T) {
	var nilPage *Page
	if nilPage.HasNext() {
		t.Error("nil page should not report a next page")
	}

	p := &Page{PageNumber: 1, PerPage: 30}
	if p.HasNext() {
		t.Error("page without next_page should be the last page")
	}

	p.NextPage = "https://api.pexels.com/v1/curated/?page=2&per_page=30"
	if !p.HasNext() {
		t.Error("page with next_page should report more pages")
	}
}

func TestPage_DecodeLastPage(t *testing.T) {
	payload := `{"total_results": 2, "page": 1, "per_page": 30, "photos": [{"id": 1}, {"id": 2}]}`

	var p Page
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.HasNext() {
		t.Error("absent next_page should mean last page")
	}
	if len(p.Photos) != 2 {
		t.Errorf("len(Photos) = %d, want 2", len(p.Photos))
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestPage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		page    *Page
		wantErr string
	}{
		{name: "nil", page: nil, wantErr: "page is nil"},
		{name: "page zero", page: &Page{PageNumber: 0, PerPage: 30}, wantErr: "page number"},
		{name: "per page zero", page: &Page{PageNumber: 1, PerPage: 0}, wantErr: "per_page"},
		{name: "negative total", page: &Page{PageNumber: 1, PerPage: 30, TotalResults: -1}, wantErr: "total_results"},
		{
			name:    "reserved id",
			page:    &Page{PageNumber: 1, PerPage: 30, Photos: []Photo{{ID: 1}, LoadingPhoto()}},
			wantErr: "reserved id",
		},
		{name: "valid empty", page: &Page{PageNumber: 3, PerPage: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
