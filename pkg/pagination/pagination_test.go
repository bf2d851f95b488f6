package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/copperline/arbiter/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 20},
		{"negative page clamped", pagination.PageRequest{Page: -2, PageSize: 10}, 1, 10},
		{"oversize clamped to max", pagination.PageRequest{Page: 3, PageSize: 500}, 3, 100},
		{"valid request untouched", pagination.PageRequest{Page: 2, PageSize: 50}, 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(testConfig())
			if tt.req.Page != tt.wantPage || tt.req.PageSize != tt.wantPageSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d",
					tt.req.Page, tt.req.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "fraud")
	values.Set("sort", "-created_at")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page/size = %d/%d, want 2/10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "fraud" {
		t.Errorf("Search = %v, want fraud", req.Search)
	}
	if len(req.Sort) != 1 || !req.Sort[0].Descending {
		t.Errorf("Sort = %+v, want one descending field", req.Sort)
	}
}

func TestSortFieldsUnmarshalString(t *testing.T) {
	var req pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"page":1,"page_size":10,"sort":"phase,-created_at"}`), &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(req.Sort) != 2 {
		t.Fatalf("Sort = %+v, want 2 fields", req.Sort)
	}
	if req.Sort[0].Descending || !req.Sort[1].Descending {
		t.Errorf("Sort directions = %+v", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	result := pagination.NewPageResult([]string{"a", "b"}, 45, 1, 20)

	if result.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", result.TotalPages)
	}
	if result.Total != 45 {
		t.Errorf("Total = %d, want 45", result.Total)
	}

	empty := pagination.NewPageResult[string](nil, 0, 1, 20)
	if empty.Data == nil {
		t.Error("nil data not normalized to empty slice")
	}
	if empty.TotalPages != 1 {
		t.Errorf("empty TotalPages = %d, want 1", empty.TotalPages)
	}
}
