package models

import (
	"math"
	"testing"
)

func TestPageRequestSkip(t *testing.T) {
	tests := []struct {
		name string
		req  PageRequest
		want int64
	}{
		{name: "first page", req: PageRequest{Page: 1, Limit: 10}, want: 0},
		{name: "third page", req: PageRequest{Page: 3, Limit: 20}, want: 40},
		{name: "zero page", req: PageRequest{Page: 0, Limit: 10}, want: 0},
		{name: "last representable page", req: PageRequest{Page: MaxPage(10), Limit: 10}, want: (math.MaxInt64 / 10) * 10},
		{name: "saturates", req: PageRequest{Page: math.MaxInt, Limit: 10}, want: math.MaxInt64},
		{name: "limit one", req: PageRequest{Page: math.MaxInt, Limit: 1}, want: math.MaxInt - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Skip(); got != tt.want {
				t.Fatalf("Skip() = %d want %d", got, tt.want)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage[int](nil, 25, PageRequest{Page: 2, Limit: 10})
	if page.Docs == nil || page.TotalPages != 3 || !page.HasNextPage || !page.HasPrevPage {
		t.Fatalf("unexpected page %+v", page)
	}
}
