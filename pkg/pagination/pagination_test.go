package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Request
	}{
		{"defaults", "", Request{Page: 1, Limit: 10}},
		{"explicit", "page=3&limit=20", Request{Page: 3, Limit: 20}},
		{"limit capped", "limit=500", Request{Page: 1, Limit: 50}},
		{"zero page", "page=0", Request{Page: 1, Limit: 10}},
		{"negative limit", "limit=-4", Request{Page: 1, Limit: 1}},
		{"garbage", "page=abc&limit=x", Request{Page: 1, Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			assert.Equal(t, tt.want, Parse(q, 10, 50))
		})
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Request{Page: 2, Limit: 10}, 25)
	assert.Equal(t, Meta{
		CurrentPage:  2,
		TotalPages:   3,
		TotalItems:   25,
		ItemsPerPage: 10,
		HasNextPage:  true,
		HasPrevPage:  true,
	}, m)

	empty := NewMeta(Request{Page: 1, Limit: 10}, 0)
	assert.Zero(t, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
	assert.False(t, empty.HasPrevPage)

	assert.Equal(t, 20, Request{Page: 3, Limit: 10}.Offset())
}
