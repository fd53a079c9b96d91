package stacapi

import (
	"stacsearch/pkg/query"
	"stacsearch/pkg/stac"
)

// SearchRequest is the JSON body sent to the search endpoint. The canonical
// filter document is inlined alongside the paging fields.
type SearchRequest struct {
	query.Search

	// Limit is the page size. Zero asks for a count only.
	Limit int `json:"limit"`

	// Page is the 1-based page number. Omitted on count-only requests.
	Page int `json:"page,omitempty"`
}

// SearchResponse is one page returned by the search endpoint
type SearchResponse struct {
	Type     string      `json:"type"`
	Features []stac.Item `json:"features"`
	Meta     Meta        `json:"meta"`
}

// Meta carries the paging context reported by the server
type Meta struct {
	Found    int `json:"found"`
	Returned int `json:"returned"`
	Limit    int `json:"limit"`
	Page     int `json:"page"`
}
