package searcher

import (
	"stacsearch/pkg/stac"
	"stacsearch/pkg/stacapi"
)

// SearchClient is the API surface the searcher needs
type SearchClient interface {
	Search(req *stacapi.SearchRequest) (*stacapi.SearchResponse, error)
	GetItem(collectionID, itemID string) (*stac.Item, error)
	GetCollection(collectionID string) (*stac.Collection, error)
}
