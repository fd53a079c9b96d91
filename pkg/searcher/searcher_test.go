package searcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacsearch/pkg/config"
	"stacsearch/pkg/errors"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/query"
	"stacsearch/pkg/ratelimit"
	"stacsearch/pkg/stac"
	"stacsearch/pkg/stacapi"
)

// fakeClient serves a fixed set of items and records every request
type fakeClient struct {
	total          int
	collection     string
	failOnPage     int
	searchRequests []*stacapi.SearchRequest
	itemRequests   []string
	collectionReqs []string
}

func newFakeClient(total int, collection string) *fakeClient {
	return &fakeClient{total: total, collection: collection}
}

func (f *fakeClient) item(i int) stac.Item {
	return stac.Item{
		Type:       "Feature",
		ID:         fmt.Sprintf("item-%d", i),
		Collection: f.collection,
	}
}

func (f *fakeClient) Search(req *stacapi.SearchRequest) (*stacapi.SearchResponse, error) {
	reqCopy := *req
	f.searchRequests = append(f.searchRequests, &reqCopy)

	if req.Limit == 0 {
		return &stacapi.SearchResponse{
			Type: "FeatureCollection",
			Meta: stacapi.Meta{Found: f.total, Returned: 0, Limit: 0, Page: 1},
		}, nil
	}

	if f.failOnPage > 0 && req.Page == f.failOnPage {
		return nil, &errors.Error{Type: errors.ErrorTypeNetwork, Message: "connection reset"}
	}

	start := (req.Page - 1) * req.Limit
	end := start + req.Limit
	if end > f.total {
		end = f.total
	}

	var features []stac.Item
	for i := start; i < end && i >= 0; i++ {
		features = append(features, f.item(i))
	}

	return &stacapi.SearchResponse{
		Type:     "FeatureCollection",
		Features: features,
		Meta:     stacapi.Meta{Found: f.total, Returned: len(features), Limit: req.Limit, Page: req.Page},
	}, nil
}

func (f *fakeClient) GetItem(collectionID, itemID string) (*stac.Item, error) {
	f.itemRequests = append(f.itemRequests, collectionID+"/"+itemID)
	item := stac.Item{Type: "Feature", ID: itemID, Collection: collectionID}
	return &item, nil
}

func (f *fakeClient) GetCollection(collectionID string) (*stac.Collection, error) {
	f.collectionReqs = append(f.collectionReqs, collectionID)
	return &stac.Collection{ID: collectionID, Title: "Test Collection"}, nil
}

func newTestSearcher(client SearchClient, pageSize int) *Searcher {
	limiter := ratelimit.NewTokenBucket(10000, 0)
	return NewWithClient(client, pageSize, limiter, logger.NewTestLogger())
}

func TestFoundIsCountOnly(t *testing.T) {
	client := newFakeClient(42, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	found, err := s.Found(query.Query{Collection: "sentinel-s2-l2a"})
	require.NoError(t, err)
	assert.Equal(t, 42, found)

	// Exactly one request, and it transfers no records
	require.Len(t, client.searchRequests, 1)
	assert.Equal(t, 0, client.searchRequests[0].Limit)
}

func TestFoundCountsLookupLocally(t *testing.T) {
	client := newFakeClient(0, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	found, err := s.Found(query.Query{
		IDs:        []string{"a", "b", "c"},
		Collection: "sentinel-s2-l2a",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, found)
	assert.Empty(t, client.searchRequests)
}

func TestSearchLimitStopsEarly(t *testing.T) {
	client := newFakeClient(6, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "sentinel-s2-l2a"}, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, ic.Len())
	assert.Equal(t, 6, ic.Found)
	assert.Equal(t, []string{"item-0", "item-1"}, ic.ItemIDs())

	// One count request and one page request, nothing more
	require.Len(t, client.searchRequests, 2)
	assert.Equal(t, 0, client.searchRequests[0].Limit)
	assert.Equal(t, 2, client.searchRequests[1].Limit)
	assert.Equal(t, 1, client.searchRequests[1].Page)
}

func TestSearchFetchesEverything(t *testing.T) {
	client := newFakeClient(250, "landsat-8-l1")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "landsat-8-l1"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 250, ic.Len())
	assert.Equal(t, 250, ic.Found)

	// No duplicates and stable ordering across page boundaries
	ids := ic.ItemIDs()
	seen := make(map[string]bool)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("item-%d", i), id)
		assert.False(t, seen[id], "duplicate item %s", id)
		seen[id] = true
	}

	// Count request plus ceil(250/100) pages
	assert.Len(t, client.searchRequests, 4)
}

func TestSearchLimitAboveFound(t *testing.T) {
	client := newFakeClient(5, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "sentinel-s2-l2a"}, 50)
	require.NoError(t, err)

	// Cannot fetch more than exist
	assert.Equal(t, 5, ic.Len())
}

func TestSearchNothingFound(t *testing.T) {
	client := newFakeClient(0, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "sentinel-s2-l2a"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, ic.Len())
	assert.Equal(t, 0, ic.Found)

	// Only the count request went out
	assert.Len(t, client.searchRequests, 1)
	assert.Empty(t, client.collectionReqs)
}

func TestSearchPageFailureDiscardsEverything(t *testing.T) {
	client := newFakeClient(250, "sentinel-s2-l2a")
	client.failOnPage = 2
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "sentinel-s2-l2a"}, 0)
	require.Error(t, err)
	assert.Nil(t, ic)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeNetwork, apiErr.Type)
}

func TestSearchResolvesCollectionsOnce(t *testing.T) {
	client := newFakeClient(250, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{Collection: "sentinel-s2-l2a"}, 0)
	require.NoError(t, err)

	// 250 items from the same collection, one metadata request
	assert.Equal(t, []string{"sentinel-s2-l2a"}, client.collectionReqs)
	require.Len(t, ic.Collections, 1)
	assert.Equal(t, "sentinel-s2-l2a", ic.Collections[0].ID)
}

func TestSearchLookupBypassesSearchEndpoint(t *testing.T) {
	client := newFakeClient(0, "sentinel-s2-l2a")
	s := newTestSearcher(client, 100)

	ic, err := s.Search(query.Query{
		IDs:        []string{"item-a", "item-b"},
		Collection: "sentinel-s2-l2a",
	}, 0)
	require.NoError(t, err)

	assert.Empty(t, client.searchRequests)
	assert.Equal(t, []string{
		"sentinel-s2-l2a/item-a",
		"sentinel-s2-l2a/item-b",
	}, client.itemRequests)

	assert.Equal(t, 2, ic.Len())
	assert.Equal(t, 2, ic.Found)
	assert.Equal(t, []string{"item-a", "item-b"}, ic.ItemIDs())
}

func TestSearchInvalidQuery(t *testing.T) {
	client := newFakeClient(0, "")
	s := newTestSearcher(client, 100)

	_, err := s.Search(query.Query{IDs: []string{"orphan"}}, 0)
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeInvalidQuery, apiErr.Type)
	assert.Empty(t, client.searchRequests)
}

func TestNewWithClientDefaults(t *testing.T) {
	s := NewWithClient(newFakeClient(0, ""), 0, nil, nil)

	assert.Equal(t, config.DefaultPageSize, s.pageSize)

	// The fallback limiter must enforce a real budget, not refill on every
	// check
	bucket, ok := s.rateLimiter.(*ratelimit.TokenBucket)
	require.True(t, ok)
	for i := 0; i < 60; i++ {
		require.True(t, bucket.Allow(), "request %d within budget", i)
	}
	assert.False(t, bucket.Allow())
}

func TestNextPage(t *testing.T) {
	tests := []struct {
		name          string
		fetched       int
		target        int
		lastReturned  int
		lastRequested int
		want          bool
	}{
		{"first request", 0, 10, -1, 10, true},
		{"target reached", 10, 10, 10, 10, false},
		{"target exceeded", 12, 10, 12, 12, false},
		{"mid fetch", 100, 250, 100, 100, true},
		{"short page ends fetch", 90, 250, 90, 100, false},
		{"empty page ends fetch", 100, 250, 0, 100, false},
		{"zero target", 0, 0, -1, 0, false},
		{"negative target", 0, -5, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextPage(tt.fetched, tt.target, tt.lastReturned, tt.lastRequested)
			assert.Equal(t, tt.want, got)
		})
	}
}
