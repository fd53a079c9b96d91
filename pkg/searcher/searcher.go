package searcher

import (
	"encoding/json"
	"time"

	"stacsearch/pkg/config"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/query"
	"stacsearch/pkg/ratelimit"
	"stacsearch/pkg/stac"
	"stacsearch/pkg/stacapi"
)

// Searcher executes normalized queries against the search API, paging
// through results until a limit or the server-reported total is satisfied.
// No state is retained between invocations; each call owns its result.
type Searcher struct {
	client      SearchClient
	pageSize    int
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// New creates a Searcher from the application configuration. An optional API
// token is sent on every request under the configured header.
func New(cfg *config.Config, token string) *Searcher {
	log := logger.GetLogger()

	client := stacapi.NewClientWithConfig(cfg.API.URL, cfg.API.Timeout, &cfg.Retry, log)
	if token != "" {
		client.SetHeader(cfg.API.TokenHeader, token)
	}

	return &Searcher{
		client:      client,
		pageSize:    cfg.API.PageSize,
		rateLimiter: ratelimit.New(cfg.RateLimit.Strategy, cfg.RateLimit.RequestsPerMinute),
		logger:      log,
	}
}

// NewWithClient creates a Searcher around an existing client
func NewWithClient(client SearchClient, pageSize int, limiter ratelimit.Limiter, log logger.Logger) *Searcher {
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	if limiter == nil {
		limiter = ratelimit.NewTokenBucket(60, time.Minute)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Searcher{
		client:      client,
		pageSize:    pageSize,
		rateLimiter: limiter,
		logger:      log,
	}
}

// Found returns the total number of records matching the query without
// transferring any of them. Direct ID lookups are counted locally.
func (s *Searcher) Found(q query.Query) (int, error) {
	search, err := q.Normalize()
	if err != nil {
		return 0, err
	}

	if search.IsLookup() {
		return len(search.IDs), nil
	}

	s.rateLimiter.Wait()
	resp, err := s.client.Search(&stacapi.SearchRequest{Search: *search, Limit: 0})
	if err != nil {
		return 0, err
	}

	s.logger.InfoWithFields("count-only search completed", map[string]interface{}{
		"found": resp.Meta.Found,
	})

	return resp.Meta.Found, nil
}

// Search fetches up to limit matching records into one ordered
// ItemCollection. A limit of zero or less fetches everything. A failed page
// aborts the whole fetch; no partial collection is returned.
func (s *Searcher) Search(q query.Query, limit int) (*stac.ItemCollection, error) {
	search, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	if search.IsLookup() {
		return s.lookup(search)
	}

	s.rateLimiter.Wait()
	countResp, err := s.client.Search(&stacapi.SearchRequest{Search: *search, Limit: 0})
	if err != nil {
		return nil, err
	}
	found := countResp.Meta.Found

	// Cannot return more records than exist
	target := found
	if limit > 0 && limit < found {
		target = limit
	}

	s.logger.InfoWithFields("starting paged fetch", map[string]interface{}{
		"found":  found,
		"target": target,
	})

	ic := stac.NewItemCollection()
	ic.Found = found
	ic.Search = marshalSearch(search)

	requestLimit := s.pageSize
	if target > 0 && target < requestLimit {
		requestLimit = target
	}

	page := 1
	lastReturned := -1
	for nextPage(ic.Len(), target, lastReturned, requestLimit) {
		s.rateLimiter.Wait()

		resp, err := s.client.Search(&stacapi.SearchRequest{
			Search: *search,
			Limit:  requestLimit,
			Page:   page,
		})
		if err != nil {
			// Discard everything fetched so far rather than returning a
			// silently truncated collection
			return nil, err
		}

		ic.Features = append(ic.Features, resp.Features...)
		if ic.Len() > target {
			ic.Features = ic.Features[:target]
		}
		lastReturned = len(resp.Features)

		s.logger.DebugWithFields("page fetched", map[string]interface{}{
			"page":     page,
			"returned": lastReturned,
			"fetched":  ic.Len(),
			"target":   target,
		})

		page++
	}

	if err := s.resolveCollections(ic); err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("fetch complete", map[string]interface{}{
		"items":       ic.Len(),
		"collections": len(ic.Collections),
	})

	return ic, nil
}

// lookup fetches each requested ID directly, bypassing the search body
func (s *Searcher) lookup(search *query.Search) (*stac.ItemCollection, error) {
	s.logger.InfoWithFields("direct item lookup", map[string]interface{}{
		"collection": search.Collection,
		"ids":        len(search.IDs),
	})

	ic := stac.NewItemCollection()
	ic.Found = len(search.IDs)
	ic.Search = marshalSearch(search)

	for _, id := range search.IDs {
		s.rateLimiter.Wait()

		item, err := s.client.GetItem(search.Collection, id)
		if err != nil {
			return nil, err
		}
		ic.Features = append(ic.Features, *item)
	}

	if err := s.resolveCollections(ic); err != nil {
		return nil, err
	}

	return ic, nil
}

// resolveCollections fetches metadata for each distinct collection the held
// items reference, exactly once per collection
func (s *Searcher) resolveCollections(ic *stac.ItemCollection) error {
	seen := make(map[string]bool)
	for _, item := range ic.Features {
		if item.Collection == "" || seen[item.Collection] {
			continue
		}
		seen[item.Collection] = true

		s.rateLimiter.Wait()
		collection, err := s.client.GetCollection(item.Collection)
		if err != nil {
			return err
		}
		ic.AddCollection(*collection)
	}
	return nil
}

// nextPage decides whether another page request should be issued.
// fetched is the number of records held so far, target the stopping bound
// (min of requested limit and server-reported total), lastReturned the size
// of the previous page (-1 before the first request) and lastRequested the
// page size that was asked for.
func nextPage(fetched, target, lastReturned, lastRequested int) bool {
	if target <= 0 {
		return false
	}
	if fetched >= target {
		return false
	}
	// A short page means the server ran out of results early
	if lastReturned >= 0 && lastReturned < lastRequested {
		return false
	}
	return true
}

// marshalSearch embeds the originating search document into a result
// collection
func marshalSearch(search *query.Search) json.RawMessage {
	data, err := json.Marshal(search)
	if err != nil {
		return nil
	}
	return data
}
