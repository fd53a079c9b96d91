// Package searcher turns normalized queries into complete result
// collections.
//
// A Searcher first issues a count-only request to learn how many records
// match, then pages through the search endpoint until it holds the smaller of
// the requested limit and the server-reported total. Queries that name
// explicit item IDs skip the search endpoint entirely and resolve each item
// directly. Every returned collection also carries the metadata of each
// distinct collection its items belong to.
//
// Page requests are rate limited and a failure on any page aborts the whole
// fetch.
package searcher
