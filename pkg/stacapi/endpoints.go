package stacapi

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

const (
	// DefaultBaseURL is the search API used when STAC_API_URL is not set
	DefaultBaseURL = "https://earth-search.aws.element84.com/v0"

	// SearchEndpoint is the item-search path
	SearchEndpoint = "/search"

	// CollectionsEndpoint is the collection metadata path
	CollectionsEndpoint = "/collections"
)

// BaseURLFromEnv returns the base URL from the STAC_API_URL environment
// variable, falling back to DefaultBaseURL
func BaseURLFromEnv() string {
	if u := os.Getenv("STAC_API_URL"); u != "" {
		return u
	}
	return DefaultBaseURL
}

// SanitizeBaseURL strips trailing slashes and whitespace from a base URL
func SanitizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// SearchURL constructs the URL of the search endpoint
func SearchURL(base string) string {
	return SanitizeBaseURL(base) + SearchEndpoint
}

// CollectionURL constructs the URL for a collection's metadata
func CollectionURL(base, collectionID string) string {
	return fmt.Sprintf("%s%s/%s", SanitizeBaseURL(base), CollectionsEndpoint, url.PathEscape(collectionID))
}

// ItemURL constructs the direct-lookup URL for a single item
func ItemURL(base, collectionID, itemID string) string {
	return fmt.Sprintf("%s/items/%s", CollectionURL(base, collectionID), url.PathEscape(itemID))
}

// IsValidID checks that a collection or item ID is non-empty and contains no
// path separators
func IsValidID(id string) bool {
	if id == "" || len(id) > 256 {
		return false
	}
	return !strings.ContainsAny(id, "/\\?#")
}
