// Package stacapi provides a client for STAC-compliant search APIs.
//
// This package includes:
//   - A configurable HTTP client with retry and error classification
//   - Type-safe models for search pages and their paging metadata
//   - Helper functions for constructing API endpoints
//
// Example usage:
//
//	client := stacapi.NewClient(stacapi.BaseURLFromEnv(), 30*time.Second, log)
//
//	page, err := client.Search(&stacapi.SearchRequest{
//	    Search: search,
//	    Limit:  100,
//	    Page:   1,
//	})
//	if err != nil {
//	    var apiErr *errors.Error
//	    if stderrors.As(err, &apiErr) {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeRateLimit:
//	            // Handle rate limit
//	        case errors.ErrorTypeAuth:
//	            // Handle authentication error
//	        }
//	    }
//	}
package stacapi
