// Package retry provides retry logic with configurable backoff strategies.
//
// It supports exponential, linear, and constant backoff, each with optional
// jitter, plus an error-type aware backoff table that slows down harder for
// rate-limit responses than for transient network failures.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//	    return client.Search(body)
//	}, retry.DefaultConfig())
//
// HTTP usage with error-type backoff:
//
//	retrier := retry.NewHTTPRetrier(3, log)
//	err := retrier.DoWithErrorType(func() error {
//	    return client.Search(body)
//	})
//
// Whether an error is retried is decided by pkg/errors: network, rate-limit
// and server errors retry; auth, not-found, parsing and invalid-query errors
// fail immediately.
package retry
