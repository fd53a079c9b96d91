package stacapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stacsearch/pkg/config"
	"stacsearch/pkg/errors"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/retry"
	"stacsearch/pkg/stac"
)

// Client talks to a STAC-compliant search API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
	retrier    *retry.HTTPRetrier
}

// NewClient creates a new API client with default retry behavior
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return NewClientWithConfig(baseURL, timeout, nil, log)
}

// NewClientWithConfig creates a new API client with explicit retry
// configuration. Attempt count and backoff delays all come from the config.
func NewClientWithConfig(baseURL string, timeout time.Duration, retryCfg *config.RetryConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		baseURL: SanitizeBaseURL(baseURL),
		logger:  log,
		retrier: retry.NewHTTPRetrierFromConfig(retryCfg, log),
	}
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(url string, target interface{}) error {
	return c.retrier.DoWithErrorType(func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("failed to create request: %v", err),
			}
		}
		return c.decodeResponse(req, url, target)
	})
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response. The request is rebuilt on every retry attempt so the body can be
// re-read.
func (c *Client) postJSON(url string, body interface{}, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to encode request body: %v", err),
		}
	}

	return c.retrier.DoWithErrorType(func() error {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("failed to create request: %v", err),
			}
		}
		return c.decodeResponse(req, url, target)
	})
}

// decodeResponse executes one request attempt and decodes the JSON body
func (c *Client) decodeResponse(req *http.Request, url string, target interface{}) error {
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 400 {
			c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// Search issues one search request and returns the resulting page
func (c *Client) Search(req *SearchRequest) (*SearchResponse, error) {
	url := SearchURL(c.baseURL)

	c.logger.DebugWithFields("issuing search request", map[string]interface{}{
		"url":   url,
		"limit": req.Limit,
		"page":  req.Page,
	})

	var response SearchResponse
	if err := c.postJSON(url, req, &response); err != nil {
		c.logger.ErrorWithFields("search request failed", map[string]interface{}{
			"url":   url,
			"page":  req.Page,
			"error": err.Error(),
		})
		return nil, err
	}

	c.logger.DebugWithFields("search page received", map[string]interface{}{
		"found":    response.Meta.Found,
		"returned": response.Meta.Returned,
		"page":     response.Meta.Page,
	})

	return &response, nil
}

// GetItem retrieves a single item directly by collection and ID
func (c *Client) GetItem(collectionID, itemID string) (*stac.Item, error) {
	if !IsValidID(collectionID) || !IsValidID(itemID) {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeInvalidQuery,
			Message: fmt.Sprintf("invalid item reference %s/%s", collectionID, itemID),
		}
	}

	url := ItemURL(c.baseURL, collectionID, itemID)

	var item stac.Item
	if err := c.getJSON(url, &item); err != nil {
		c.logger.ErrorWithFields("failed to fetch item", map[string]interface{}{
			"collection": collectionID,
			"item":       itemID,
			"error":      err.Error(),
		})
		return nil, err
	}

	return &item, nil
}

// GetCollection retrieves collection metadata by ID
func (c *Client) GetCollection(collectionID string) (*stac.Collection, error) {
	if !IsValidID(collectionID) {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeInvalidQuery,
			Message: fmt.Sprintf("invalid collection id %q", collectionID),
		}
	}

	url := CollectionURL(c.baseURL, collectionID)

	var collection stac.Collection
	if err := c.getJSON(url, &collection); err != nil {
		c.logger.ErrorWithFields("failed to fetch collection", map[string]interface{}{
			"collection": collectionID,
			"error":      err.Error(),
		})
		return nil, err
	}

	return &collection, nil
}

// DownloadAsset downloads an asset from the given href
func (c *Client) DownloadAsset(href string) ([]byte, error) {
	c.logger.DebugWithFields("downloading asset", map[string]interface{}{
		"url": href,
	})

	req, err := http.NewRequest(http.MethodGet, href, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.ErrorWithFields("failed to read asset data", map[string]interface{}{
			"url":   href,
			"error": err.Error(),
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to download asset: %v", err),
		}
	}

	c.logger.DebugWithFields("asset downloaded", map[string]interface{}{
		"url":  href,
		"size": len(data),
	})

	return data, nil
}
