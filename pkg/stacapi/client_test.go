package stacapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacsearch/pkg/config"
	"stacsearch/pkg/errors"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/query"
)

func noRetry() *config.RetryConfig {
	return &config.RetryConfig{Enabled: false}
}

func newTestClient(serverURL string) *Client {
	return NewClientWithConfig(serverURL, 5*time.Second, noRetry(), logger.NewTestLogger())
}

func TestSearchSendsCanonicalBody(t *testing.T) {
	var gotBody map[string]interface{}
	var gotPath, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(SearchResponse{
			Type: "FeatureCollection",
			Meta: Meta{Found: 123, Returned: 0, Limit: 0, Page: 1},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	search, err := query.Query{
		Collection: "sentinel-s2-l2a",
		Properties: []string{"eo:cloud_cover<10"},
	}.Normalize()
	require.NoError(t, err)

	resp, err := client.Search(&SearchRequest{Search: *search, Limit: 0})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, 123, resp.Meta.Found)

	// limit is always serialized so count-only requests are explicit
	assert.Equal(t, 0.0, gotBody["limit"])
	_, hasPage := gotBody["page"]
	assert.False(t, hasPage)

	queryDoc := gotBody["query"].(map[string]interface{})
	assert.Contains(t, queryDoc, "collection")
	assert.Contains(t, queryDoc, "eo:cloud_cover")
}

func TestSearchSendsPageNumber(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(SearchResponse{Type: "FeatureCollection"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(&SearchRequest{Limit: 100, Page: 3})
	require.NoError(t, err)

	assert.Equal(t, 100.0, gotBody["limit"])
	assert.Equal(t, 3.0, gotBody["page"])
}

func TestGetItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/sentinel-s2-l2a/items/item-1", r.URL.Path)
		w.Write([]byte(`{"type":"Feature","id":"item-1","collection":"sentinel-s2-l2a","properties":{"datetime":"2019-06-20T10:40:29Z"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	item, err := client.GetItem("sentinel-s2-l2a", "item-1")
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "2019-06-20T10:40:29Z", item.Datetime())
}

func TestGetItemRejectsBadIDs(t *testing.T) {
	client := newTestClient("https://example.com")

	_, err := client.GetItem("a/b", "item-1")
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeInvalidQuery, apiErr.Type)
}

func TestGetCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/landsat-8-l1", r.URL.Path)
		w.Write([]byte(`{"id":"landsat-8-l1","title":"Landsat 8 L1","license":"PDDL-1.0"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	collection, err := client.GetCollection("landsat-8-l1")
	require.NoError(t, err)
	assert.Equal(t, "landsat-8-l1", collection.ID)
	assert.Equal(t, "Landsat 8 L1", collection.Title)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errors.ErrorTypeServerError},
		{http.StatusBadGateway, errors.ErrorTypeServerError},
		{http.StatusServiceUnavailable, errors.ErrorTypeServerError},
		{http.StatusTeapot, errors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			_, err := client.Search(&SearchRequest{Limit: 10, Page: 1})
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	retryCfg := &config.RetryConfig{Enabled: true, MaxAttempts: 3}
	client := NewClientWithConfig(server.URL, 5*time.Second, retryCfg, logger.NewTestLogger())

	_, err := client.GetCollection("missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestConfiguredRetryDelaysApply(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{Type: "FeatureCollection"})
	}))
	defer server.Close()

	// The default server-error backoff starts at 5s; with configured delays
	// two retries must complete almost immediately
	retryCfg := &config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
	client := NewClientWithConfig(server.URL, 5*time.Second, retryCfg, logger.NewTestLogger())

	start := time.Now()
	_, err := client.Search(&SearchRequest{Limit: 1, Page: 1})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.Less(t, elapsed, 2*time.Second)
}

func TestMalformedJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(&SearchRequest{Limit: 10, Page: 1})
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
}

func TestCustomHeadersSent(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(SearchResponse{Type: "FeatureCollection"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetHeader("Authorization", "token-123")

	_, err := client.Search(&SearchRequest{Limit: 1, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "token-123", gotAuth)
}

func TestDownloadAsset(t *testing.T) {
	payload := []byte("binary asset data")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	data, err := client.DownloadAsset(server.URL + "/asset.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
