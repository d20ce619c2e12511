package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdash-go/domain"
)

func TestNewClient_TrailingSlash(t *testing.T) {
	c := NewClient("https://app.lightdash.cloud/", "token", "proj")
	assert.Equal(t, "https://app.lightdash.cloud", c.BaseURL())
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("https://app.lightdash.cloud", "token", "proj")
	require.NotNil(t, c.httpClient)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "proj", c.ProjectUUID())
}

func TestDo_SendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"status":"ok","results":{}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "my-token", "proj")
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/api/v1/ping", nil, nil, nil))

	assert.Equal(t, "ApiKey my-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.NotEmpty(t, gotRequestID)
}

func TestDo_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":"error","error":{"name":"ValidationError","statusCode":422,"message":"unknown metric"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "token", "proj")
	err := c.do(context.Background(), http.MethodPost, "/api/v1/thing", nil, map[string]any{}, nil)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ValidationError", apiErr.Name)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "unknown metric", apiErr.Message)
}

func TestDo_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "token", "proj")
	err := c.do(context.Background(), http.MethodGet, "/api/v1/thing", nil, nil, nil)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream unavailable")
}

func TestDo_ErrorStatusWithOKBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"ok","results":{}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "token", "proj")
	err := c.do(context.Background(), http.MethodGet, "/api/v1/thing", nil, nil, nil)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
