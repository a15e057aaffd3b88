package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "token with spaces", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,name", r.URL.Query().Get("fields"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"10","name":"Jane"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	params := url.Values{}
	params.Set("access_token", "token with spaces")
	params.Set("fields", "id,name")

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := client.Get(context.Background(), "me", params, &out)
	require.NoError(t, err)
	assert.Equal(t, "10", out.ID)
	assert.Equal(t, "Jane", out.Name)
}

func TestClientGet_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	err := client.Get(context.Background(), "me", nil, nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadRequest, reqErr.Status)
	assert.Equal(t, "Invalid OAuth access token (code=190, type=OAuthException).", reqErr.Error())
}

func TestClientGet_HopTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHopTimeout(20*time.Millisecond))

	err := client.Get(context.Background(), "me", nil, nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.ErrorIs(t, reqErr.Err, context.DeadlineExceeded)
}

func TestClientGet_RespectsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Get(ctx, "me", nil, nil)
	require.Error(t, err)
}
