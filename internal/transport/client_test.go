package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return New(url, 2*time.Second, 0, logger.InitLogger("test", logger.LevelError))
}

func TestDoAttachesHeaders(t *testing.T) {
	var gotAuth, gotIdem, gotRequestID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		gotRequestID = r.Header.Get("X-Request-Id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Do(context.Background(), Request{
		Method:         http.MethodPost,
		Path:           "/bookings",
		Body:           map[string]string{"bike_id": "b-1"},
		IdempotencyKey: "idem-123",
	}, "token-abc", &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "idem-123", gotIdem)
	assert.NotEmpty(t, gotRequestID)
}

func TestDoNoTokenNoAuthHeader(t *testing.T) {
	var sawAuth bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/bikes"}, "", nil))
	assert.False(t, sawAuth)
}

func TestDoDecodesStringError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": "bike is not available"}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/bookings"}, "t", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "bike is not available", apiErr.Message)
}

func TestDoDecodesFieldMapError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"end_time": "must be after start time"}}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/bookings"}, "t", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "must be after start time", apiErr.Fields["end_time"])
}

func TestDoDecodesDetailError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": {"code": "invalid_transition", "message": "cannot start", "fields": {"status": "completed"}}}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/bookings/1/start"}, "t", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_transition", apiErr.Code)
	assert.Equal(t, "cannot start", apiErr.Message)
	assert.Equal(t, "completed", apiErr.Fields["status"])
}

func TestDoSurfaces401Distinctly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/bookings"}, "stale", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.Unauthorized())
}

func TestDoNetworkErrorIsNotAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // nothing listening any more

	c := testClient(t, ts.URL)
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/bikes"}, "t", nil)

	require.Error(t, err)
	_, ok := AsAPIError(err)
	assert.False(t, ok, "a connection failure must not look like an API response")
}

func TestDoAbandonedRequest(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c := testClient(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/bookings"}, "t", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRequestAborted))
}

func TestDoRetriesConnectionFailuresOnly(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(ts.URL, 2*time.Second, 3, logger.InitLogger("test", logger.LevelError))
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/bikes"}, "t", nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, 1, hits, "HTTP error statuses must reach the caller untouched, not be retried")
}
