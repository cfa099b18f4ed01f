// Package transport is the single authorized-transport boundary to the
// rental backend. It turns loosely-shaped HTTP failures into a tagged
// *APIError so no caller ever branches on ad hoc response sniffing.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
	"github.com/adilkhan-s/bikerent-client/pkg/metrics"
	"github.com/adilkhan-s/bikerent-client/pkg/uuid"
)

// Request is the base request shape accepted by the transport.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Route is the path template used for metrics labels, so booking ids do
	// not explode label cardinality. Defaults to Path when empty.
	Route string

	// IdempotencyKey is attached as a header on mutations so a transport-level
	// retry after a network failure cannot double-apply a transition.
	IdempotencyKey string
}

// Client issues requests against the rental backend.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	log     logger.Logger
}

func New(baseURL string, timeout time.Duration, retryMax int, log logger.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	// Only connection-level failures are retried here. HTTP error statuses,
	// 401 included, must reach the session layer untouched.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return false, nil
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		log:     log,
	}
}

// Do issues the request with the given access credential attached and decodes
// a successful payload into out. Failures are either a *APIError (a response
// was received, Status carries the HTTP code, 401 surfaced distinctly) or a
// wrapped network error when no response arrived at all.
func (c *Client) Do(ctx context.Context, req Request, token string, out any) error {
	requestID := uuid.NewString()
	ctx = wrap.WithRequestID(ctx, requestID)

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.url(req), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		// A cancelled context means the caller abandoned the request; its
		// result must not be applied anywhere.
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", types.ErrRequestAborted, ctx.Err())
		}
		metrics.RecordAPIRequest(req.Method, req.route(), 0, time.Since(started))
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(req.Method, req.route(), resp.StatusCode, time.Since(started))

	if resp.StatusCode >= 400 {
		apiErr := decodeAPIError(resp)
		c.log.Debug(ctx, "api request failed",
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode,
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) url(req Request) string {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (r Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}
