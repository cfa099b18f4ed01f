// Package bookingstream subscribes to live booking status updates over a
// websocket, so list and detail views refresh without polling. Purely
// advisory: authoritative state still comes from fetches after transitions.
package bookingstream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
	"github.com/adilkhan-s/bikerent-client/pkg/metrics"
)

// TokenProvider supplies the current access credential for the dial handshake.
type TokenProvider interface {
	BearerToken() string
}

type Subscriber struct {
	wsURL  string
	tokens TokenProvider
	log    logger.Logger

	updates chan models.BookingStatusUpdate
}

func NewSubscriber(baseURL string, tokens TokenProvider, log logger.Logger) *Subscriber {
	return &Subscriber{
		wsURL:   wsEndpoint(baseURL),
		tokens:  tokens,
		log:     log,
		updates: make(chan models.BookingStatusUpdate, 16),
	}
}

// Updates is the channel booking status updates are delivered on.
func (s *Subscriber) Updates() <-chan models.BookingStatusUpdate {
	return s.updates
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff after connection loss. Returns the ctx error on exit.
func (s *Subscriber) Run(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionStreamConnect)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.dial(ctx)
		if err != nil {
			return err
		}

		s.log.Info(ctx, "booking stream connected")
		s.consume(ctx, conn)

		if ctx.Err() == nil {
			metrics.StreamReconnectsTotal.Inc()
			s.log.Warn(wrap.WithAction(ctx, types.ActionStreamReconnect), "booking stream disconnected, reconnecting")
		}
	}
}

// dial retries the websocket handshake with capped exponential backoff.
// Only a cancelled context stops the attempts.
func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))

	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		header := http.Header{}
		if token := s.tokens.BearerToken(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}

		c, resp, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, header)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			s.log.Debug(ctx, "stream dial failed", "url", s.wsURL)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// consume reads updates until the connection drops or ctx is cancelled.
// An update arriving after cancellation is discarded, never delivered.
func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			// Unblocks the reader below.
			conn.Close()
		case <-done:
		}
	}()

	for {
		var update models.BookingStatusUpdate
		if err := conn.ReadJSON(&update); err != nil {
			return
		}

		metrics.StreamUpdatesTotal.Inc()

		select {
		case s.updates <- update:
		case <-ctx.Done():
			return
		}
	}
}

func wsEndpoint(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/bookings"
}
