package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/internal/transport"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
)

// staticDoer authorizes every request with a fixed token, standing in for
// the session manager.
type staticDoer struct {
	c     *transport.Client
	token string
}

func (d staticDoer) Do(ctx context.Context, req transport.Request, out any) error {
	return d.c.Do(ctx, req, d.token, out)
}

func testLifecycle(t *testing.T, handler http.Handler) *Lifecycle {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	log := logger.InitLogger("test", logger.LevelError)
	api := staticDoer{c: transport.New(ts.URL, 2*time.Second, 0, log), token: "token"}
	return NewLifecycle(api, log)
}

func writeInvalidTransition(w http.ResponseWriter, status types.BookingStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	fmt.Fprintf(w, `{"error": {"code": "invalid_transition", "message": "illegal status", "fields": {"status": %q}}}`, status)
}

func TestRequestValidatesInput(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("client-side validation must not reach the network")
	}))

	now := time.Now()

	var ve *types.ValidationError

	_, err := l.Request(context.Background(), "", now.Add(time.Hour), now.Add(2*time.Hour))
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "bike_id")

	_, err = l.Request(context.Background(), "b-1", now.Add(2*time.Hour), now.Add(time.Hour))
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "end_time")

	_, err = l.Request(context.Background(), "b-1", now.Add(-time.Hour), now.Add(time.Hour))
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "start_time")
}

func TestRequestSuccess(t *testing.T) {
	var gotIdem string
	var gotBody bookingRequest

	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bookings", r.URL.Path)
		gotIdem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(models.Booking{
			ID:         "bk-1",
			Bike:       models.Bike{ID: gotBody.BikeID, Name: "City Cruiser", PricePerHour: 100},
			Status:     types.StatusPending,
			StartTime:  gotBody.StartTime,
			EndTime:    gotBody.EndTime,
			TotalPrice: 300,
		})
	}))

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(2*time.Hour + 10*time.Minute)

	b, err := l.Request(context.Background(), "b-1", start, end)
	require.NoError(t, err)

	assert.Equal(t, "bk-1", b.ID)
	assert.Equal(t, types.StatusPending, b.Status)
	assert.Equal(t, 300.0, b.TotalPrice)
	assert.NotEmpty(t, gotIdem, "mutations must carry an idempotency key")
	assert.Equal(t, "b-1", gotBody.BikeID)

	// The server's price matches the ceiling-hours quote.
	assert.Equal(t, QuoteTotal(start, end, 100), b.TotalPrice)
}

func TestRequestBikeUnavailable(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": "bike is not available"}`))
	}))

	_, err := l.Request(context.Background(), "b-1", time.Now().Add(time.Hour), time.Now().Add(3*time.Hour))

	var ce *types.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bike is not available", ce.Message)
}

func TestCancelInvalidFromTerminalOrInUse(t *testing.T) {
	for _, status := range []types.BookingStatus{types.StatusInUse, types.StatusCompleted, types.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/bookings/bk-1/cancel", r.URL.Path)
				writeInvalidTransition(w, status)
			}))

			_, err := l.Cancel(context.Background(), "bk-1")

			var ite *types.InvalidTransitionError
			require.True(t, errors.As(err, &ite), "must surface InvalidTransitionError, got %v", err)
			assert.Equal(t, "bk-1", ite.BookingID)
			assert.Equal(t, status, ite.Status)
		})
	}
}

func TestStartRideOnlyFromConfirmed(t *testing.T) {
	for _, status := range []types.BookingStatus{types.StatusPending, types.StatusInUse, types.StatusCompleted, types.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeInvalidTransition(w, status)
			}))

			_, err := l.StartRide(context.Background(), "bk-1")

			var ite *types.InvalidTransitionError
			require.True(t, errors.As(err, &ite))
		})
	}
}

func TestStartRideSuccess(t *testing.T) {
	started := time.Now().Truncate(time.Second)
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/bk-1/start", r.URL.Path)
		json.NewEncoder(w).Encode(models.Booking{
			ID:          "bk-1",
			Status:      types.StatusInUse,
			ActualStart: &started,
		})
	}))

	b, err := l.StartRide(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInUse, b.Status)
	require.NotNil(t, b.ActualStart)
	assert.Equal(t, started.Unix(), b.ActualStart.Unix())
}

func TestEndRideReturnsBreakdown(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	actualEnd := start.Add(2*time.Hour + 5*time.Minute)

	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/bk-1/end", r.URL.Path)
		json.NewEncoder(w).Encode(models.Booking{
			ID:          "bk-1",
			Bike:        models.Bike{ID: "b-1", PricePerHour: 100},
			Status:      types.StatusCompleted,
			StartTime:   start,
			EndTime:     start.Add(3 * time.Hour),
			TotalPrice:  300,
			ActualStart: &start,
			ActualEnd:   &actualEnd,
		})
	}))

	breakdown, err := l.EndRide(context.Background(), "bk-1")
	require.NoError(t, err)

	assert.Equal(t, 3, breakdown.BookedHours)
	assert.Equal(t, 3, breakdown.ActualHours)
	assert.Equal(t, 300.0, breakdown.OriginalCost)
	assert.Equal(t, 300.0, breakdown.ActualCost)
	assert.Equal(t, 0.0, breakdown.Difference)
}

func TestEndRideInvalidTransition(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeInvalidTransition(w, types.StatusConfirmed)
	}))

	_, err := l.EndRide(context.Background(), "bk-1")

	var ite *types.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, types.StatusConfirmed, ite.Status)
}

func TestTransitionsSerializedPerBooking(t *testing.T) {
	var inFlight, maxInFlight int32

	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		json.NewEncoder(w).Encode(models.Booking{ID: "bk-1", Status: types.StatusCancelled})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Cancel(context.Background(), "bk-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight),
		"transition calls on the same booking must be serialized")
}

func TestStatusNormalizedAtDecodeBoundary(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "bk-1", "status": "booked"}`))
	}))

	b, err := l.Get(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, b.Status, "legacy 'booked' spelling must normalize to confirmed")
}

func TestSubmitReviewValidation(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("client-side validation must not reach the network")
	}))

	var ve *types.ValidationError

	_, err := l.SubmitReview(context.Background(), "b-1", 0, "great bike")
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "rating")

	_, err = l.SubmitReview(context.Background(), "b-1", 6, "great bike")
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "rating")

	_, err = l.SubmitReview(context.Background(), "b-1", 4, "")
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "comment")
}

func TestSubmitReviewSuccess(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reviews", r.URL.Path)

		var req reviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		json.NewEncoder(w).Encode(models.Review{
			ID:      "rv-1",
			BikeID:  req.BikeID,
			Rating:  req.Rating,
			Comment: req.Comment,
		})
	}))

	review, err := l.SubmitReview(context.Background(), "b-1", 5, "smooth ride")
	require.NoError(t, err)
	assert.Equal(t, "rv-1", review.ID)
	assert.Equal(t, 5, review.Rating)
}

func TestGetNotFound(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := l.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListBikes(t *testing.T) {
	l := testLifecycle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bikes", r.URL.Path)
		json.NewEncoder(w).Encode([]models.Bike{
			{ID: "b-1", Name: "City Cruiser", PricePerHour: 100, Status: types.BikeAvailable},
			{ID: "b-2", Name: "Trail Blazer", PricePerHour: 150, Status: types.BikeBooked},
		})
	}))

	bikes, err := l.ListBikes(context.Background())
	require.NoError(t, err)
	require.Len(t, bikes, 2)
	assert.Equal(t, types.BikeAvailable, bikes[0].Status)
}
