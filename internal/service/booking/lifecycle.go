// Package booking drives a single reservation through its legal transitions
// and computes the end-of-ride cost reconciliation. The server is the source
// of truth: local state is never advanced optimistically, every status the
// caller sees came back from a confirmed round trip.
package booking

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
	"github.com/adilkhan-s/bikerent-client/internal/transport"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
	"github.com/adilkhan-s/bikerent-client/pkg/metrics"
	"github.com/adilkhan-s/bikerent-client/pkg/uuid"
)

type Lifecycle struct {
	api Doer
	log logger.Logger

	// Per-booking locks serialize transition calls on the same booking id,
	// so a double-click issues the second call against the status resulting
	// from the first instead of racing on a stale view.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLifecycle(api Doer, log logger.Logger) *Lifecycle {
	return &Lifecycle{
		api:   api,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

type bookingRequest struct {
	BikeID    string    `json:"bike_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Request creates a time-boxed booking for the bike. Client-side checks
// reject an inverted window or a start in the past before any round trip;
// bike availability is detected from the response, never pre-checked.
func (l *Lifecycle) Request(ctx context.Context, bikeID string, start, end time.Time) (*models.Booking, error) {
	ctx = wrap.WithAction(ctx, types.ActionRequestBooking)

	if bikeID == "" {
		return nil, types.NewValidationError("bike_id", "must be provided")
	}
	if !end.After(start) {
		return nil, types.NewValidationError("end_time", "must be after start time")
	}
	if start.Before(time.Now()) {
		return nil, types.NewValidationError("start_time", "must not be in the past")
	}

	var created models.Booking
	err := l.api.Do(ctx, transport.Request{
		Method:         http.MethodPost,
		Path:           "/bookings",
		Route:          "/bookings",
		Body:           bookingRequest{BikeID: bikeID, StartTime: start, EndTime: end},
		IdempotencyKey: uuid.NewString(),
	}, &created)
	metrics.RecordTransition("request", err)
	if err != nil {
		return nil, l.mapCreateError(ctx, err)
	}

	l.log.Info(wrap.WithBookingID(ctx, created.ID), "booking created",
		"bike_id", bikeID,
		"status", created.Status,
		"total_price", created.TotalPrice,
	)
	return &created, nil
}

// Cancel transitions a pending or confirmed booking to cancelled.
func (l *Lifecycle) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx = wrap.WithAction(ctx, types.ActionCancelBooking)
	return l.transition(ctx, bookingID, "cancel")
}

// StartRide transitions a confirmed booking to in_use. The actual start
// timestamp is server-assigned and comes back on the booking.
func (l *Lifecycle) StartRide(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx = wrap.WithAction(ctx, types.ActionStartRide)
	return l.transition(ctx, bookingID, "start")
}

// EndRide transitions an in_use booking to completed and returns the cost
// reconciliation. The breakdown is transient: present it once, then only the
// booking's final price remains.
func (l *Lifecycle) EndRide(ctx context.Context, bookingID string) (*models.CostBreakdown, error) {
	ctx = wrap.WithAction(ctx, types.ActionEndRide)

	ended, err := l.transition(ctx, bookingID, "end")
	if err != nil {
		return nil, err
	}

	breakdown, err := Breakdown(ended)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, err)
	}

	if breakdown.ActualCost != ended.TotalPrice {
		// The server recomputed the final price from the actual window; a
		// mismatch means the two sides disagree on the billing rule.
		l.log.Warn(wrap.WithBookingID(ctx, bookingID), "final price mismatch",
			"client_actual_cost", breakdown.ActualCost,
			"server_total_price", ended.TotalPrice,
		)
	}

	return breakdown, nil
}

func (l *Lifecycle) transition(ctx context.Context, bookingID, op string) (*models.Booking, error) {
	if bookingID == "" {
		return nil, types.NewValidationError("booking_id", "must be provided")
	}

	ctx = wrap.WithBookingID(ctx, bookingID)

	lock := l.lockFor(bookingID)
	lock.Lock()
	defer lock.Unlock()

	var updated models.Booking
	err := l.api.Do(ctx, transport.Request{
		Method:         http.MethodPost,
		Path:           fmt.Sprintf("/bookings/%s/%s", bookingID, op),
		Route:          "/bookings/:id/" + op,
		IdempotencyKey: uuid.NewString(),
	}, &updated)
	metrics.RecordTransition(op, err)
	if err != nil {
		return nil, l.mapTransitionError(ctx, err, bookingID, op)
	}

	l.log.Info(ctx, "booking transition applied", "operation", op, "status", updated.Status)
	return &updated, nil
}

type reviewRequest struct {
	BikeID  string `json:"bike_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitReview posts a review for a bike the current user has a completed
// booking for. The completed-booking rule itself is enforced server-side.
func (l *Lifecycle) SubmitReview(ctx context.Context, bikeID string, rating int, comment string) (*models.Review, error) {
	ctx = wrap.WithAction(ctx, types.ActionSubmitReview)

	if bikeID == "" {
		return nil, types.NewValidationError("bike_id", "must be provided")
	}
	if rating < 1 || rating > 5 {
		return nil, types.NewValidationError("rating", "must be between 1 and 5")
	}
	if comment == "" {
		return nil, types.NewValidationError("comment", "must not be empty")
	}

	var review models.Review
	err := l.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/reviews",
		Body:   reviewRequest{BikeID: bikeID, Rating: rating, Comment: comment},
	}, &review)
	if err != nil {
		return nil, l.mapCreateError(ctx, err)
	}

	return &review, nil
}

// Get fetches a fresh copy of the booking. Views call this after an
// InvalidTransitionError, since that error means the local copy is stale.
func (l *Lifecycle) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	if bookingID == "" {
		return nil, types.NewValidationError("booking_id", "must be provided")
	}

	var b models.Booking
	err := l.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/bookings/" + bookingID,
		Route:  "/bookings/:id",
	}, &b)
	if err != nil {
		return nil, l.mapFetchError(err)
	}
	return &b, nil
}

// List fetches the current user's bookings.
func (l *Lifecycle) List(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := l.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/bookings",
	}, &bookings)
	if err != nil {
		return nil, l.mapFetchError(err)
	}
	return bookings, nil
}

// ListBikes fetches the bike catalogue.
func (l *Lifecycle) ListBikes(ctx context.Context) ([]models.Bike, error) {
	var bikes []models.Bike
	err := l.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/bikes",
	}, &bikes)
	if err != nil {
		return nil, l.mapFetchError(err)
	}
	return bikes, nil
}

/* ======================= error mapping ======================= */

// mapCreateError maps creation failures: field errors stay addressable,
// a 409 means the resource state precluded the action (bike taken).
func (l *Lifecycle) mapCreateError(ctx context.Context, err error) error {
	apiErr, ok := transport.AsAPIError(err)
	if !ok {
		return err
	}

	switch {
	case apiErr.Status == http.StatusConflict:
		return &types.ConflictError{Message: apiErr.Message}
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		return &types.ValidationError{Fields: apiErr.Fields}
	case apiErr.Status == http.StatusNotFound:
		return types.ErrNotFound
	default:
		return err
	}
}

// mapTransitionError distinguishes "stale view, refresh" from "bad input":
// a 409 on a transition endpoint always means the booking was not in a legal
// source state for the operation.
func (l *Lifecycle) mapTransitionError(ctx context.Context, err error, bookingID, op string) error {
	apiErr, ok := transport.AsAPIError(err)
	if !ok {
		return err
	}

	switch {
	case apiErr.Status == http.StatusConflict:
		ite := &types.InvalidTransitionError{BookingID: bookingID, Operation: op}
		if raw, exists := apiErr.Fields["status"]; exists {
			ite.Status = types.NormalizeStatus(raw)
		}
		l.log.Debug(ctx, "transition rejected as invalid", "operation", op, "current_status", ite.Status)
		return ite
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		return &types.ValidationError{Fields: apiErr.Fields}
	case apiErr.Status == http.StatusNotFound:
		return types.ErrNotFound
	default:
		return err
	}
}

func (l *Lifecycle) mapFetchError(err error) error {
	if apiErr, ok := transport.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
		return types.ErrNotFound
	}
	return err
}

func (l *Lifecycle) lockFor(bookingID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[bookingID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[bookingID] = lock
	}
	return lock
}
