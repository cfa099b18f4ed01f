package models

import (
	"time"

	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
)

type Bike struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	PricePerHour float64          `json:"price_per_hour"`
	Status       types.BikeStatus `json:"status"`
}

type Booking struct {
	ID     string              `json:"id"`
	Bike   Bike                `json:"bike"`
	UserID string              `json:"user_id"`
	Status types.BookingStatus `json:"status"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Server-computed at creation; recomputed from actual elapsed time on end.
	TotalPrice float64 `json:"total_price"`

	// Set once the ride is started/ended. Server-assigned, never set locally.
	ActualStart *time.Time `json:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        string    `json:"id"`
	BikeID    string    `json:"bike_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// CostBreakdown compares the booked cost against the actual ride cost.
// Produced once when a ride ends and then discarded; it is not re-derivable
// from the Booking alone unless the server persists both figures.
type CostBreakdown struct {
	BookedHours  int
	ActualHours  int
	PricePerHour float64
	OriginalCost float64
	ActualCost   float64

	// Signed: positive means the ride cost more than booked.
	Difference float64
}

/* ======================= Websocket ======================= */

type BookingStatusUpdate struct {
	BookingID  string              `json:"booking_id"`
	Status     types.BookingStatus `json:"status"`
	Timestamp  time.Time           `json:"timestamp"`
	FinalPrice *float64            `json:"final_price,omitempty"`
}
