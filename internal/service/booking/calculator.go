package booking

import (
	"errors"
	"time"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
)

var ErrRideNotEnded = errors.New("booking has no recorded actual ride window")

// CeilHours converts a duration to billable hours: partial hours always
// round up, never to nearest. 2h10m bills as 3 hours.
func CeilHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	hours := int(d / time.Hour)
	if d%time.Hour > 0 {
		hours++
	}
	return hours
}

// QuoteTotal computes the booked price for a scheduled window:
// ceil-hours times the bike's hourly price.
func QuoteTotal(start, end time.Time, pricePerHour float64) float64 {
	return float64(CeilHours(end.Sub(start))) * pricePerHour
}

// Breakdown reconciles the booked cost against the actual ride cost using
// the server-confirmed timestamps. The same ceiling rule applies to both
// windows, so a ride ended inside the last booked hour costs the same as
// the booking.
func Breakdown(b *models.Booking) (*models.CostBreakdown, error) {
	if b.ActualStart == nil || b.ActualEnd == nil {
		return nil, ErrRideNotEnded
	}

	bookedHours := CeilHours(b.EndTime.Sub(b.StartTime))
	actualHours := CeilHours(b.ActualEnd.Sub(*b.ActualStart))

	originalCost := float64(bookedHours) * b.Bike.PricePerHour
	actualCost := float64(actualHours) * b.Bike.PricePerHour

	return &models.CostBreakdown{
		BookedHours:  bookedHours,
		ActualHours:  actualHours,
		PricePerHour: b.Bike.PricePerHour,
		OriginalCost: originalCost,
		ActualCost:   actualCost,
		Difference:   actualCost - originalCost,
	}, nil
}
