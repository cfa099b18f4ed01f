package types

import "encoding/json"

// Canonical booking status set. The rental backend historically reported
// "booked" from some endpoints; the transport decoder normalizes it to
// "confirmed" so the rest of the client sees a single enum.
type BookingStatus string

func (s BookingStatus) String() string {
	return string(s)
}

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusInUse     BookingStatus = "in_use"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a member of the canonical status set.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInUse, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is legal from s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanCancel reports whether a booking in status s may be cancelled.
func (s BookingStatus) CanCancel() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanStart reports whether a ride may be started from status s.
func (s BookingStatus) CanStart() bool {
	return s == StatusConfirmed
}

// CanEnd reports whether a ride may be ended from status s.
func (s BookingStatus) CanEnd() bool {
	return s == StatusInUse
}

// UnmarshalJSON normalizes legacy status spellings at the decode boundary.
func (s *BookingStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeStatus(raw)
	return nil
}

// NormalizeStatus maps raw backend status strings onto the canonical set.
func NormalizeStatus(raw string) BookingStatus {
	switch raw {
	case "booked":
		return StatusConfirmed
	default:
		return BookingStatus(raw)
	}
}

// Enum for bike availability
type BikeStatus string

const (
	BikeAvailable   BikeStatus = "available"
	BikeBooked      BikeStatus = "booked"
	BikeMaintenance BikeStatus = "maintenance"
)

// Enum for user roles
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	CustomerRole UserRole = "customer"
	StaffRole    UserRole = "staff"
	AdminRole    UserRole = "admin"
)
