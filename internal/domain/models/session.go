package models

import (
	"time"

	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
)

// Session is the authenticated identity derived from the access credential
// plus the auxiliary fields returned by the identity endpoint. At most one
// session is current at a time; readers always receive a value copy.
type Session struct {
	UserID   string
	Username string
	Email    string
	Role     types.UserRole

	IsStaff     bool
	IsSuperuser bool
	IsCustomer  bool
	Verified    bool

	AccessExpiresAt time.Time
}

// Expired reports whether the access credential behind the session has expired.
func (s Session) Expired(now time.Time) bool {
	return !s.AccessExpiresAt.IsZero() && now.After(s.AccessExpiresAt)
}

// Credentials is the record persisted in the local store. Everything needed
// to reconstruct a Session without a round trip lives in this one record so
// it is cleared atomically, never field by field.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	IsCustomer  bool   `json:"is_customer"`
	Verified    bool   `json:"verified"`
}
