package uuid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// UUID is 16 bytes
type UUID [16]byte

// New returns a new UUID v4
func New() (UUID, error) {
	var u UUID
	if _, err := io.ReadFull(rand.Reader, u[:]); err != nil {
		return UUID{}, err
	}
	// version (4)
	u[6] = (u[6] & 0x0f) | 0x40
	// variant (RFC 4122)
	u[8] = (u[8] & 0x3f) | 0x80
	return u, nil
}

// NewString returns a fresh UUID v4 in string form. Used for idempotency
// keys where a read from crypto/rand failing is not a recoverable condition.
func NewString() string {
	u, err := New()
	if err != nil {
		panic(fmt.Sprintf("uuid: crypto/rand unavailable: %v", err))
	}
	return u.String()
}

// String formats UUID as XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

// Parse parses a string into a UUID
func Parse(s string) (UUID, error) {
	var u UUID
	s = strings.ToLower(s)

	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return UUID{}, errors.New("invalid uuid format")
	}
	joined := strings.Join(parts, "")
	if len(joined) != 32 {
		return UUID{}, errors.New("invalid uuid length")
	}

	b, err := hex.DecodeString(joined)
	if err != nil {
		return UUID{}, err
	}
	copy(u[:], b)
	return u, nil
}
