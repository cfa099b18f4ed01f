package session

import "errors"

// ErrInvalidToken marks an access credential that could not be decoded;
// the session built from it would carry no identity or expiry.
var ErrInvalidToken = errors.New("invalid token")
