package booking

import (
	"context"

	"github.com/adilkhan-s/bikerent-client/internal/transport"
)

// Doer is the authorized call capability provided by the session manager.
type Doer interface {
	Do(ctx context.Context, req transport.Request, out any) error
}
