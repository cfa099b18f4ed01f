package session

import (
	"context"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/transport"
)

// API is the raw transport the manager authorizes requests through.
type API interface {
	Do(ctx context.Context, req transport.Request, token string, out any) error
}

// Store is the local persistent store for the credential record.
type Store interface {
	Load() (*models.Credentials, error)
	Save(*models.Credentials) error
	Clear() error
}
