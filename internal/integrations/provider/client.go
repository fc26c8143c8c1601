package provider

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/models"
)

// Result: ответ провайдера на мутацию (register/delete). OK только при code == 0.
type Result struct {
	OK   bool
	Code int
}

// Client: шлюз к стороннему агрегатору трекинга. Один запрос на вызов, без ретраев.
type Client interface {
	QueryExisting(ctx context.Context, number string) (*models.TrackingRecord, bool, error)
	Register(ctx context.Context, number string, courier models.Courier) (Result, error)
	FetchDetails(ctx context.Context, number string) (*models.TrackingRecord, error)
	Remove(ctx context.Context, number string) (Result, error)
	ListTracked(ctx context.Context, page int) ([]*models.TrackedItem, error)
}
