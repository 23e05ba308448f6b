package repository

import (
	"context"

	"github.com/meditrade/pricing/pkg/db/option"
)

// Repository is a generic gorm-backed read store for a single model type.
// Write paths stay in the hand-written feature repositories, which need
// transaction control the generic store does not offer.
type Repository[T any] interface {
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
}
