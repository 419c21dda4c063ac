package repository

import (
	"context"

	"github.com/smallbiznis/bizplannaija/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic gorm store keyed by an "id" column.
// Zero-valued fields of the query struct are ignored as filters.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Exists(ctx context.Context, query *T) (bool, error)
	Count(ctx context.Context, query *T) (int64, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID any, fields map[string]any) (int64, error)
	Delete(ctx context.Context, resourceID any) (int64, error)
}
