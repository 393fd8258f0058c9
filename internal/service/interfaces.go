package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"steamnews/internal/domain"
)

type SourceStore interface {
	ToFetch(ctx context.Context) (map[int64]string, error)
}

type ItemStore interface {
	Insert(ctx context.Context, item *domain.NewsItem) (bool, error)
	Associate(ctx context.Context, itemID string, sourceID int64) error
}

type ExpiryStore interface {
	Expiry(ctx context.Context, sourceID int64) (int64, bool, error)
	SetExpiry(ctx context.Context, sourceID int64, expiryUnix int64) error
}

type NewsSource interface {
	FetchNews(ctx context.Context, sourceID int64) (*domain.NewsBatch, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishItem(ctx context.Context, item *domain.NewsItem, sourceID int64) error
	Close() error
}
