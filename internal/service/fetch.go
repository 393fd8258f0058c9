package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"steamnews/internal/config"
	"steamnews/internal/domain"
)

// FetchService walks every enabled source once, fetching news for those
// whose cache has expired.
type FetchService struct {
	sources   SourceStore
	items     ItemStore
	cache     *CacheManager
	news      NewsSource
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.FetchConfig
	now       func() time.Time
}

func NewFetchService(
	sources SourceStore,
	items ItemStore,
	cache *CacheManager,
	news NewsSource,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.FetchConfig,
) *FetchService {
	return &FetchService{
		sources:   sources,
		items:     items,
		cache:     cache,
		news:      news,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Run performs one fetch run. Upstream failures are counted per source and
// never abort the run; storage errors do, returning the stats gathered so far.
func (s *FetchService) Run(ctx context.Context) (*domain.FetchStats, error) {
	startTime := time.Now()
	stats := &domain.FetchStats{}

	sources, err := s.sources.ToFetch(ctx)
	if err != nil {
		return stats, fmt.Errorf("list sources: %w", err)
	}

	s.logger.Info("starting fetch run", "sources", len(sources))

	for id, name := range sources {
		logger := s.logger.With("source_id", id, "source_name", name)

		cached, err := s.cache.IsFetchCached(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("check cache for %d: %w", id, err)
		}
		if cached {
			stats.CacheHits++
			logger.Debug("cache still valid")
			continue
		}

		batch, err := s.news.FetchNews(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failures++
			logger.Error("fetch failed", "error", err)
			if err := s.pause(ctx, s.config.FailureDelay); err != nil {
				return stats, err
			}
			continue
		}

		current, err := s.saveBatch(ctx, id, batch, stats)
		if err != nil {
			return stats, fmt.Errorf("save news for %d: %w", id, err)
		}

		if err := s.cache.RecordExpiry(ctx, id, batch.ExpiresAt.Unix()); err != nil {
			return stats, fmt.Errorf("record expiry for %d: %w", id, err)
		}

		stats.FetchHits++
		logger.Info("fetched", "current_items", current, "expires_at", batch.ExpiresAt)

		if err := s.pause(ctx, s.config.SuccessDelay); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("fetch run completed",
		"cached", stats.CacheHits,
		"fetched", stats.FetchHits,
		"failed", stats.Failures,
		"stored", stats.ItemsStored,
		"new", stats.ItemsNew,
		"stale", stats.ItemsStale,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

// saveBatch stores every item that is not older than the configured age,
// associating each with sourceID. It returns how many items were current.
func (s *FetchService) saveBatch(ctx context.Context, sourceID int64, batch *domain.NewsBatch, stats *domain.FetchStats) (int, error) {
	cutoff := s.now().AddDate(0, 0, -s.config.MaxItemAgeDays)

	var current int
	for i := range batch.Items {
		item := &batch.Items[i]
		if item.PublishedAt.Before(cutoff) {
			stats.ItemsStale++
			continue
		}
		current++

		isNew, err := s.saveItem(ctx, item, sourceID)
		if err != nil {
			return current, err
		}
		stats.ItemsStored++

		if !isNew {
			continue
		}
		stats.ItemsNew++

		if s.publisher != nil {
			if err := s.publisher.PublishItem(ctx, item, sourceID); err != nil {
				stats.PublishErrors++
				s.logger.Warn("publish item failed", "item_id", item.ID, "error", err)
			} else {
				stats.Published++
			}
		}
	}

	return current, nil
}

func (s *FetchService) saveItem(ctx context.Context, item *domain.NewsItem, sourceID int64) (bool, error) {
	var isNew bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		inserted, err := s.items.Insert(txCtx, item)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		isNew = inserted

		if err := s.items.Associate(txCtx, item.ID, sourceID); err != nil {
			return fmt.Errorf("associate item: %w", err)
		}
		return nil
	})
	return isNew, err
}

func (s *FetchService) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
