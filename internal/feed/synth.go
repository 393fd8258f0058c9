// Package feed assembles stored news items into an RSS 2.0 document.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"

	"steamnews/internal/config"
	"steamnews/internal/domain"
	"steamnews/internal/render"
)

// ErrNothingToPublish is returned when no items fall inside the feed window.
var ErrNothingToPublish = errors.New("nothing to publish")

const DefaultOutputPath = "steam_news.xml"

type ItemReader interface {
	RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.NewsItem, error)
	SourceNamesFor(ctx context.Context, itemID string) ([]string, error)
}

type Synthesizer struct {
	items  ItemReader
	cfg    config.FeedConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewSynthesizer(items ItemReader, cfg config.FeedConfig, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		items:  items,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Build reads the recent items and turns them into a feed, newest first.
func (s *Synthesizer) Build(ctx context.Context) (*feeds.RssFeed, error) {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.cfg.WindowDays)

	items, err := s.items.RecentItems(ctx, since, s.cfg.MaxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNothingToPublish
	}

	entries := make([]*feeds.RssItem, 0, len(items))
	for _, item := range items {
		entry, err := s.entry(ctx, item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &feeds.RssFeed{
		Title:         s.cfg.Title,
		Link:          s.cfg.Link,
		Description:   s.cfg.Description,
		PubDate:       formatDate(now),
		LastBuildDate: entries[0].PubDate,
		Items:         entries,
	}, nil
}

func (s *Synthesizer) entry(ctx context.Context, item domain.NewsItem) (*feeds.RssItem, error) {
	names, err := s.items.SourceNamesFor(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sources for item %s: %w", item.ID, err)
	}

	body := render.Content(item.Format, item.Content)

	return &feeds.RssItem{
		Title:       DisplayTitle(item.Title, names),
		Link:        item.URL,
		Description: Byline(AttributionLabel(item), names) + body,
		Author:      item.Author,
		Guid:        &feeds.RssGuid{Id: item.ID, IsPermaLink: "false"},
		PubDate:     formatDate(item.PublishedAt),
	}, nil
}

// Write builds the feed and encodes it to w. It returns the number of entries.
func (s *Synthesizer) Write(ctx context.Context, w io.Writer) (int, error) {
	rss, err := s.Build(ctx)
	if err != nil {
		return 0, err
	}
	if err := feeds.WriteXML(rss, w); err != nil {
		return 0, fmt.Errorf("failed to encode feed: %w", err)
	}
	return len(rss.Items), nil
}

// Publish writes the feed to path, or to the configured output path when
// path is empty. The file is replaced atomically.
func (s *Synthesizer) Publish(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = s.cfg.OutputPath
	}
	if path == "" {
		path = DefaultOutputPath
	}

	s.logger.Info("generating feed", "path", path)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return path, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	count, err := s.Write(ctx, tmp)
	if err != nil {
		tmp.Close()
		return path, err
	}
	if err := tmp.Close(); err != nil {
		return path, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return path, fmt.Errorf("failed to chmod feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return path, fmt.Errorf("failed to move feed into place: %w", err)
	}

	s.logger.Info("feed published", "path", path, "items", count)
	return path, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}
