package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"steamnews/internal/domain"
)

type itemRow struct {
	GlobalID      string `db:"global_id"`
	Title         string `db:"title"`
	URL           string `db:"url"`
	IsExternalURL bool   `db:"is_external_url"`
	Author        string `db:"author"`
	Content       string `db:"content"`
	FeedLabel     string `db:"feed_label"`
	Published     int64  `db:"published_unix_seconds"`
	FeedName      string `db:"feed_name"`
	ContentFormat string `db:"content_format"`
	SourceID      int64  `db:"nominal_source_id"`
}

func (r itemRow) toDomain() domain.NewsItem {
	return domain.NewsItem{
		ID:            r.GlobalID,
		Title:         r.Title,
		URL:           r.URL,
		IsExternalURL: r.IsExternalURL,
		Author:        r.Author,
		Content:       r.Content,
		FeedLabel:     r.FeedLabel,
		FeedName:      r.FeedName,
		Format:        domain.ContentFormat(r.ContentFormat),
		PublishedAt:   time.Unix(r.Published, 0).UTC(),
		SourceID:      r.SourceID,
	}
}

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Insert stores the item unless its global id is already known. An existing
// item is never overwritten. It reports whether a row was written.
func (s *ItemStore) Insert(ctx context.Context, item *domain.NewsItem) (bool, error) {
	query := `
		INSERT INTO news_items (
			global_id, title, url, is_external_url, author, content,
			feed_label, published_unix_seconds, feed_name, content_format, nominal_source_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (global_id) DO NOTHING`

	format := item.Format
	if format == "" {
		format = domain.FormatPlain
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.URL,
		item.IsExternalURL,
		item.Author,
		item.Content,
		item.FeedLabel,
		item.PublishedAt.Unix(),
		item.FeedName,
		string(format),
		item.SourceID,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Associate records that the item is relevant to sourceID. Repeating an
// existing pair is a no-op.
func (s *ItemStore) Associate(ctx context.Context, itemID string, sourceID int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"INSERT INTO item_sources (global_id, source_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		itemID, sourceID,
	)
	return err
}

// RecentItems returns items published at or after since, newest first.
// A limit of zero or less means no limit.
func (s *ItemStore) RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.NewsItem, error) {
	query := `
		SELECT global_id, title, url, is_external_url, author, content,
			feed_label, published_unix_seconds, feed_name, content_format, nominal_source_id
		FROM news_items
		WHERE published_unix_seconds >= $1
		ORDER BY published_unix_seconds DESC, global_id`

	args := []interface{}{since.Unix()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []itemRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, len(rows))
	for i, r := range rows {
		items[i] = r.toDomain()
	}
	return items, nil
}

// SourceNamesFor returns the names of every source associated with the
// item, ordered by source id.
func (s *ItemStore) SourceNamesFor(ctx context.Context, itemID string) ([]string, error) {
	query := `
		SELECT s.name
		FROM item_sources i
		INNER JOIN sources s ON s.id = i.source_id
		WHERE i.global_id = $1
		ORDER BY s.id`

	var names []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &names, query, itemID)
	return names, err
}
