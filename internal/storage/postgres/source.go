package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"steamnews/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

// Add registers sources that are not yet known, with fetching enabled.
// Existing ids keep their name and flag. It returns how many were new.
func (s *SourceStore) Add(ctx context.Context, sources map[int64]string) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}

	exec := GetExecutor(ctx, s.db)

	var added int
	for id, name := range sources {
		res, err := exec.ExecContext(ctx,
			"INSERT INTO sources (id, name, should_fetch) VALUES ($1, $2, TRUE) ON CONFLICT (id) DO NOTHING",
			id, name,
		)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}

	return added, nil
}

// Matching returns sources whose name contains pattern, case-insensitively.
// Surrounding whitespace and % or * wildcard markers are ignored; an empty
// pattern matches every source.
func (s *SourceStore) Matching(ctx context.Context, pattern string) ([]domain.Source, error) {
	pattern = strings.Trim(strings.TrimSpace(pattern), "%*")

	var sources []domain.Source
	var err error
	if pattern == "" {
		err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources,
			"SELECT id, name, should_fetch FROM sources ORDER BY name, id")
	} else {
		err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources,
			"SELECT id, name, should_fetch FROM sources WHERE strpos(lower(name), lower($1)) > 0 ORDER BY name, id",
			pattern)
	}
	return sources, err
}

// SetShouldFetch updates the flag for every id in a single statement, so
// either all rows change or none do. Unknown ids are ignored.
func (s *SourceStore) SetShouldFetch(ctx context.Context, ids []int64, enabled bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE sources SET should_fetch = $1 WHERE id = ANY($2)",
		enabled, pq.Array(ids),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ToFetch returns id to name for every source with fetching enabled.
func (s *SourceStore) ToFetch(ctx context.Context) (map[int64]string, error) {
	var sources []domain.Source
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources,
		"SELECT id, name, should_fetch FROM sources WHERE should_fetch")
	if err != nil {
		return nil, err
	}

	result := make(map[int64]string, len(sources))
	for _, src := range sources {
		result[src.ID] = src.Name
	}
	return result, nil
}
