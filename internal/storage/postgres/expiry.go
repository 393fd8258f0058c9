package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ExpiryStore persists cache expiry times in the cache_entries table.
type ExpiryStore struct {
	db *sqlx.DB
}

func NewExpiryStore(db *sqlx.DB) *ExpiryStore {
	return &ExpiryStore{db: db}
}

// Expiry returns the stored expiry for sourceID; ok is false when none exists.
func (s *ExpiryStore) Expiry(ctx context.Context, sourceID int64) (int64, bool, error) {
	var expiry int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &expiry,
		"SELECT expiry_unix_seconds FROM cache_entries WHERE source_id = $1", sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return expiry, true, nil
}

func (s *ExpiryStore) SetExpiry(ctx context.Context, sourceID int64, expiryUnix int64) error {
	query := `
		INSERT INTO cache_entries (source_id, expiry_unix_seconds)
		VALUES ($1, $2)
		ON CONFLICT (source_id) DO UPDATE SET
			expiry_unix_seconds = EXCLUDED.expiry_unix_seconds`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, sourceID, expiryUnix)
	return err
}
