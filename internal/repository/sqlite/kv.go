package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/decision-log/internal/domain"
)

// KVRepository implements domain.KeyValueStore using SQLite. Each save
// rewrites the full value for its key, mirroring the wholesale-serialization
// persistence model of the stores.
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new SQLite-backed KVRepository.
func NewKVRepository(db *DB) *KVRepository {
	return &KVRepository{db: db.SqlDB}
}

func (r *KVRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE key = ?", key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query key %q: %w", key, err)
	}
	return value, nil
}

func (r *KVRepository) Save(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("save key %q: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}
