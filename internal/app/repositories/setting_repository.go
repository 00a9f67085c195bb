package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yigit/uniadmit/internal/db"
)

// SettingRepository stores key/value institution settings
type SettingRepository struct {
	db db.DBTX
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(conn db.DBTX) *SettingRepository {
	return &SettingRepository{db: conn}
}

// GetAll returns every setting
func (r *SettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	sql, args, err := psql.Select("key", "value").From("settings").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list settings query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("error scanning setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Upsert inserts or overwrites the given keys
func (r *SettingRepository) Upsert(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	q := psql.Insert("settings").Columns("key", "value", "updated_at")
	for _, k := range keys {
		q = q.Values(k, values[k], now)
	}
	sql, args, err := q.Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert settings query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error upserting settings: %w", err)
	}
	return nil
}
