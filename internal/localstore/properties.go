package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
)

// Get implements confluence.PropertyStore. An unset key returns (nil, nil).
func (s *Store) Get(ctx context.Context, id, key string) (*confluence.Property, error) {
	var raw string
	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT value, version FROM properties WHERE page_id = ? AND key = ?",
		id, key).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s/%s: %w", id, key, err)
	}

	var value map[string]string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode property %s/%s: %w", id, key, err)
	}
	return &confluence.Property{Value: value, Version: version}, nil
}

// Upsert implements confluence.PropertyStore, creating at version 1 and
// incrementing on replacement.
func (s *Store) Upsert(ctx context.Context, id, key string, value map[string]string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode property %s/%s: %w", id, key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (page_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (page_id, key) DO UPDATE SET value = excluded.value, version = version + 1`,
		id, key, string(raw))
	if err != nil {
		return fmt.Errorf("upsert property %s/%s: %w", id, key, err)
	}
	return nil
}
