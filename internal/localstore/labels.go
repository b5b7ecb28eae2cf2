package localstore

import (
	"context"
	"fmt"
)

// List implements confluence.LabelStore, in insertion order.
func (s *Store) List(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT label FROM labels WHERE page_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, fmt.Errorf("list labels for %s: %w", id, err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("list labels for %s: %w", id, err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Add implements confluence.LabelStore. The primary key makes re-adding an
// existing label a no-op, so the call is idempotent.
func (s *Store) Add(ctx context.Context, id string, labels []string) error {
	for _, l := range labels {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO labels (page_id, label) VALUES (?, ?)", id, l)
		if err != nil {
			return fmt.Errorf("add label %q to %s: %w", l, id, err)
		}
	}
	return nil
}
