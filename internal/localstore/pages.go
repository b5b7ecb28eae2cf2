package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
)

const pageColumns = "id, space_key, title, page_type, markup, version"

func scanPage(row *sql.Row) (*confluence.Document, error) {
	var d confluence.Document
	err := row.Scan(&d.ID, &d.SpaceKey, &d.Title, &d.Type, &d.Body, &d.Version)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Fetch implements confluence.DocumentStore.
func (s *Store) Fetch(ctx context.Context, id string) (*confluence.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	doc, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &confluence.NotFoundError{Kind: "page", Ref: id}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", id, err)
	}
	return doc, nil
}

// FindByTitle implements confluence.DocumentStore. Ties on title are broken
// by insertion order, mirroring the REST API's first-result behavior.
func (s *Store) FindByTitle(ctx context.Context, spaceKey, title string) (*confluence.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE space_key = ? AND title = ? ORDER BY rowid LIMIT 1",
		spaceKey, title)
	doc, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &confluence.NotFoundError{Kind: "page", Ref: spaceKey + "/" + title}
	}
	if err != nil {
		return nil, fmt.Errorf("find page %s/%s: %w", spaceKey, title, err)
	}
	return doc, nil
}

// Create implements confluence.DocumentStore. parentID is accepted for
// interface parity but the mirror keeps no page hierarchy.
func (s *Store) Create(ctx context.Context, spaceKey, title, body, _ string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pages (id, space_key, title, markup) VALUES (?, ?, ?, ?)",
		id, spaceKey, title, body)
	if err != nil {
		return "", fmt.Errorf("create page %s/%s: %w", spaceKey, title, err)
	}
	return id, nil
}

// Write implements confluence.DocumentStore with a conditional update on
// the expected version; zero rows touched means either the version went
// stale or the page does not exist.
func (s *Store) Write(ctx context.Context, id, title, body string, expectedVersion int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE pages SET title = ?, markup = ?, version = version + 1 WHERE id = ? AND version = ?",
		title, body, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("write page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write page %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pages WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("write page %s: %w", id, err)
	}
	if exists == 0 {
		return &confluence.NotFoundError{Kind: "page", Ref: id}
	}
	return &confluence.ConflictError{ID: id, ExpectedVersion: expectedVersion}
}
