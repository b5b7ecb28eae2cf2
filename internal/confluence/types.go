package confluence

import "context"

// Document is one stored page: its identity, optimistic-concurrency
// version, and storage-format body.
type Document struct {
	ID       string
	Title    string
	SpaceKey string
	Type     string // container type, normally "page"
	Version  int
	Body     string // storage-format markup
}

// DocumentStore fetches, creates, and writes whole documents.
type DocumentStore interface {
	// Fetch returns the document by ID, or NotFoundError.
	Fetch(ctx context.Context, id string) (*Document, error)

	// FindByTitle returns the document with the given title in a space,
	// or NotFoundError when no such page exists.
	FindByTitle(ctx context.Context, spaceKey, title string) (*Document, error)

	// Create makes a new page and returns its ID. parentID may be empty.
	Create(ctx context.Context, spaceKey, title, body, parentID string) (string, error)

	// Write replaces the document body, expecting expectedVersion to still
	// be current. A stale version surfaces as ConflictError.
	Write(ctx context.Context, id, title, body string, expectedVersion int) error
}

// LabelStore manages page labels.
type LabelStore interface {
	// List returns the labels currently on the page.
	List(ctx context.Context, id string) ([]string, error)

	// Add attaches labels, skipping any already present. Idempotent.
	Add(ctx context.Context, id string, labels []string) error
}

// Property is one content property value with its version.
type Property struct {
	Value   map[string]string
	Version int
}

// PropertyStore stores per-page key/value metadata. The sync pipeline uses
// it only for traceability (spec hash, run token, timestamp); the merge
// engine never reads it.
type PropertyStore interface {
	// Get returns the property, or (nil, nil) when the key is unset.
	Get(ctx context.Context, id, key string) (*Property, error)

	// Upsert creates the property or replaces it at the next version.
	Upsert(ctx context.Context, id, key string, value map[string]string) error
}

// Store bundles the three interfaces a full sync needs. Client,
// localstore.Store, and testutil.MemStore all satisfy it.
type Store interface {
	DocumentStore
	LabelStore
	PropertyStore
}
