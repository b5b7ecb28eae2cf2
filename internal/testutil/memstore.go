package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
)

// MemStore is an in-memory confluence.Store with conflict scripting, used
// to drive the syncer through write/retry paths without a server.
//
// Thread-safety: all methods lock; tests may poke the exported scripting
// fields only before handing the store to the code under test.
type MemStore struct {
	mu     sync.Mutex
	pages  map[string]*confluence.Document
	labels map[string][]string
	props  map[string]map[string]*confluence.Property
	nextID int

	// ScriptedConflicts makes the next N writes fail with ConflictError,
	// bumping the stored version each time as if a concurrent editor won.
	ScriptedConflicts int

	// WriteErr, when set, fails every write with this error.
	WriteErr error

	writes  int
	creates int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		pages:  make(map[string]*confluence.Document),
		labels: make(map[string][]string),
		props:  make(map[string]map[string]*confluence.Property),
	}
}

// AddPage seeds a page and returns its ID.
func (m *MemStore) AddPage(spaceKey, title, body string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.mintID()
	m.pages[id] = &confluence.Document{
		ID: id, Title: title, SpaceKey: spaceKey, Type: "page", Version: 1, Body: body,
	}
	return id
}

// Page returns a copy of the stored page for assertions.
func (m *MemStore) Page(id string) *confluence.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.pages[id]; ok {
		dup := *d
		return &dup
	}
	return nil
}

// WriteCount returns how many successful writes have landed.
func (m *MemStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// CreateCount returns how many pages have been created through the store.
func (m *MemStore) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// Labels returns the labels on a page.
func (m *MemStore) Labels(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.labels[id]...)
}

// Fetch implements confluence.DocumentStore.
func (m *MemStore) Fetch(_ context.Context, id string) (*confluence.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pages[id]
	if !ok {
		return nil, &confluence.NotFoundError{Kind: "page", Ref: id}
	}
	dup := *d
	return &dup, nil
}

// FindByTitle implements confluence.DocumentStore.
func (m *MemStore) FindByTitle(_ context.Context, spaceKey, title string) (*confluence.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.pages {
		if d.SpaceKey == spaceKey && d.Title == title {
			dup := *d
			return &dup, nil
		}
	}
	return nil, &confluence.NotFoundError{Kind: "page", Ref: spaceKey + "/" + title}
}

// Create implements confluence.DocumentStore.
func (m *MemStore) Create(_ context.Context, spaceKey, title, body, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.mintID()
	m.pages[id] = &confluence.Document{
		ID: id, Title: title, SpaceKey: spaceKey, Type: "page", Version: 1, Body: body,
	}
	m.creates++
	return id, nil
}

// Write implements confluence.DocumentStore with scripted failures.
func (m *MemStore) Write(_ context.Context, id, title, body string, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	d, ok := m.pages[id]
	if !ok {
		return &confluence.NotFoundError{Kind: "page", Ref: id}
	}
	if m.ScriptedConflicts > 0 {
		m.ScriptedConflicts--
		d.Version++ // a concurrent editor won this round
		return &confluence.ConflictError{ID: id, ExpectedVersion: expectedVersion}
	}
	if expectedVersion != d.Version {
		return &confluence.ConflictError{ID: id, ExpectedVersion: expectedVersion}
	}
	d.Title = title
	d.Body = body
	d.Version++
	m.writes++
	return nil
}

// List implements confluence.LabelStore.
func (m *MemStore) List(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.labels[id]...), nil
}

// Add implements confluence.LabelStore, skipping labels already present.
func (m *MemStore) Add(_ context.Context, id string, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	have := make(map[string]bool)
	for _, l := range m.labels[id] {
		have[l] = true
	}
	for _, l := range labels {
		if !have[l] {
			m.labels[id] = append(m.labels[id], l)
			have[l] = true
		}
	}
	return nil
}

// Get implements confluence.PropertyStore.
func (m *MemStore) Get(_ context.Context, id, key string) (*confluence.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[id][key]
	if !ok {
		return nil, nil
	}
	dup := confluence.Property{Value: p.Value, Version: p.Version}
	return &dup, nil
}

// Upsert implements confluence.PropertyStore.
func (m *MemStore) Upsert(_ context.Context, id, key string, value map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.props[id] == nil {
		m.props[id] = make(map[string]*confluence.Property)
	}
	version := 1
	if p, ok := m.props[id][key]; ok {
		version = p.Version + 1
	}
	m.props[id][key] = &confluence.Property{Value: value, Version: version}
	return nil
}

// Property returns the stored property for assertions, or nil.
func (m *MemStore) Property(id, key string) *confluence.Property {
	p, _ := m.Get(context.Background(), id, key)
	return p
}

func (m *MemStore) mintID() string {
	m.nextID++
	return fmt.Sprintf("page-%d", m.nextID)
}
