// Package syncer orchestrates one full sync per target: fetch, parse,
// merge, compare, write, then labels and traceability metadata.
//
// Targets are processed strictly sequentially with nothing shared between
// them; a failure on one target is recorded in its outcome and never aborts
// the rest of a batch. The only retry the syncer owns is the bounded
// version-conflict retry on write; parse and merge failures are fatal for
// their target.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmandel/confluence-checklist-syncer/internal/checklist"
	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
	"github.com/jmandel/confluence-checklist-syncer/internal/merge"
	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// PropertyKey is the content-property key holding sync traceability
// metadata (spec hash, run token, timestamp).
const PropertyKey = "checklist-sync"

// writeRetries bounds how many times a conflicted write is retried before
// the failure surfaces. The retry is conservative: the already-rendered
// content is re-issued against the newer version without re-running the
// merge, which can clobber an edit landed in the conflict window.
const writeRetries = 2

// Target identifies the page a checklist syncs to: either directly by ID,
// or by space and title with find-or-create semantics.
type Target struct {
	PageID    string
	SpaceKey  string
	PageTitle string
	ParentID  string
}

// Plan is one batch entry: a target, its spec, and per-target options.
type Plan struct {
	Name        string // checklist name, for logs and outcomes
	Target      Target
	Spec        *checklist.Spec
	Labels      []string
	KeepRemoved bool
}

// Outcome reports what one plan did. Exactly one Outcome exists per plan in
// a batch result; Err set means the plan failed and the other fields are
// best-effort.
type Outcome struct {
	Name    string
	PageID  string
	Created bool
	Updated bool
	Err     error
}

// TokenGenerator mints run tokens for batch correlation.
// Implemented by UUIDv7Generator (production) and fixed fakes in tests.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 run tokens.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Syncer drives the merge core against a store.
type Syncer struct {
	store  confluence.Store
	logger *slog.Logger
	clock  merge.Clock
	tokens TokenGenerator
	dryRun bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock overrides the wall clock used for task ID allocation.
func WithClock(c merge.Clock) Option {
	return func(s *Syncer) { s.clock = c }
}

// WithTokenGenerator overrides run-token generation.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Syncer) { s.tokens = g }
}

// WithDryRun replaces every write with logging; the full merge and compare
// still run.
func WithDryRun(dry bool) Option {
	return func(s *Syncer) { s.dryRun = dry }
}

// New creates a Syncer. A nil logger defaults to slog.Default().
func New(store confluence.Store, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		store:  store,
		logger: logger,
		clock:  merge.SystemClock{},
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll processes plans in order, one at a time, and returns one outcome
// per plan. A plan failure is caught, recorded, and does not stop the
// batch.
func (s *Syncer) SyncAll(ctx context.Context, plans []Plan) []Outcome {
	token := s.tokens.Generate()
	logger := s.logger.With("run", token)
	logger.Info("starting batch sync", "plans", len(plans), "dry_run", s.dryRun)

	outcomes := make([]Outcome, 0, len(plans))
	for _, plan := range plans {
		outcome, err := s.syncOne(ctx, logger, plan, token)
		if err != nil {
			logger.Error("sync failed", "checklist", plan.Name, "error", err)
			outcome = Outcome{Name: plan.Name, PageID: outcome.PageID, Err: err}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// SyncOne runs a single plan outside a batch.
func (s *Syncer) SyncOne(ctx context.Context, plan Plan) (Outcome, error) {
	token := s.tokens.Generate()
	return s.syncOne(ctx, s.logger.With("run", token), plan, token)
}

func (s *Syncer) syncOne(ctx context.Context, logger *slog.Logger, plan Plan, token string) (Outcome, error) {
	logger = logger.With("checklist", plan.Name)
	outcome := Outcome{Name: plan.Name}

	doc, created, err := s.resolveTarget(ctx, logger, plan.Target)
	if err != nil {
		return outcome, err
	}
	outcome.PageID = doc.ID
	outcome.Created = created

	tree, err := storage.ParseFragment(doc.Body)
	if err != nil {
		return outcome, fmt.Errorf("parse page %s: %w", doc.ID, err)
	}

	region := plan.Spec.Region()
	index := merge.ParseRegion(logger, tree, region)
	ids := merge.CollectTaskIDs(tree)
	engine := merge.NewEngine(logger, s.clock)
	content := engine.Render(plan.Spec, index, ids, merge.Options{KeepRemoved: plan.KeepRemoved})
	merge.ReplaceRegion(tree, region, content)
	next := tree.Render()

	if merge.Equivalent(doc.Body, next) {
		logger.Info("no material change, skipping write", "page", doc.ID)
		return outcome, nil
	}

	if s.dryRun {
		logger.Info("dry run: would write page", "page", doc.ID, "bytes", len(next))
		outcome.Updated = true
		return outcome, nil
	}

	if err := s.writeWithRetry(ctx, logger, doc, next); err != nil {
		return outcome, err
	}
	outcome.Updated = true

	if len(plan.Labels) > 0 {
		if err := s.store.Add(ctx, doc.ID, plan.Labels); err != nil {
			return outcome, fmt.Errorf("add labels to %s: %w", doc.ID, err)
		}
	}

	meta := map[string]string{
		"spec_hash": checklist.Hash(plan.Spec),
		"run_token": token,
		"synced_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Upsert(ctx, doc.ID, PropertyKey, meta); err != nil {
		return outcome, fmt.Errorf("record sync metadata on %s: %w", doc.ID, err)
	}

	logger.Info("synced", "page", doc.ID, "created", outcome.Created)
	return outcome, nil
}

// Preview runs the full merge against the target and returns the resulting
// whole-page markup without writing anything. A by-title target that does
// not exist yet previews against an empty page; a by-ID target must exist.
func (s *Syncer) Preview(ctx context.Context, plan Plan) (string, error) {
	var doc *confluence.Document
	if plan.Target.PageID != "" {
		fetched, err := s.store.Fetch(ctx, plan.Target.PageID)
		if err != nil {
			return "", fmt.Errorf("fetch target %s: %w", plan.Target.PageID, err)
		}
		doc = fetched
	} else {
		fetched, err := s.store.FindByTitle(ctx, plan.Target.SpaceKey, plan.Target.PageTitle)
		switch {
		case err == nil:
			doc = fetched
		case confluence.IsNotFound(err):
			doc = &confluence.Document{Title: plan.Target.PageTitle, SpaceKey: plan.Target.SpaceKey}
		default:
			return "", fmt.Errorf("find target %s/%s: %w", plan.Target.SpaceKey, plan.Target.PageTitle, err)
		}
	}

	tree, err := storage.ParseFragment(doc.Body)
	if err != nil {
		return "", fmt.Errorf("parse page %s: %w", doc.ID, err)
	}
	region := plan.Spec.Region()
	index := merge.ParseRegion(s.logger, tree, region)
	ids := merge.CollectTaskIDs(tree)
	content := merge.NewEngine(s.logger, s.clock).Render(plan.Spec, index, ids,
		merge.Options{KeepRemoved: plan.KeepRemoved})
	merge.ReplaceRegion(tree, region, content)
	return tree.Render(), nil
}

// resolveTarget turns a Target into a fetched document. Sync-by-ID against
// a missing page is fatal; sync-by-title creates the page when absent
// (except in dry run, which substitutes an empty placeholder).
func (s *Syncer) resolveTarget(ctx context.Context, logger *slog.Logger, t Target) (*confluence.Document, bool, error) {
	if t.PageID != "" {
		doc, err := s.store.Fetch(ctx, t.PageID)
		if err != nil {
			return nil, false, fmt.Errorf("fetch target %s: %w", t.PageID, err)
		}
		return doc, false, nil
	}

	doc, err := s.store.FindByTitle(ctx, t.SpaceKey, t.PageTitle)
	if err == nil {
		return doc, false, nil
	}
	if !confluence.IsNotFound(err) {
		return nil, false, fmt.Errorf("find target %s/%s: %w", t.SpaceKey, t.PageTitle, err)
	}

	if s.dryRun {
		logger.Info("dry run: would create page", "space", t.SpaceKey, "title", t.PageTitle)
		return &confluence.Document{
			Title: t.PageTitle, SpaceKey: t.SpaceKey, Type: "page",
		}, true, nil
	}

	id, err := s.store.Create(ctx, t.SpaceKey, t.PageTitle, "", t.ParentID)
	if err != nil {
		return nil, false, fmt.Errorf("create target %s/%s: %w", t.SpaceKey, t.PageTitle, err)
	}
	doc, err = s.store.Fetch(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("fetch created target %s: %w", id, err)
	}
	return doc, true, nil
}

// writeWithRetry issues the write, and on version conflict re-fetches only
// the current version number and re-issues the same content, at most
// writeRetries times. Transport failures are surfaced immediately.
func (s *Syncer) writeWithRetry(ctx context.Context, logger *slog.Logger, doc *confluence.Document, body string) error {
	version := doc.Version
	for attempt := 0; ; attempt++ {
		err := s.store.Write(ctx, doc.ID, doc.Title, body, version)
		if err == nil {
			return nil
		}
		if !confluence.IsConflict(err) {
			return fmt.Errorf("write page %s: %w", doc.ID, err)
		}
		if attempt >= writeRetries {
			return fmt.Errorf("write page %s: %w", doc.ID, err)
		}

		logger.Warn("version conflict, retrying with same content",
			"page", doc.ID, "attempt", attempt+1, "stale_version", version)
		current, fetchErr := s.store.Fetch(ctx, doc.ID)
		if fetchErr != nil {
			return fmt.Errorf("refetch page %s after conflict: %w", doc.ID, fetchErr)
		}
		version = current.Version
	}
}
