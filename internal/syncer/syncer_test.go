package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmandel/confluence-checklist-syncer/internal/checklist"
	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
	"github.com/jmandel/confluence-checklist-syncer/internal/testutil"
)

type fixedTokens struct{ token string }

func (f fixedTokens) Generate() string { return f.token }

func newTestSyncer(store confluence.Store, opts ...Option) *Syncer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{
		WithClock(testutil.NewFixedClock(time.UnixMilli(1700000000000))),
		WithTokenGenerator(fixedTokens{token: "run-1"}),
	}
	return New(store, logger, append(base, opts...)...)
}

func plan(target Target) Plan {
	return Plan{
		Name:   "onboarding",
		Target: target,
		Spec: &checklist.Spec{
			RegionTitle: "Checklist",
			Sections: []checklist.Section{
				{Items: []checklist.Item{{ID: "x", Text: "foo"}}},
			},
		},
	}
}

func TestSyncCreatesMissingPage(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestSyncer(store)

	out, err := s.SyncOne(context.Background(),
		plan(Target{SpaceKey: "ENG", PageTitle: "Onboarding"}))
	require.NoError(t, err)

	assert.True(t, out.Created)
	assert.True(t, out.Updated)
	assert.Equal(t, 1, store.CreateCount())
	assert.Equal(t, 1, store.WriteCount())

	page := store.Page(out.PageID)
	require.NotNil(t, page)
	assert.Contains(t, page.Body, `<ac:parameter ac:name="title">Checklist</ac:parameter>`)
	assert.Contains(t, page.Body, `<ac:parameter ac:name="">x</ac:parameter>`)
}

func TestSyncByIDMissingIsFatal(t *testing.T) {
	s := newTestSyncer(testutil.NewMemStore())

	_, err := s.SyncOne(context.Background(), plan(Target{PageID: "nope"}))
	require.Error(t, err)
	assert.True(t, confluence.IsNotFound(err))
}

func TestSecondSyncIsNoOp(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestSyncer(store)
	p := plan(Target{SpaceKey: "ENG", PageTitle: "Onboarding"})

	first, err := s.SyncOne(context.Background(), p)
	require.NoError(t, err)
	require.True(t, first.Updated)

	p.Target = Target{PageID: first.PageID}
	second, err := s.SyncOne(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, second.Updated)
	assert.False(t, second.Created)
	assert.Equal(t, 1, store.WriteCount())
}

func TestStatusSurvivesResync(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestSyncer(store)
	p := plan(Target{SpaceKey: "ENG", PageTitle: "Onboarding"})

	first, err := s.SyncOne(context.Background(), p)
	require.NoError(t, err)

	// A reader checks the box directly in the store.
	page := store.Page(first.PageID)
	flipped := strings.Replace(page.Body, ">incomplete<", ">complete<", 1)
	require.NoError(t, store.Write(context.Background(), page.ID, page.Title, flipped, page.Version))

	// Re-sync with revised text; status and body must survive.
	p.Target = Target{PageID: first.PageID}
	p.Spec.Sections[0].Items[0].Text = "foo revised"
	_, err = s.SyncOne(context.Background(), p)
	require.NoError(t, err)

	final := store.Page(first.PageID)
	assert.Contains(t, final.Body, ">complete<")
	assert.Contains(t, final.Body, "foo")
	assert.NotContains(t, final.Body, "foo revised")
}

func TestConflictRetrySucceeds(t *testing.T) {
	store := testutil.NewMemStore()
	id := store.AddPage("ENG", "Onboarding", "")
	store.ScriptedConflicts = 1
	s := newTestSyncer(store)

	out, err := s.SyncOne(context.Background(), plan(Target{PageID: id}))
	require.NoError(t, err)
	assert.True(t, out.Updated)
	assert.Equal(t, 1, store.WriteCount())
}

func TestConflictRetryExhausted(t *testing.T) {
	store := testutil.NewMemStore()
	id := store.AddPage("ENG", "Onboarding", "")
	store.ScriptedConflicts = writeRetries + 1
	s := newTestSyncer(store)

	_, err := s.SyncOne(context.Background(), plan(Target{PageID: id}))
	require.Error(t, err)
	assert.True(t, confluence.IsConflict(err))
	assert.Zero(t, store.WriteCount())
}

func TestTransportFailureNotRetried(t *testing.T) {
	store := testutil.NewMemStore()
	id := store.AddPage("ENG", "Onboarding", "")
	store.WriteErr = &confluence.TransportError{Op: "write", StatusCode: 503}
	s := newTestSyncer(store)

	_, err := s.SyncOne(context.Background(), plan(Target{PageID: id}))
	require.Error(t, err)
	var te *confluence.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestBatchPartialFailure(t *testing.T) {
	store := testutil.NewMemStore()
	good := store.AddPage("ENG", "Good", "")
	s := newTestSyncer(store)

	bad := plan(Target{PageID: "missing"})
	bad.Name = "bad"
	ok := plan(Target{PageID: good})
	ok.Name = "good"

	outcomes := s.SyncAll(context.Background(), []Plan{bad, ok})
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, "bad", outcomes[0].Name)
	require.NoError(t, outcomes[1].Err)
	assert.True(t, outcomes[1].Updated)
}

func TestDryRunWritesNothing(t *testing.T) {
	store := testutil.NewMemStore()
	id := store.AddPage("ENG", "Onboarding", "<p>old</p>")
	s := newTestSyncer(store, WithDryRun(true))

	p := plan(Target{PageID: id})
	p.Labels = []string{"checklist"}
	out, err := s.SyncOne(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, out.Updated) // would have written
	assert.Zero(t, store.WriteCount())
	assert.Empty(t, store.Labels(id))
	assert.Nil(t, store.Property(id, PropertyKey))
	assert.Equal(t, "<p>old</p>", store.Page(id).Body)
}

func TestDryRunDoesNotCreate(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestSyncer(store, WithDryRun(true))

	out, err := s.SyncOne(context.Background(),
		plan(Target{SpaceKey: "ENG", PageTitle: "New Page"}))
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Zero(t, store.CreateCount())
}

func TestLabelsAndMetadataRecorded(t *testing.T) {
	store := testutil.NewMemStore()
	id := store.AddPage("ENG", "Onboarding", "")
	s := newTestSyncer(store)

	p := plan(Target{PageID: id})
	p.Labels = []string{"checklist", "onboarding"}
	_, err := s.SyncOne(context.Background(), p)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"checklist", "onboarding"}, store.Labels(id))

	prop := store.Property(id, PropertyKey)
	require.NotNil(t, prop)
	assert.Equal(t, checklist.Hash(p.Spec), prop.Value["spec_hash"])
	assert.Equal(t, "run-1", prop.Value["run_token"])
	assert.NotEmpty(t, prop.Value["synced_at"])
}
