package merge

import (
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmandel/confluence-checklist-syncer/internal/checklist"
	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
	"github.com/jmandel/confluence-checklist-syncer/internal/testutil"
)

// Shared helpers for the merge package tests.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParse(t *testing.T, markup string) *storage.Node {
	t.Helper()
	doc, err := storage.ParseFragment(markup)
	require.NoError(t, err)
	return doc
}

// syncPage runs the full merge pipeline against page markup and returns the
// resulting whole-page markup.
func syncPage(t *testing.T, page string, spec *checklist.Spec, clock Clock, opts Options) string {
	t.Helper()
	doc := mustParse(t, page)
	logger := discardLogger()
	index := ParseRegion(logger, doc, spec.Region())
	ids := CollectTaskIDs(doc)
	content := NewEngine(logger, clock).Render(spec, index, ids, opts)
	ReplaceRegion(doc, spec.Region(), content)
	return doc.Render()
}

// indexOf re-parses page markup and returns the existing-item index for the
// spec's region, round-tripping through the parser like a real second sync.
func indexOf(t *testing.T, page string, spec *checklist.Spec) *ExistingIndex {
	t.Helper()
	return ParseRegion(discardLogger(), mustParse(t, page), spec.Region())
}

var taskIDPattern = regexp.MustCompile(`<ac:task-id>(\d+)</ac:task-id>`)

func taskIDs(markup string) []string {
	var ids []string
	for _, m := range taskIDPattern.FindAllStringSubmatch(markup, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func fixedClock(ms int64) *testutil.FixedClock {
	return testutil.NewFixedClock(time.UnixMilli(ms))
}

func specOf(items ...checklist.Item) *checklist.Spec {
	return &checklist.Spec{
		RegionTitle: "Checklist",
		Sections:    []checklist.Section{{Items: items}},
	}
}
