package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regionOpen = `<ac:structured-macro ac:name="expand">` +
	`<ac:parameter ac:name="title">Checklist</ac:parameter><ac:rich-text-body>`

const regionClose = `</ac:rich-text-body></ac:structured-macro>`

func task(id, status, body string) string {
	s := "<ac:task>"
	if id != "" {
		s += "<ac:task-id>" + id + "</ac:task-id>"
	}
	if status != "" {
		s += "<ac:task-status>" + status + "</ac:task-status>"
	}
	return s + "<ac:task-body>" + body + "</ac:task-body></ac:task>"
}

func marker(externalID string) string {
	return `<ac:structured-macro ac:name="anchor">` +
		`<ac:parameter ac:name="">` + externalID + `</ac:parameter></ac:structured-macro>`
}

func TestParseRegionMissingRegion(t *testing.T) {
	ix := ParseRegion(discardLogger(), mustParse(t, "<p>no region here</p>"), "Checklist")
	assert.Zero(t, ix.Len())
}

func TestParseRegionBasicTask(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("42", "complete", marker("x")+"foo") + "</ac:task-list>" +
		regionClose

	ix := ParseRegion(discardLogger(), mustParse(t, page), "Checklist")
	require.Equal(t, 1, ix.Len())

	item, ok := ix.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, StatusComplete, item.Status)
	assert.Equal(t, int64(42), item.TaskID)
	assert.True(t, item.Assigned)
	assert.Contains(t, item.Body.Render(), "foo")
}

func TestParseRegionUnrecognizedStatus(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("1", "half-done", marker("x")) + "</ac:task-list>" +
		regionClose

	item, ok := ParseRegion(discardLogger(), mustParse(t, page), "Checklist").Lookup("x")
	require.True(t, ok)
	assert.Equal(t, StatusIncomplete, item.Status)
}

func TestParseRegionMissingTaskID(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("", "incomplete", marker("x")) + "</ac:task-list>" +
		regionClose

	item, ok := ParseRegion(discardLogger(), mustParse(t, page), "Checklist").Lookup("x")
	require.True(t, ok)
	assert.False(t, item.Assigned)
}

func TestParseRegionOrphanExcluded(t *testing.T) {
	// No marker anywhere in the body: the task is unmatchable and must be
	// left out of the index. This is the documented data-loss edge.
	page := regionOpen +
		"<ac:task-list>" +
		task("1", "incomplete", "no marker here") +
		task("2", "incomplete", marker("y")+"kept") +
		"</ac:task-list>" +
		regionClose

	ix := ParseRegion(discardLogger(), mustParse(t, page), "Checklist")
	assert.Equal(t, 1, ix.Len())
	_, ok := ix.Lookup("y")
	assert.True(t, ok)
}

func TestParseRegionLastMarkerWins(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("7", "incomplete", marker("first")+"text"+marker("second")) +
		"</ac:task-list>" + regionClose

	ix := ParseRegion(discardLogger(), mustParse(t, page), "Checklist")
	_, hasFirst := ix.Lookup("first")
	assert.False(t, hasFirst)

	item, ok := ix.Lookup("second")
	require.True(t, ok)
	assert.Equal(t, int64(7), item.TaskID)
}

func TestParseRegionFirstRegionWins(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("1", "incomplete", marker("a")) + "</ac:task-list>" +
		regionClose +
		regionOpen +
		"<ac:task-list>" + task("2", "incomplete", marker("b")) + "</ac:task-list>" +
		regionClose

	ix := ParseRegion(discardLogger(), mustParse(t, page), "Checklist")
	_, hasA := ix.Lookup("a")
	assert.True(t, hasA)
	_, hasB := ix.Lookup("b")
	assert.False(t, hasB)
}

func TestParseRegionIndexOrderIsDocumentOrder(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" +
		task("1", "incomplete", marker("c")) +
		task("2", "incomplete", marker("a")) +
		task("3", "incomplete", marker("b")) +
		"</ac:task-list>" +
		regionClose

	ix := ParseRegion(discardLogger(), mustParse(t, page), "Checklist")
	assert.Equal(t, []string{"c", "a", "b"}, ix.IDs())
}

func TestParseRegionBodyIsDeepCopy(t *testing.T) {
	page := regionOpen +
		"<ac:task-list>" + task("1", "incomplete", marker("x")+"original") + "</ac:task-list>" +
		regionClose

	doc := mustParse(t, page)
	ix := ParseRegion(discardLogger(), doc, "Checklist")
	item, _ := ix.Lookup("x")

	// Mutating the page tree afterwards must not reach the indexed body.
	ReplaceRegion(doc, "Checklist", nil)
	assert.Contains(t, item.Body.Render(), "original")
}
