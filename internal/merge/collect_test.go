package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectTaskIDsSpansWholeDocument(t *testing.T) {
	// One ID inside the managed region, one in a free-standing task list,
	// one in a second region. All must be collected.
	page := regionOpen +
		"<ac:task-list>" + task("10", "incomplete", marker("a")) + "</ac:task-list>" +
		regionClose +
		"<ac:task-list>" + task("20", "incomplete", "manual") + "</ac:task-list>" +
		`<ac:structured-macro ac:name="expand">` +
		`<ac:parameter ac:name="title">Other</ac:parameter><ac:rich-text-body>` +
		"<ac:task-list>" + task("30", "incomplete", marker("z")) + "</ac:task-list>" +
		regionClose

	set := CollectTaskIDs(mustParse(t, page))
	assert.True(t, set.Contains(10))
	assert.True(t, set.Contains(20))
	assert.True(t, set.Contains(30))
	assert.False(t, set.Contains(40))
}

func TestCollectTaskIDsSkipsMalformed(t *testing.T) {
	page := "<ac:task-list><ac:task><ac:task-id>not-a-number</ac:task-id>" +
		"<ac:task-body>x</ac:task-body></ac:task></ac:task-list>"
	set := CollectTaskIDs(mustParse(t, page))
	assert.Empty(t, set)
}

func TestCollectTaskIDsEmptyPage(t *testing.T) {
	set := CollectTaskIDs(mustParse(t, "<p>nothing</p>"))
	assert.Empty(t, set)
}
