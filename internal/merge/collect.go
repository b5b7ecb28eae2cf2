package merge

import (
	"strconv"
	"strings"

	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// IDSet tracks structural task IDs in use, and doubles as the reservation
// set during a render pass.
type IDSet map[int64]struct{}

// Contains reports whether id is taken.
func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Reserve marks id as taken.
func (s IDSet) Reserve(id int64) { s[id] = struct{}{} }

// CollectTaskIDs scans the entire document, not just any one region, for
// every ac:task-id in use. Task IDs must be unique page-wide: a page may
// host several managed regions plus hand-written task lists, and a freshly
// allocated ID must collide with none of them. Malformed (non-numeric) ID
// text is skipped; Confluence only ever writes numeric task IDs.
func CollectTaskIDs(doc *storage.Node) IDSet {
	set := make(IDSet)
	for _, n := range doc.FindAll(func(n *storage.Node) bool { return n.IsElement(tagTaskID) }) {
		if id, err := strconv.ParseInt(strings.TrimSpace(n.InnerText()), 10, 64); err == nil {
			set.Reserve(id)
		}
	}
	return set
}
