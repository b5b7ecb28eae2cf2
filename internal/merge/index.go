package merge

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// ExistingItem is the recoverable state of one task already on the page,
// keyed by the external ID found in its marker.
type ExistingItem struct {
	// ExternalID is the merge key recovered from the body's anchor marker.
	ExternalID string

	// Status is normalized: anything but "complete" parses as incomplete.
	Status string

	// TaskID is the structural identifier previously assigned by a render,
	// valid only when Assigned is true. A task element missing its
	// ac:task-id parses as unassigned and gets a fresh ID on render.
	TaskID   int64
	Assigned bool

	// Body is a deep copy of the ac:task-body subtree, carried forward
	// verbatim on render.
	Body *storage.Node
}

// ExistingIndex maps external IDs to prior task state, preserving the
// document order in which IDs were first seen.
type ExistingIndex struct {
	items map[string]*ExistingItem
	order []string
}

// Lookup returns the prior state for an external ID, if any.
func (ix *ExistingIndex) Lookup(externalID string) (*ExistingItem, bool) {
	it, ok := ix.items[externalID]
	return it, ok
}

// Len returns the number of indexed items.
func (ix *ExistingIndex) Len() int { return len(ix.items) }

// IDs returns the indexed external IDs in document order.
func (ix *ExistingIndex) IDs() []string { return ix.order }

// ParseRegion builds the existing-item index for the named managed region.
//
// The first expand macro whose title parameter equals regionTitle is
// authoritative; if the page has no such region the index is empty and every
// spec item renders as new. Within the region, tasks are indexed by the
// external ID carried in their body's anchor marker. Two documented edge
// cases apply: a body holding several markers resolves to the last one, and
// a task with no marker at all is unmatchable and therefore excluded, which
// drops it from the region on the next render. Both are logged so operators
// can see them happening.
func ParseRegion(logger *slog.Logger, doc *storage.Node, regionTitle string) *ExistingIndex {
	ix := &ExistingIndex{items: make(map[string]*ExistingItem)}

	region := findRegion(doc, regionTitle)
	if region == nil {
		return ix
	}

	tasks := region.FindAll(func(n *storage.Node) bool { return n.IsElement(tagTask) })
	for _, task := range tasks {
		item := parseTask(task)

		markers := item.Body.FindAll(func(n *storage.Node) bool { return isMacro(n, macroAnchor) })
		switch {
		case len(markers) == 0:
			logger.Warn("orphaned task: no identity marker in body, task will be dropped on next render",
				"region", regionTitle,
				"status", item.Status)
			continue
		case len(markers) > 1:
			logger.Warn("ambiguous task: multiple identity markers in one body, using the last",
				"region", regionTitle,
				"markers", len(markers),
				"chosen", markerID(markers[len(markers)-1]))
		}
		item.ExternalID = markerID(markers[len(markers)-1])

		if _, seen := ix.items[item.ExternalID]; !seen {
			ix.order = append(ix.order, item.ExternalID)
		}
		ix.items[item.ExternalID] = item
	}

	return ix
}

// parseTask reads one ac:task element. Missing or unrecognized status
// normalizes to incomplete; a missing task ID parses as unassigned; the body
// is deep-copied so later region mutation cannot corrupt it.
func parseTask(task *storage.Node) *ExistingItem {
	item := &ExistingItem{
		Status: StatusIncomplete,
		Body:   storage.NewElement(tagTaskBody),
	}
	for _, c := range task.Children {
		switch {
		case c.IsElement(tagTaskStatus):
			if strings.TrimSpace(c.InnerText()) == StatusComplete {
				item.Status = StatusComplete
			}
		case c.IsElement(tagTaskID):
			if id, err := strconv.ParseInt(strings.TrimSpace(c.InnerText()), 10, 64); err == nil {
				item.TaskID = id
				item.Assigned = true
			}
		case c.IsElement(tagTaskBody):
			item.Body = c.Clone()
		}
	}
	return item
}
