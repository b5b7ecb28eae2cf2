package merge

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/jmandel/confluence-checklist-syncer/internal/checklist"
	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// Clock supplies wall-clock time for task ID allocation.
// Implemented by SystemClock (production) and testutil.FixedClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// RemovedHeading titles the trailing appendix that holds retained tasks
// whose external IDs are no longer in the spec.
const RemovedHeading = "Removed items"

// Options configures a render pass.
type Options struct {
	// KeepRemoved retains tasks whose external ID has left the spec,
	// moving them to a trailing appendix instead of dropping them.
	KeepRemoved bool
}

// Engine merges a checklist spec with the state recovered from the page and
// renders replacement content for the managed region.
//
// The engine never mutates the spec and never retries; a render pass is a
// pure function of (spec, index, reserved IDs, clock).
type Engine struct {
	logger *slog.Logger
	clock  Clock
}

// NewEngine creates a merge engine. A nil clock defaults to SystemClock; a
// nil logger defaults to slog.Default().
func NewEngine(logger *slog.Logger, clock Clock) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{logger: logger, clock: clock}
}

// Render produces the complete replacement content for the managed region:
// optional display-title heading, each section's heading and task list in
// spec order, then (optionally) the removed-item appendix.
//
// Per item: status carries over only from the page (a spec can never mark
// anything complete), the structural task ID carries over when one was
// assigned, and a prior body is reused verbatim even when the spec's
// display text for that item has changed. Fresh items get marker + display
// text and start incomplete.
//
// ids is mutated: every ID the render uses, carried or allocated, is
// reserved in it before the next allocation happens.
func (e *Engine) Render(spec *checklist.Spec, index *ExistingIndex, ids IDSet, opts Options) []*storage.Node {
	var content []*storage.Node

	if spec.Title != "" {
		content = append(content, heading("h2", spec.Title))
	}

	rendered := make(map[string]bool)
	for _, sec := range spec.Sections {
		if sec.Heading != "" {
			content = append(content, heading("h3", sec.Heading))
		}
		list := storage.NewElement(tagTaskList)
		for _, it := range sec.Items {
			prior, _ := index.Lookup(it.ID)
			list.Append(e.renderTask(it, prior, ids))
			rendered[it.ID] = true
		}
		content = append(content, list)
	}

	if opts.KeepRemoved {
		if appendix := e.renderRemoved(index, rendered, ids); appendix != nil {
			content = append(content, appendix...)
		}
	}

	return content
}

// renderRemoved renders retained tasks for external IDs present in the
// index but absent from the spec, in index (document) order. Returns nil
// when nothing was removed.
func (e *Engine) renderRemoved(index *ExistingIndex, rendered map[string]bool, ids IDSet) []*storage.Node {
	list := storage.NewElement(tagTaskList)
	for _, id := range index.IDs() {
		if rendered[id] {
			continue
		}
		prior, _ := index.Lookup(id)
		list.Append(e.renderTask(checklist.Item{ID: id}, prior, ids))
	}
	if len(list.Children) == 0 {
		return nil
	}
	return []*storage.Node{heading("h3", RemovedHeading), list}
}

// renderTask builds one ac:task element, carrying prior state when it
// exists and synthesizing a fresh task otherwise.
func (e *Engine) renderTask(it checklist.Item, prior *ExistingItem, ids IDSet) *storage.Node {
	status := StatusIncomplete
	var taskID int64
	var body *storage.Node

	if prior != nil {
		if prior.Status == StatusComplete {
			status = StatusComplete
		}
		if prior.Assigned {
			taskID = prior.TaskID
			ids.Reserve(taskID)
		} else {
			taskID = e.allocateID(ids)
		}
		body = ensureMarker(prior.Body.Clone(), it.ID)
	} else {
		taskID = e.allocateID(ids)
		body = storage.NewElement(tagTaskBody).Append(newMarker(it.ID), storage.NewText(it.Text))
	}

	return storage.NewElement(tagTask).Append(
		storage.NewElement(tagTaskID).Append(storage.NewText(strconv.FormatInt(taskID, 10))),
		storage.NewElement(tagTaskStatus).Append(storage.NewText(status)),
		body,
	)
}

// allocateID reserves and returns the first free task ID at or above the
// current wall clock in milliseconds. Linear probing keeps a single pass
// collision-free; the timestamp seed keeps sequential runs collision-free
// under normal clock behavior. No cross-process guarantee.
func (e *Engine) allocateID(ids IDSet) int64 {
	candidate := e.clock.Now().UnixMilli()
	for ids.Contains(candidate) {
		candidate++
	}
	ids.Reserve(candidate)
	return candidate
}

// ensureMarker guarantees the body subtree carries exactly its identity
// marker, inserting one at the front if a carried-over body lost it. Bodies
// that came through the index always have a marker already; this protects
// the invariant rather than a path the parser can normally reach.
func ensureMarker(body *storage.Node, externalID string) *storage.Node {
	has := body.FindFirst(func(n *storage.Node) bool { return isMacro(n, macroAnchor) })
	if has == nil {
		body.Children = append([]*storage.Node{newMarker(externalID)}, body.Children...)
	}
	return body
}

func heading(tag, text string) *storage.Node {
	return storage.NewElement(tag).Append(storage.NewText(text))
}
