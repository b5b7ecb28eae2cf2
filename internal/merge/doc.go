// Package merge is the reconciliation core of the checklist syncer.
//
// Each sync run projects a checklist spec onto the page's managed region
// while preserving everything the page's readers have done to it since the
// last run: checked boxes, edited task bodies, appended mentions. Identity
// across runs is never positional; it hangs entirely on a hidden anchor
// macro embedded in each task body that carries the item's external ID.
//
// Pipeline per target, in order:
//
//  1. ParseRegion builds an index of matchable tasks from the current page.
//  2. CollectTaskIDs gathers every task ID in use anywhere on the page.
//  3. Engine.Render produces replacement region content, carrying prior
//     state forward and allocating fresh task IDs against the collected set.
//  4. ReplaceRegion splices the content into the page (or appends a new
//     region on first sync).
//  5. Equivalent decides whether the result differs materially from what is
//     already stored, gating the write.
//
// Known, deliberate behaviors rather than bugs:
//
//   - A body hand-edited to contain two anchor markers resolves to the last
//     one in document order. Logged, not an error.
//   - A task whose body has no discoverable marker cannot be matched and is
//     dropped from the region on the next render. Logged, not an error.
//   - Task ID allocation seeds from wall-clock milliseconds and probes
//     upward. Unique within a pass and, with a sane clock, across
//     sequential runs; no guarantee across concurrent processes or clock
//     rollback.
package merge
