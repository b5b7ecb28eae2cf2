// Package compiler turns CUE checklist definitions into sync plans.
//
// Checklists are authored as CUE structs under a top-level "checklist"
// field:
//
//	checklist: "onboarding": {
//		title:  "Engineer Onboarding"
//		region: "Onboarding Checklist" // optional, defaults to title
//		target: {space: "ENG", pageTitle: "Team Onboarding"}
//		labels: ["onboarding"]
//		keepRemoved: true
//		section: [{
//			heading: "Accounts"
//			item: [{id: "jira", text: "Request Jira access"}]
//		}]
//	}
//
// The compiler uses the CUE SDK's Go API directly (not a CLI subprocess)
// and reports errors with source positions where CUE provides them.
//
// Item IDs are the permanent merge keys, so the compiler rejects duplicates
// at authoring time; the merge core itself treats duplicate IDs as
// undefined behavior and does not re-validate.
package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/jmandel/confluence-checklist-syncer/internal/checklist"
	"github.com/jmandel/confluence-checklist-syncer/internal/syncer"
)

// CompileChecklist parses one CUE checklist struct into a sync plan.
//
// The value should be the checklist struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`checklist: "x": { ... }`)
//	plan, err := CompileChecklist(v.LookupPath(cue.ParsePath(`checklist."x"`)))
func CompileChecklist(v cue.Value) (*syncer.Plan, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	plan := &syncer.Plan{Spec: &checklist.Spec{}}

	// Checklist name from the struct label.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		plan.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if plan.Spec.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}
	if plan.Spec.RegionTitle, err = optionalString(v, "region"); err != nil {
		return nil, err
	}
	if plan.Spec.Region() == "" {
		return nil, &CompileError{
			Field:   "region",
			Message: "either title or region is required",
			Pos:     v.Pos(),
		}
	}

	if plan.Target, err = parseTarget(v); err != nil {
		return nil, err
	}
	if plan.Labels, err = parseLabels(v); err != nil {
		return nil, err
	}

	keepVal := v.LookupPath(cue.ParsePath("keepRemoved"))
	if keepVal.Exists() {
		keep, err := keepVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		plan.KeepRemoved = keep
	}

	if plan.Spec.Sections, err = parseSections(v); err != nil {
		return nil, err
	}

	if err := checkDuplicateIDs(plan.Spec, v.Pos()); err != nil {
		return nil, err
	}
	return plan, nil
}

func parseTarget(v cue.Value) (syncer.Target, error) {
	var t syncer.Target
	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return t, &CompileError{
			Field:   "target",
			Message: "target is required",
			Pos:     v.Pos(),
		}
	}

	var err error
	if t.PageID, err = optionalString(targetVal, "page"); err != nil {
		return t, err
	}
	if t.SpaceKey, err = optionalString(targetVal, "space"); err != nil {
		return t, err
	}
	if t.PageTitle, err = optionalString(targetVal, "pageTitle"); err != nil {
		return t, err
	}
	if t.ParentID, err = optionalString(targetVal, "parent"); err != nil {
		return t, err
	}

	if t.PageID == "" && (t.SpaceKey == "" || t.PageTitle == "") {
		return t, &CompileError{
			Field:   "target",
			Message: "target needs either page, or space and pageTitle",
			Pos:     targetVal.Pos(),
		}
	}
	return t, nil
}

func parseLabels(v cue.Value) ([]string, error) {
	labelsVal := v.LookupPath(cue.ParsePath("labels"))
	if !labelsVal.Exists() {
		return nil, nil
	}
	iter, err := labelsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var labels []string
	for iter.Next() {
		l, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

func parseSections(v cue.Value) ([]checklist.Section, error) {
	sectionVal := v.LookupPath(cue.ParsePath("section"))
	if !sectionVal.Exists() {
		return nil, &CompileError{
			Field:   "section",
			Message: "at least one section is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := sectionVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var sections []checklist.Section
	for iter.Next() {
		sec, err := parseSection(iter.Value())
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	if len(sections) == 0 {
		return nil, &CompileError{
			Field:   "section",
			Message: "at least one section is required",
			Pos:     sectionVal.Pos(),
		}
	}
	return sections, nil
}

func parseSection(v cue.Value) (checklist.Section, error) {
	var sec checklist.Section
	var err error
	if sec.Heading, err = optionalString(v, "heading"); err != nil {
		return sec, err
	}

	itemVal := v.LookupPath(cue.ParsePath("item"))
	if !itemVal.Exists() {
		return sec, &CompileError{
			Field:   "item",
			Message: "section needs an item list",
			Pos:     v.Pos(),
		}
	}
	iter, err := itemVal.List()
	if err != nil {
		return sec, formatCUEError(err)
	}
	for iter.Next() {
		it, err := parseItem(iter.Value())
		if err != nil {
			return sec, err
		}
		sec.Items = append(sec.Items, it)
	}
	return sec, nil
}

func parseItem(v cue.Value) (checklist.Item, error) {
	var it checklist.Item

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return it, &CompileError{Field: "item.id", Message: "id is required", Pos: v.Pos()}
	}
	id, err := idVal.String()
	if err != nil {
		return it, formatCUEError(err)
	}
	if strings.TrimSpace(id) == "" {
		return it, &CompileError{Field: "item.id", Message: "id must be non-empty", Pos: idVal.Pos()}
	}
	it.ID = id

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return it, &CompileError{Field: "item.text", Message: "text is required", Pos: v.Pos()}
	}
	if it.Text, err = textVal.String(); err != nil {
		return it, formatCUEError(err)
	}
	return it, nil
}

func checkDuplicateIDs(spec *checklist.Spec, pos token.Pos) error {
	seen := make(map[string]bool)
	for _, id := range spec.ItemIDs() {
		if seen[id] {
			return &CompileError{
				Field:   "item.id",
				Message: fmt.Sprintf("duplicate item id %q", id),
				Pos:     pos,
			}
		}
		seen[id] = true
	}
	return nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", nil
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
