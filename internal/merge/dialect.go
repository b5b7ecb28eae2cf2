package merge

import (
	"strings"

	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// Storage-format vocabulary the merge core depends on. The managed region is
// an expand macro selected by its title parameter; the marker is an anchor
// macro, which Confluence does not render visibly.
const (
	tagMacro        = "ac:structured-macro"
	tagParameter    = "ac:parameter"
	tagRichTextBody = "ac:rich-text-body"
	tagTaskList     = "ac:task-list"
	tagTask         = "ac:task"
	tagTaskID       = "ac:task-id"
	tagTaskStatus   = "ac:task-status"
	tagTaskBody     = "ac:task-body"

	attrMacroName = "ac:name"
	attrParamName = "ac:name"

	macroExpand = "expand"
	macroAnchor = "anchor"
)

// Task status tokens as stored by Confluence.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
)

func isMacro(n *storage.Node, name string) bool {
	return n.IsElement(tagMacro) && n.Attr(attrMacroName) == name
}

// macroParam returns the trimmed text of the macro's named parameter, and
// whether the parameter exists. Only direct children are considered.
func macroParam(macro *storage.Node, name string) (string, bool) {
	for _, c := range macro.Children {
		if c.IsElement(tagParameter) && c.Attr(attrParamName) == name {
			return strings.TrimSpace(c.InnerText()), true
		}
	}
	return "", false
}

// findRegion returns the first expand macro in document order whose title
// parameter equals title, or nil.
func findRegion(doc *storage.Node, title string) *storage.Node {
	return doc.FindFirst(func(n *storage.Node) bool {
		if !isMacro(n, macroExpand) {
			return false
		}
		got, ok := macroParam(n, "title")
		return ok && got == title
	})
}

// regionBody returns the region macro's rich-text-body child, or nil.
func regionBody(region *storage.Node) *storage.Node {
	for _, c := range region.Children {
		if c.IsElement(tagRichTextBody) {
			return c
		}
	}
	return nil
}

// markerID extracts the external ID carried by an anchor marker macro.
func markerID(marker *storage.Node) string {
	id, _ := macroParam(marker, "")
	return id
}

// newMarker builds the hidden anchor macro for an external ID.
func newMarker(externalID string) *storage.Node {
	param := storage.NewElement(tagParameter, storage.Attr{Key: attrParamName, Value: ""}).
		Append(storage.NewText(externalID))
	return storage.NewElement(tagMacro, storage.Attr{Key: attrMacroName, Value: macroAnchor}).
		Append(param)
}

// newRegion builds a fresh expand macro with the given title and content.
func newRegion(title string, content []*storage.Node) *storage.Node {
	param := storage.NewElement(tagParameter, storage.Attr{Key: attrParamName, Value: "title"}).
		Append(storage.NewText(title))
	body := storage.NewElement(tagRichTextBody).Append(content...)
	return storage.NewElement(tagMacro, storage.Attr{Key: attrMacroName, Value: macroExpand}).
		Append(param, body)
}
