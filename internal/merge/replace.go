package merge

import (
	"github.com/jmandel/confluence-checklist-syncer/internal/storage"
)

// ReplaceRegion splices rendered content into the page tree in place.
//
// If a region with the given title exists (first match in document order,
// same selection rule as ParseRegion), only its inner content is replaced;
// everything around it is untouched. Otherwise a brand-new region is
// appended to the end of the page. First sync and every later sync share
// this one code path.
func ReplaceRegion(doc *storage.Node, regionTitle string, content []*storage.Node) {
	region := findRegion(doc, regionTitle)
	if region == nil {
		doc.Append(newRegion(regionTitle, content))
		return
	}

	body := regionBody(region)
	if body == nil {
		// A hand-emptied region macro; give it back its body container.
		body = storage.NewElement(tagRichTextBody)
		region.Append(body)
	}
	body.Children = content
}
