// Package checklist defines the declarative checklist specification that the
// sync pipeline projects onto a Confluence page.
//
// A Spec is owned by the caller for the duration of one sync call and is
// never mutated by the merge engine. Item IDs are the permanent merge keys:
// they must be stable across revisions of the same checklist or previously
// recorded page state (checkbox status, body edits) will not be carried
// forward. ID uniqueness within a Spec is the author's responsibility and is
// not validated here.
package checklist

// Spec is one checklist: ordered sections of identified items.
type Spec struct {
	// Title is the optional display heading rendered at the top of the
	// managed region.
	Title string

	// RegionTitle names the managed region (the expand macro's title
	// parameter). Empty means "use Title".
	RegionTitle string

	Sections []Section
}

// Section is an optionally-headed ordered run of items.
type Section struct {
	Heading string
	Items   []Item
}

// Item is a single checklist entry. ID is the merge key; Text is only
// rendered when the item first appears on the page.
type Item struct {
	ID   string
	Text string
}

// Region returns the effective managed-region title.
func (s *Spec) Region() string {
	if s.RegionTitle != "" {
		return s.RegionTitle
	}
	return s.Title
}

// ItemIDs returns every item ID in specification order.
func (s *Spec) ItemIDs() []string {
	var ids []string
	for _, sec := range s.Sections {
		for _, it := range sec.Items {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
