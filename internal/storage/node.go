package storage

// NodeType discriminates the kinds of tree nodes.
type NodeType int

const (
	// ElementNode is a tag with attributes and children.
	ElementNode NodeType = iota
	// TextNode is character data. Text holds the decoded content.
	TextNode
	// CommentNode is an XML comment. Text holds the comment body.
	CommentNode
	// CDATANode is a CDATA section preserved as-is on output.
	CDATANode
)

// Attr is a single attribute with its name kept verbatim ("ac:name").
type Attr struct {
	Key   string
	Value string
}

// Node is one node of a storage-format tree.
//
// Element names are stored as written in the markup, prefix included.
// A parsed fragment hangs off a synthetic root node with an empty Tag;
// predicates that match on Tag never select it.
type Node struct {
	Type     NodeType
	Tag      string // element name, empty for the fragment root
	Attrs    []Attr
	Text     string // text, comment, or CDATA content
	Children []*Node
}

// NewElement builds an element node.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Type: ElementNode, Tag: tag, Attrs: attrs}
}

// NewText builds a text node.
func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// Append adds children and returns the node for chaining while building
// render output.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the value of the named attribute, or "" if absent.
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// IsElement reports whether n is an element with the given tag.
func (n *Node) IsElement(tag string) bool {
	return n.Type == ElementNode && n.Tag == tag
}

// InnerText returns the concatenation of all descendant text nodes.
// Comments and CDATA are excluded.
func (n *Node) InnerText() string {
	var out string
	walk(n, func(c *Node) bool {
		if c.Type == TextNode {
			out += c.Text
		}
		return true
	})
	return out
}

// FindFirst returns the first node in document order (depth-first,
// self included) satisfying pred, or nil.
func (n *Node) FindFirst(pred func(*Node) bool) *Node {
	var found *Node
	walk(n, func(c *Node) bool {
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node in document order satisfying pred.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var found []*Node
	walk(n, func(c *Node) bool {
		if pred(c) {
			found = append(found, c)
		}
		return true
	})
	return found
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	c := &Node{Type: n.Type, Tag: n.Tag, Text: n.Text}
	if len(n.Attrs) > 0 {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// walk visits n and its descendants in document order. Returning false
// from visit stops the traversal.
func walk(n *Node, visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
