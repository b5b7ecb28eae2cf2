package storage

import "strings"

// Render serializes the subtree rooted at n back to storage-format markup.
// If n is a fragment root (empty Tag) only its children are rendered.
func (n *Node) Render() string {
	var b strings.Builder
	renderNode(&b, n)
	return b.String()
}

// RenderChildren serializes only n's children, in order.
func (n *Node) RenderChildren() string {
	var b strings.Builder
	for _, c := range n.Children {
		renderNode(&b, c)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *Node) {
	switch n.Type {
	case ElementNode:
		if n.Tag == "" { // fragment root
			for _, c := range n.Children {
				renderNode(b, c)
			}
			return
		}
		b.WriteByte('<')
		b.WriteString(n.Tag)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(escapeAttr(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString(" />")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			renderNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	case TextNode:
		b.WriteString(escapeText(n.Text))
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Text)
		b.WriteString("-->")
	case CDATANode:
		b.WriteString("<![CDATA[")
		b.WriteString(n.Text)
		b.WriteString("]]>")
	}
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var attrEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
