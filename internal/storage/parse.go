package storage

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseFragment parses storage-format markup into a tree under a synthetic
// root node. The input may have any number of top-level elements, including
// zero (an empty page body parses to a root with no children).
//
// The tokenizer runs in non-strict mode: HTML character entities are
// decoded, and the undeclared ac:/ri: prefixes are kept as literal parts of
// element and attribute names.
func ParseFragment(markup string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	root := &Node{Type: ElementNode}
	stack := []*Node{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse storage markup: %w", err)
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Type: ElementNode, Tag: rawName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Key: rawName(a.Name), Value: a.Value})
			}
			top.Children = append(top.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			// Non-strict mode can surface stray end tags; never pop the root.
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.Children = append(top.Children, &Node{Type: TextNode, Text: string(t)})
		case xml.Comment:
			top.Children = append(top.Children, &Node{Type: CommentNode, Text: string(t)})
		}
	}

	return root, nil
}

// rawName reconstructs the name as written. The decoder reports an unbound
// prefix ("ac", "ri") as the Space, so joining with a colon restores the
// original spelling.
func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
