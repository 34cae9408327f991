package vdom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML fragment into node trees, one per
// top-level element or non-empty text run. Comment nodes become Null
// placeholders (that is how a live applier anchors absent conditional
// content), and a data-key attribute becomes the reconciliation key.
func ParseFragment(fragment string) ([]Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	parsed, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("vdom: parse fragment: %w", err)
	}
	var nodes []Node
	for _, n := range parsed {
		if converted, ok := fromHTMLNode(n); ok {
			nodes = append(nodes, converted)
		}
	}
	return nodes, nil
}

func fromHTMLNode(n *html.Node) (Node, bool) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil, false
		}
		return &Text{Content: n.Data}, true
	case html.CommentNode:
		return &Null{}, true
	case html.ElementNode:
		el := &Element{Tag: n.Data}
		for _, a := range n.Attr {
			if a.Key == "data-key" {
				el.Key = a.Val
				continue
			}
			el.Attrs = append(el.Attrs, Attr{Name: a.Key, Value: a.Val})
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if converted, ok := fromHTMLNode(child); ok {
				el.Children = append(el.Children, converted)
			}
		}
		return el, true
	default:
		return nil, false
	}
}

// RenderHTML renders a tree to HTML text. Null placeholders render as
// empty comments so their slots survive in the live document; component
// placeholders render as a mount-point element.
func RenderHTML(n Node) string {
	var b strings.Builder
	renderHTML(&b, n)
	return b.String()
}

func renderHTML(b *strings.Builder, n Node) {
	switch t := n.(type) {
	case *Text:
		b.WriteString(html.EscapeString(t.Content))
	case *Null:
		b.WriteString("<!---->")
	case *Component:
		fmt.Fprintf(b, `<div data-component="%s" data-component-kind="%s"></div>`,
			html.EscapeString(t.Name), html.EscapeString(t.CompKind))
	case *Element:
		b.WriteByte('<')
		b.WriteString(t.Tag)
		if t.Key != "" {
			fmt.Fprintf(b, ` data-key="%s"`, html.EscapeString(t.Key))
		}
		for _, a := range t.Attrs {
			fmt.Fprintf(b, ` %s="%s"`, a.Name, html.EscapeString(a.Value))
		}
		if isVoidTag(t.Tag) && len(t.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range t.Children {
			renderHTML(b, c)
		}
		b.WriteString("</")
		b.WriteString(t.Tag)
		b.WriteByte('>')
	}
}

func isVoidTag(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}
