// Package dom is a read-only view over a parsed golang.org/x/net/html tree.
// It exposes only what the context extractor and image locator need:
// navigation, tag names, attribute lookup and visible text.
package dom

import (
    "fmt"
    "io"
    "strings"
    "unicode"

    "golang.org/x/net/html"
    "golang.org/x/net/html/atom"
    "golang.org/x/net/html/charset"
)

// Parse decodes r according to contentType (falling back to sniffing) and
// returns the document node of the parsed tree.
func Parse(r io.Reader, contentType string) (*html.Node, error) {
    decoded, err := charset.NewReader(r, contentType)
    if err != nil {
        return nil, fmt.Errorf("decode charset: %w", err)
    }
    doc, err := html.Parse(decoded)
    if err != nil {
        return nil, fmt.Errorf("parse html: %w", err)
    }
    return doc, nil
}

// ParseFragment parses an HTML snippet as if it appeared inside <body>.
// The returned top-level nodes have no parent.
func ParseFragment(r io.Reader) ([]*html.Node, error) {
    body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
    nodes, err := html.ParseFragment(r, body)
    if err != nil {
        return nil, fmt.Errorf("parse fragment: %w", err)
    }
    return nodes, nil
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
    return n != nil && n.Type == html.ElementNode
}

// Tag returns the lower-case tag name of an element, or "" for anything else.
func Tag(n *html.Node) string {
    if !IsElement(n) {
        return ""
    }
    return strings.ToLower(n.Data)
}

// Parent returns the parent of n, or nil.
func Parent(n *html.Node) *html.Node {
    if n == nil {
        return nil
    }
    return n.Parent
}

// Children returns the direct children of n in document order, including
// text and comment nodes.
func Children(n *html.Node) []*html.Node {
    if n == nil {
        return nil
    }
    var out []*html.Node
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        out = append(out, c)
    }
    return out
}

// ElementChildren returns only the element children of n.
func ElementChildren(n *html.Node) []*html.Node {
    if n == nil {
        return nil
    }
    var out []*html.Node
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        if c.Type == html.ElementNode {
            out = append(out, c)
        }
    }
    return out
}

// Attr returns the value of the first attribute named key. Repeated
// attributes are possible in malformed markup; the first one wins.
func Attr(n *html.Node, key string) (string, bool) {
    if !IsElement(n) {
        return "", false
    }
    for _, a := range n.Attr {
        if a.Namespace == "" && strings.EqualFold(a.Key, key) {
            return a.Val, true
        }
    }
    return "", false
}

// Descendants returns the element descendants of n (n excluded) whose tag is
// one of tags, in document order.
func Descendants(n *html.Node, tags ...string) []*html.Node {
    if n == nil || len(tags) == 0 {
        return nil
    }
    want := make(map[string]struct{}, len(tags))
    for _, t := range tags {
        want[strings.ToLower(t)] = struct{}{}
    }
    var out []*html.Node
    var walk func(*html.Node)
    walk = func(cur *html.Node) {
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            if c.Type == html.ElementNode {
                if _, ok := want[Tag(c)]; ok {
                    out = append(out, c)
                }
            }
            walk(c)
        }
    }
    walk(n)
    return out
}

// Text returns the visible text of the subtree rooted at n. Text nodes are
// trimmed and joined with a single space, then whitespace runs collapse.
func Text(n *html.Node) string {
    if n == nil {
        return ""
    }
    var parts []string
    var walk func(*html.Node)
    walk = func(cur *html.Node) {
        switch cur.Type {
        case html.TextNode:
            if s := strings.TrimSpace(cur.Data); s != "" {
                parts = append(parts, s)
            }
            return
        case html.ElementNode:
            switch Tag(cur) {
            case "script", "style", "template":
                return
            }
        case html.CommentNode, html.DoctypeNode:
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            walk(c)
        }
    }
    walk(n)
    return collapseSpaces(strings.Join(parts, " "))
}

func collapseSpaces(s string) string {
    var b strings.Builder
    b.Grow(len(s))
    lastSpace := false
    for _, r := range s {
        if unicode.IsSpace(r) {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return strings.TrimSpace(b.String())
}
