package dom

import (
    "strings"
    "testing"

    "golang.org/x/net/html"
)

func mustParse(t *testing.T, s string) *html.Node {
    t.Helper()
    doc, err := Parse(strings.NewReader(s), "text/html; charset=utf-8")
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    return doc
}

func first(t *testing.T, root *html.Node, tag string) *html.Node {
    t.Helper()
    found := Descendants(root, tag)
    if len(found) == 0 {
        t.Fatalf("no <%s> in document", tag)
    }
    return found[0]
}

func TestText_CollapsesAndSeparatesElements(t *testing.T) {
    doc := mustParse(t, "<div><p>Hello\n\t  <b>big</b>world</p><span>  again </span></div>")
    div := first(t, doc, "div")
    if got := Text(div); got != "Hello big world again" {
        t.Fatalf("Text = %q", got)
    }
}

func TestText_SkipsScriptStyleAndComments(t *testing.T) {
    doc := mustParse(t, `<div>Visible<script>var x = 1;</script><style>p{}</style><!-- hidden --> text</div>`)
    if got := Text(first(t, doc, "div")); got != "Visible text" {
        t.Fatalf("Text = %q", got)
    }
}

func TestText_NilAndEmpty(t *testing.T) {
    if Text(nil) != "" {
        t.Fatalf("expected empty text for nil")
    }
    doc := mustParse(t, "<div></div>")
    if got := Text(first(t, doc, "div")); got != "" {
        t.Fatalf("expected empty, got %q", got)
    }
}

func TestAttr_FirstValueAndMissing(t *testing.T) {
    doc := mustParse(t, `<img src="a.jpg" SRC="b.jpg">`)
    img := first(t, doc, "img")
    if v, ok := Attr(img, "src"); !ok || v != "a.jpg" {
        t.Fatalf("Attr(src) = %q, %v", v, ok)
    }
    if _, ok := Attr(img, "alt"); ok {
        t.Fatalf("expected missing alt")
    }
    if _, ok := Attr(nil, "src"); ok {
        t.Fatalf("expected nil node to have no attributes")
    }
}

func TestDescendants_DocumentOrderExcludesSelf(t *testing.T) {
    doc := mustParse(t, `<div id="outer"><p>1</p><div><span>2</span><p>3</p></div></div>`)
    outer := first(t, doc, "div")
    got := Descendants(outer, "p", "div", "span")
    var tags []string
    for _, n := range got {
        tags = append(tags, Tag(n))
    }
    if strings.Join(tags, ",") != "p,div,span,p" {
        t.Fatalf("order = %v", tags)
    }
    for _, n := range got {
        if n == outer {
            t.Fatalf("root must not be included")
        }
    }
}

func TestChildrenAndParent(t *testing.T) {
    doc := mustParse(t, `<div>text<p>a</p><!-- c --><span>b</span></div>`)
    div := first(t, doc, "div")
    if n := len(Children(div)); n != 4 {
        t.Fatalf("Children = %d, want 4", n)
    }
    el := ElementChildren(div)
    if len(el) != 2 || Tag(el[0]) != "p" || Tag(el[1]) != "span" {
        t.Fatalf("unexpected element children")
    }
    if Parent(el[0]) != div {
        t.Fatalf("parent mismatch")
    }
    if Parent(nil) != nil || Children(nil) != nil {
        t.Fatalf("nil handling")
    }
}

func TestParseFragment_TopLevelHasNoParent(t *testing.T) {
    nodes, err := ParseFragment(strings.NewReader(`<div><img src="a.jpg"></div><p>x</p>`))
    if err != nil {
        t.Fatalf("parse fragment: %v", err)
    }
    if len(nodes) != 2 {
        t.Fatalf("expected 2 top-level nodes, got %d", len(nodes))
    }
    for _, n := range nodes {
        if n.Parent != nil {
            t.Fatalf("top-level node %q has a parent", Tag(n))
        }
    }
}

func TestParse_DecodesLatin1(t *testing.T) {
    body := "<p>Z\xfcrich</p>"
    doc, err := Parse(strings.NewReader(body), "text/html; charset=iso-8859-1")
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if got := Text(first(t, doc, "p")); got != "Zürich" {
        t.Fatalf("Text = %q", got)
    }
}
