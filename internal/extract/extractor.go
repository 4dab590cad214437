package extract

import "golang.org/x/net/html"

// ContextFinder is the capability the page scraper needs from the engine.
// Implementations must be deterministic and must not mutate the tree.
type ContextFinder interface {
    // Fragments returns the ordered context fragments for an image node.
    Fragments(img *html.Node) []string
}

var _ ContextFinder = (*Extractor)(nil)
