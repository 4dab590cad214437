package extract

import (
    "errors"
    "strings"
    "unicode/utf8"

    "github.com/rs/zerolog/log"
    "golang.org/x/net/html"

    "github.com/hyperifyio/altscout/internal/dom"
    "github.com/hyperifyio/altscout/internal/textnorm"
)

// Priority tiers scanned in order inside every subtree. Headings and
// captions come first so that they survive the fragment cap.
var tiers = [][]string{
    {"h1", "h2", "h3", "h4", "h5", "h6"},
    {"figcaption", "caption"},
    {"p", "div", "span"},
}

// Config controls how far and how much context is collected per image.
type Config struct {
    // SearchDepth is the number of ancestor levels climbed from the image's
    // parent. Zero skips the upward phase.
    SearchDepth int
    // MaxFragments caps the number of fragments returned. Zero returns none.
    MaxFragments int
    // MinFragmentLength drops fragments whose raw text has this many
    // characters or fewer.
    MinFragmentLength int
    // NoisePhrases are removed from every fragment.
    NoisePhrases []string
    // AttributionMarker cuts a fragment at its first occurrence.
    AttributionMarker string
}

// DefaultConfig mirrors the settings used for the Canton of Zurich pages.
func DefaultConfig() Config {
    return Config{
        SearchDepth:       3,
        MaxFragments:      10,
        MinFragmentLength: 10,
        NoisePhrases:      append([]string(nil), textnorm.DefaultNoisePhrases...),
        AttributionMarker: textnorm.DefaultAttributionMarker,
    }
}

// Validate rejects negative limits. The extractor itself tolerates any input,
// so this is for callers that load configuration from outside.
func (c Config) Validate() error {
    if c.SearchDepth < 0 {
        return errors.New("extract: search depth must not be negative")
    }
    if c.MaxFragments < 0 {
        return errors.New("extract: max fragments must not be negative")
    }
    if c.MinFragmentLength < 0 {
        return errors.New("extract: min fragment length must not be negative")
    }
    return nil
}

// Extractor finds the text around an image node. It holds no per-call state
// and may be shared between goroutines as long as the document is not mutated.
type Extractor struct {
    cfg  Config
    norm textnorm.Normalizer
}

// New builds an Extractor from a copy of cfg.
func New(cfg Config) *Extractor {
    cfg.NoisePhrases = append([]string(nil), cfg.NoisePhrases...)
    return &Extractor{
        cfg:  cfg,
        norm: textnorm.New(cfg.NoisePhrases, cfg.AttributionMarker),
    }
}

// Config returns the configuration the extractor was built with.
func (e *Extractor) Config() Config {
    c := e.cfg
    c.NoisePhrases = append([]string(nil), e.cfg.NoisePhrases...)
    return c
}

// Context returns the fragments for img joined by newlines.
func (e *Extractor) Context(img *html.Node) string {
    return strings.Join(e.Fragments(img), "\n")
}

// Fragments collects context for img in three passes: ancestors, siblings and
// the parent's direct children. The result is normalized, deduplicated and
// holds at most MaxFragments entries.
func (e *Extractor) Fragments(img *html.Node) []string {
    if img == nil || e.cfg.MaxFragments <= 0 {
        return nil
    }
    w := &walk{e: e, visited: make(map[*html.Node]struct{})}
    w.upward(img)
    w.siblings(img)
    w.children(img)

    raw := w.texts
    if len(raw) > e.cfg.MaxFragments {
        raw = raw[:e.cfg.MaxFragments]
    }
    out := e.clean(raw)
    log.Debug().Int("raw", len(w.texts)).Int("kept", len(out)).Msg("context fragments")
    return out
}

// clean normalizes fragments, drops the ones that end up empty and keeps the
// first occurrence of each distinct text.
func (e *Extractor) clean(raw []string) []string {
    seen := make(map[string]struct{}, len(raw))
    out := make([]string, 0, len(raw))
    for _, t := range raw {
        t = e.norm.Normalize(t)
        if t == "" {
            continue
        }
        if _, dup := seen[t]; dup {
            continue
        }
        seen[t] = struct{}{}
        out = append(out, t)
    }
    return out
}

// walk is the state of one Fragments call.
type walk struct {
    e       *Extractor
    visited map[*html.Node]struct{}
    texts   []string
}

func (w *walk) full() bool { return len(w.texts) >= w.e.cfg.MaxFragments }

// upward scans up to SearchDepth ancestors, starting with the parent.
func (w *walk) upward(img *html.Node) {
    cur := dom.Parent(img)
    for depth := 0; cur != nil && depth < w.e.cfg.SearchDepth && !w.full(); depth++ {
        w.texts = append(w.texts, w.scan(cur)...)
        cur = dom.Parent(cur)
    }
}

// siblings scans every element sibling of img.
func (w *walk) siblings(img *html.Node) {
    parent := dom.Parent(img)
    if parent == nil || w.full() {
        return
    }
    for _, sib := range dom.Children(parent) {
        if w.full() {
            break
        }
        if sib == img || !dom.IsElement(sib) {
            continue
        }
        w.texts = append(w.texts, w.scan(sib)...)
    }
}

// children takes only the first fragment of each unvisited direct child of
// the parent, so structurally deep neighbours cannot flood the result.
func (w *walk) children(img *html.Node) {
    parent := dom.Parent(img)
    if parent == nil {
        return
    }
    for _, child := range dom.ElementChildren(parent) {
        if w.full() {
            return
        }
        if w.seen(child) {
            continue
        }
        if found := w.scan(child); len(found) > 0 {
            w.texts = append(w.texts, found[0])
        }
    }
}

func (w *walk) seen(n *html.Node) bool {
    _, ok := w.visited[n]
    return ok
}

// scan runs the priority scan over the subtree below root and marks root as
// visited. A root that was already visited yields nothing.
func (w *walk) scan(root *html.Node) []string {
    if root == nil || w.seen(root) {
        return nil
    }
    w.visited[root] = struct{}{}
    var out []string
    for _, tags := range tiers {
        for _, n := range dom.Descendants(root, tags...) {
            text := dom.Text(n)
            if utf8.RuneCountInString(text) > w.e.cfg.MinFragmentLength {
                out = append(out, text)
            }
        }
    }
    return out
}
