// Package textnorm cleans context fragments before they are handed to the
// captioning model: configured boilerplate phrases are removed and trailing
// source attributions are cut off.
package textnorm

import "strings"

// DefaultAttributionMarker starts a trailing image credit on the pages this
// tool was first built for ("Quelle: Statistisches Amt").
const DefaultAttributionMarker = "Quelle:"

// DefaultNoisePhrases are UI strings of the Canton of Zurich web platform
// that carry no information about an image.
var DefaultNoisePhrases = []string{
    "Bild im Vollbildmodus anzeigen",
    "Mehr erfahren",
    "Schliessen",
    "Auf dieser Seite",
    "Sie sind hier:",
    "Logo des Kantons Zürich",
    "Vorheriges Bild",
    "Nächstes Bild",
    "Ausgeblendete Navigationsebenen",
}

// Normalizer strips noise phrases and attributions from fragments. The zero
// value only trims whitespace.
type Normalizer struct {
    NoisePhrases      []string
    AttributionMarker string
}

// New returns a Normalizer holding its own copy of phrases.
func New(phrases []string, marker string) Normalizer {
    return Normalizer{
        NoisePhrases:      append([]string(nil), phrases...),
        AttributionMarker: marker,
    }
}

// Normalize removes every noise phrase (plain substring deletion), keeps only
// the text in front of the first attribution marker and trims the result.
// Inner whitespace left behind by a deletion is kept as is.
func (n Normalizer) Normalize(fragment string) string {
    s := fragment
    for _, p := range n.NoisePhrases {
        if p == "" {
            continue
        }
        s = strings.ReplaceAll(s, p, "")
    }
    if n.AttributionMarker != "" {
        if i := strings.Index(s, n.AttributionMarker); i >= 0 {
            s = s[:i]
        }
    }
    return strings.TrimSpace(s)
}
