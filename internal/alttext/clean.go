package alttext

import (
    "strings"

    "golang.org/x/text/unicode/norm"
)

// CleanAltText tidies a model answer: surrounding whitespace and one pair of
// straight quotes are removed, a common mojibake of ß is repaired and the
// result is NFC normalized.
func CleanAltText(s string) string {
    s = strings.TrimSpace(s)
    s = strings.ReplaceAll(s, "ÃŸ", "ss")
    if s == "" {
        return ""
    }
    if len(s) >= 2 {
        first, last := s[0], s[len(s)-1]
        if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
            s = s[1 : len(s)-1]
        }
    }
    return norm.NFC.String(strings.TrimSpace(s))
}
