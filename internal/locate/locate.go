// Package locate finds the images of a parsed page that are worth describing.
package locate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultExtensions are the raster formats accepted by the captioning model.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Image is one embedded image of a page. URL is absolute; AltText and
// Context are trimmed.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
	Context string `json:"context"`
}

// Found pairs a located image with its node so that context can be
// extracted for it afterwards.
type Found struct {
	Image Image
	Node  *html.Node
}

// Locator scans documents for <img> elements with a supported extension.
type Locator struct {
	// Extensions lists accepted suffixes including the dot. Empty means
	// DefaultExtensions.
	Extensions []string
}

// Locate returns the supported images below root in document order. The
// source is read from src, or from data-src for lazy-loaded images, and
// resolved against baseURL.
func (l *Locator) Locate(root *html.Node, baseURL string) ([]Found, error) {
	if root == nil {
		return nil, nil
	}
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	exts := l.extensions()

	var out []Found
	goquery.NewDocumentFromNode(root).Find("img").Each(func(_ int, s *goquery.Selection) {
		src := sourceOf(s)
		if src == "" {
			return
		}
		resolved, ok := resolve(base, src)
		if !ok || !hasExtension(resolved, exts) {
			return
		}
		out = append(out, Found{
			Image: Image{
				URL:     resolved.String(),
				AltText: strings.TrimSpace(s.AttrOr("alt", "")),
			},
			Node: s.Get(0),
		})
	})
	return out, nil
}

func (l *Locator) extensions() []string {
	src := l.Extensions
	if len(src) == 0 {
		src = DefaultExtensions
	}
	out := make([]string, 0, len(src))
	for _, e := range src {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func sourceOf(s *goquery.Selection) string {
	if v := strings.TrimSpace(s.AttrOr("src", "")); v != "" {
		return v
	}
	return strings.TrimSpace(s.AttrOr("data-src", ""))
}

func resolve(base *url.URL, src string) (*url.URL, bool) {
	ref, err := url.Parse(src)
	if err != nil {
		return nil, false
	}
	u := base.ResolveReference(ref)
	if !u.IsAbs() {
		return nil, false
	}
	return u, true
}

// hasExtension matches the end of the whole resolved URL, query and fragment
// included, case-insensitively.
func hasExtension(u *url.URL, exts []string) bool {
	p := strings.ToLower(u.String())
	for _, e := range exts {
		if strings.HasSuffix(p, e) {
			return true
		}
	}
	return false
}
