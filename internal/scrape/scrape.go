// Package scrape turns a page URL into the list of its images with context.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/altscout/internal/dom"
	"github.com/hyperifyio/altscout/internal/extract"
	"github.com/hyperifyio/altscout/internal/locate"
)

// Outcome tells the caller why a scrape produced the images it did.
type Outcome int

const (
	// OutcomeNoDocument means the page could not be fetched or parsed.
	OutcomeNoDocument Outcome = iota
	// OutcomeNoImages means the page parsed but holds no supported image.
	OutcomeNoImages
	// OutcomeSuccess means at least one image was found.
	OutcomeSuccess
	// OutcomeDisallowed means robots.txt forbids fetching the page.
	OutcomeDisallowed
	// OutcomeInvalid means the page failed validation before the fetch.
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoDocument:
		return "no_document"
	case OutcomeNoImages:
		return "no_images"
	case OutcomeSuccess:
		return "success"
	case OutcomeDisallowed:
		return "disallowed"
	case OutcomeInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of scraping one page. Err is set for
// OutcomeNoDocument, OutcomeDisallowed and OutcomeInvalid.
type Result struct {
	URL     string
	Outcome Outcome
	Images  []locate.Image
	Err     error
}

// N returns the number of images found.
func (r Result) N() int { return len(r.Images) }

// PageGetter is implemented by *fetch.Client.
type PageGetter interface {
	GetPage(ctx context.Context, url string) ([]byte, string, error)
}

// RobotsChecker is implemented by *robots.Manager.
type RobotsChecker interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// Validator is implemented by *fetch.Client.
type Validator interface {
	Validate(ctx context.Context, url string) error
}

var (
	// ErrNoPageGetter is reported when Scrape is called without a fetcher.
	ErrNoPageGetter = errors.New("scrape: no page getter configured")
	// ErrDisallowed is reported for pages excluded by robots.txt.
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrInvalidPage wraps the validator's reason for rejecting a page.
	ErrInvalidPage = errors.New("page failed validation")
)

// Scraper fetches a page, locates its images and extracts their context.
type Scraper struct {
	Pages     PageGetter
	Locator   *locate.Locator
	Extractor extract.ContextFinder
	// Robots, when set, is consulted before every page fetch.
	Robots RobotsChecker
	// Validate, when set, must accept the URL before the page is fetched.
	Validate Validator
}

// Scrape fetches url and describes its images.
func (s *Scraper) Scrape(ctx context.Context, url string) Result {
	if s.Pages == nil {
		return Result{URL: url, Outcome: OutcomeNoDocument, Err: ErrNoPageGetter}
	}
	if s.Robots != nil {
		ok, err := s.Robots.Allowed(ctx, url)
		if err != nil {
			return Result{URL: url, Outcome: OutcomeNoDocument, Err: fmt.Errorf("robots.txt %s: %w", url, err)}
		}
		if !ok {
			log.Warn().Str("url", url).Msg("page disallowed by robots.txt")
			return Result{URL: url, Outcome: OutcomeDisallowed, Err: ErrDisallowed}
		}
	}
	if s.Validate != nil {
		if err := s.Validate.Validate(ctx, url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("page failed validation")
			return Result{URL: url, Outcome: OutcomeInvalid, Err: fmt.Errorf("%w: %s: %w", ErrInvalidPage, url, err)}
		}
	}
	body, contentType, err := s.Pages.GetPage(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("page fetch failed")
		return Result{URL: url, Outcome: OutcomeNoDocument, Err: fmt.Errorf("fetch %s: %w", url, err)}
	}
	return s.ScrapeHTML(body, contentType, url)
}

// ScrapeHTML describes the images of an already loaded page. baseURL resolves
// relative image sources.
func (s *Scraper) ScrapeHTML(body []byte, contentType, baseURL string) Result {
	res := Result{URL: baseURL}
	doc, err := dom.Parse(bytes.NewReader(body), contentType)
	if err != nil {
		res.Outcome = OutcomeNoDocument
		res.Err = err
		return res
	}
	found, err := s.locator().Locate(doc, baseURL)
	if err != nil {
		res.Outcome = OutcomeNoDocument
		res.Err = err
		return res
	}
	res.Images = s.describe(found)
	if len(res.Images) == 0 {
		res.Outcome = OutcomeNoImages
	} else {
		res.Outcome = OutcomeSuccess
	}
	log.Debug().Str("url", baseURL).Int("count", len(res.Images)).Str("outcome", res.Outcome.String()).Msg("scraped page")
	return res
}

func (s *Scraper) describe(found []locate.Found) []locate.Image {
	if len(found) == 0 {
		return nil
	}
	out := make([]locate.Image, 0, len(found))
	for _, f := range found {
		img := f.Image
		img.Context = s.context(f.Node)
		out = append(out, img)
	}
	return out
}

func (s *Scraper) context(n *html.Node) string {
	if s.Extractor == nil {
		return ""
	}
	return strings.Join(s.Extractor.Fragments(n), "\n")
}

func (s *Scraper) locator() *locate.Locator {
	if s.Locator != nil {
		return s.Locator
	}
	return &locate.Locator{}
}
