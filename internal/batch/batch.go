// Package batch runs alt-text generation over many images in parallel.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/altscout/internal/alttext"
	"github.com/hyperifyio/altscout/internal/locate"
	"github.com/hyperifyio/altscout/internal/scrape"
)

// DefaultWorkers is used when Processor.Workers is not positive.
const DefaultWorkers = 4

// ErrNoImages is returned by ProcessPage when the page holds no supported image.
var ErrNoImages = errors.New("no images found")

// Result is one processed image.
type Result struct {
	URL              string `json:"url"`
	Context          string `json:"context"`
	OriginalAltText  string `json:"original_alt_text"`
	GeneratedAltText string `json:"generated_alt_text"`
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	SourceWebsite    string `json:"source_website,omitempty"`
	WebsiteOrder     int    `json:"website_order,omitempty"`
}

// AltTexter is implemented by *alttext.Generator.
type AltTexter interface {
	Generate(ctx context.Context, img locate.Image) (string, error)
}

// PageScraper is implemented by *scrape.Scraper.
type PageScraper interface {
	Scrape(ctx context.Context, url string) scrape.Result
}

// Processor fans images out to a bounded worker pool.
type Processor struct {
	Generator AltTexter
	Scraper   PageScraper
	Workers   int
	// Progress is called once per finished image from the collecting
	// goroutine, never concurrently.
	Progress func(Result)
	// PageProgress is called before each page of ProcessPagesFile.
	PageProgress func(url string, index, total int)
}

// ProcessImage describes a single image. An existing local path is turned
// into an absolute file:// URL first.
func (p *Processor) ProcessImage(ctx context.Context, pathOrURL, surrounding, alt string) Result {
	if _, err := os.Stat(pathOrURL); err == nil {
		if u, err := alttext.FileURL(pathOrURL); err == nil {
			pathOrURL = u
		}
	}
	return p.generate(ctx, locate.Image{URL: pathOrURL, Context: surrounding, AltText: alt})
}

// ProcessImages describes every image with at most Workers in flight.
// Results keep the input order.
func (p *Processor) ProcessImages(ctx context.Context, images []locate.Image) []Result {
	if len(images) == 0 {
		return nil
	}
	type done struct {
		pos int
		res Result
	}
	ch := make(chan done, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	go func() {
		for i, img := range images {
			i, img := i, img
			g.Go(func() error {
				ch <- done{pos: i, res: p.generate(gctx, img)}
				return nil
			})
		}
		_ = g.Wait()
		close(ch)
	}()

	results := make([]Result, len(images))
	for d := range ch {
		results[d.pos] = d.res
		if p.Progress != nil {
			p.Progress(d.res)
		}
	}
	return results
}

// ProcessURLs describes a list of image URLs that share one context.
func (p *Processor) ProcessURLs(ctx context.Context, urls []string, surrounding string) []Result {
	images := make([]locate.Image, 0, len(urls))
	for _, u := range urls {
		images = append(images, locate.Image{URL: u, Context: surrounding})
	}
	return p.ProcessImages(ctx, images)
}

// ProcessURLFile is ProcessURLs over the URLs listed in path.
func (p *Processor) ProcessURLFile(ctx context.Context, path, surrounding string) ([]Result, error) {
	urls, err := ReadURLList(path)
	if err != nil {
		return nil, err
	}
	return p.ProcessURLs(ctx, urls, surrounding), nil
}

// ProcessPage scrapes url and describes its images. A page that cannot be
// loaded, is excluded by robots.txt or fails validation is an error; a page
// without images returns ErrNoImages.
func (p *Processor) ProcessPage(ctx context.Context, url string) ([]Result, error) {
	if p.Scraper == nil {
		return nil, errors.New("batch: no scraper configured")
	}
	res := p.Scraper.Scrape(ctx, url)
	switch res.Outcome {
	case scrape.OutcomeNoDocument, scrape.OutcomeDisallowed, scrape.OutcomeInvalid:
		return nil, fmt.Errorf("scrape %s: %w", url, res.Err)
	case scrape.OutcomeNoImages:
		log.Warn().Str("url", url).Msg("no images found on page")
		return nil, ErrNoImages
	}
	log.Info().Str("url", url).Int("count", res.N()).Msg("images found")
	return p.ProcessImages(ctx, res.Images), nil
}

// ProcessPagesFile processes every page listed in path, one after another.
// Results carry the page URL and its 1-based position in the list. A page
// that fails to load becomes a single failed result.
func (p *Processor) ProcessPagesFile(ctx context.Context, path string) ([]Result, error) {
	urls, err := ReadURLList(path)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		log.Warn().Str("file", path).Msg("no valid URLs in file")
		return nil, nil
	}
	var all []Result
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		order := i + 1
		if p.PageProgress != nil {
			p.PageProgress(u, order, len(urls))
		}
		results, err := p.ProcessPage(ctx, u)
		if err != nil && !errors.Is(err, ErrNoImages) {
			log.Error().Err(err).Str("url", u).Msg("page failed")
			all = append(all, Result{
				URL:           u,
				Error:         "failed to process website: " + err.Error(),
				SourceWebsite: u,
				WebsiteOrder:  order,
			})
			continue
		}
		for j := range results {
			results[j].SourceWebsite = u
			results[j].WebsiteOrder = order
		}
		all = append(all, results...)
		log.Info().Int("page", order).Int("pages", len(urls)).Str("url", u).Int("count", len(results)).Msg("processed page")
	}
	return all, nil
}

func (p *Processor) generate(ctx context.Context, img locate.Image) Result {
	res := Result{URL: img.URL, Context: img.Context, OriginalAltText: img.AltText}
	if p.Generator == nil {
		res.Error = alttext.ErrNotConfigured.Error()
		return res
	}
	out, err := p.Generator.Generate(ctx, img)
	if err != nil {
		log.Warn().Err(err).Str("url", img.URL).Msg("alt text generation failed")
		res.Error = err.Error()
		return res
	}
	res.GeneratedAltText = out
	res.Success = true
	return res
}

func (p *Processor) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return DefaultWorkers
}

// ReadURLList reads one URL per line. Blank lines and lines starting with #
// are skipped.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
