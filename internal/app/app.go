package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/altscout/internal/alttext"
	"github.com/hyperifyio/altscout/internal/batch"
	"github.com/hyperifyio/altscout/internal/cache"
	"github.com/hyperifyio/altscout/internal/export"
	"github.com/hyperifyio/altscout/internal/extract"
	"github.com/hyperifyio/altscout/internal/fetch"
	"github.com/hyperifyio/altscout/internal/llm"
	"github.com/hyperifyio/altscout/internal/locate"
	"github.com/hyperifyio/altscout/internal/robots"
	"github.com/hyperifyio/altscout/internal/scrape"
)

// ErrNoImages is returned when a run found nothing to describe. Per the
// exit code policy this maps to exit status 2.
var ErrNoImages = errors.New("no images found")

type App struct {
	cfg       Config
	format    export.Format
	fetcher   *fetch.Client
	scraper   *scrape.Scraper
	proc      *batch.Processor
	httpCache *cache.HTTPCache
	llmCache  *cache.LLMCache
	now       func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	httpClient := newHighThroughputHTTPClient(cfg.SSLVerify)
	a := &App{cfg: cfg, format: format, now: time.Now}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		httpDir := filepath.Join(cfg.CacheDir, "http")
		llmDir := filepath.Join(cfg.CacheDir, "llm")
		if cfg.CacheMaxAge > 0 {
			// Purging is best-effort; a failure must not stop the run.
			_, _ = cache.PurgeHTTPCacheByAge(httpDir, cfg.CacheMaxAge)
			_, _ = cache.PurgeLLMCacheByAge(llmDir, cfg.CacheMaxAge)
		}
		a.httpCache = &cache.HTTPCache{Dir: httpDir, StrictPerms: cfg.CacheStrictPerms}
		a.llmCache = &cache.LLMCache{Dir: llmDir, StrictPerms: cfg.CacheStrictPerms}
	}

	a.fetcher = &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.RequestTimeout,
		Cache:             a.httpCache,
		MaxConcurrent:     2 * max(cfg.Workers, 1),
		Limiter:           fetch.NewHostLimiter(cfg.RatePerHost, max(cfg.Workers, 1)),
	}
	a.scraper = &scrape.Scraper{
		Pages:     a.fetcher,
		Locator:   &locate.Locator{Extensions: cfg.Extensions},
		Extractor: extract.New(cfg.Extract),
	}
	if cfg.RespectRobots {
		a.scraper.Robots = &robots.Manager{HTTPClient: httpClient, Cache: a.httpCache, UserAgent: cfg.UserAgent}
	}
	if cfg.ValidatePages {
		a.scraper.Validate = a.fetcher
	}
	a.proc = &batch.Processor{
		Scraper: a.scraper,
		Workers: cfg.Workers,
		Progress: func(r batch.Result) {
			if r.Success {
				log.Info().Str("url", r.URL).Str("alt", r.GeneratedAltText).Msg("alt text generated")
			} else {
				log.Warn().Str("url", r.URL).Str("error", r.Error).Msg("image failed")
			}
		},
		PageProgress: func(url string, i, n int) {
			log.Info().Int("page", i).Int("pages", n).Str("url", url).Msg("processing page")
		},
	}

	if !cfg.DryRun {
		provider := llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, httpClient)
		a.proc.Generator = &alttext.Generator{
			Client:    provider,
			Loader:    &alttext.SourceLoader{Remote: a.fetcher},
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
			Cache:     a.llmCache,
			CacheOnly: cfg.LLMCacheOnly,
		}
		a.preflight(ctx, provider)
	}
	return a, nil
}

// preflight lists models as a connectivity check. It never fails the run.
func (a *App) preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
}

// Close applies the cache size limits.
func (a *App) Close() {
	if a.cfg.CacheMaxBytes <= 0 && a.cfg.CacheMaxCount <= 0 {
		return
	}
	if a.httpCache != nil {
		if n, err := cache.EnforceHTTPCacheLimits(a.httpCache.Dir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxCount); err == nil && n > 0 {
			log.Debug().Int("removed", n).Msg("http cache trimmed")
		}
	}
	if a.llmCache != nil {
		if n, err := cache.EnforceLLMCacheLimits(a.llmCache.Dir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxCount); err == nil && n > 0 {
			log.Debug().Int("removed", n).Msg("llm cache trimmed")
		}
	}
}

// Run executes the configured mode and writes the export.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.DryRun {
		return a.dryRun(ctx)
	}
	results, err := a.process(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return ErrNoImages
	}
	out := a.outputPath()
	if err := export.Write(out, a.format, results); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	ok := countSucceeded(results)
	log.Info().Int("images", len(results)).Int("succeeded", ok).Int("failed", len(results)-ok).Str("output", out).Msg("run complete")
	a.writeManifest(out, results)
	return nil
}

func (a *App) process(ctx context.Context) ([]batch.Result, error) {
	t := a.cfg.Targets
	switch a.cfg.Mode {
	case ModePage:
		results, err := a.proc.ProcessPage(ctx, t[0])
		if errors.Is(err, batch.ErrNoImages) {
			return nil, ErrNoImages
		}
		return results, err
	case ModePages:
		return a.proc.ProcessPagesFile(ctx, t[0])
	case ModeImage:
		return []batch.Result{a.proc.ProcessImage(ctx, t[0], a.cfg.ImageContext, a.cfg.ImageAlt)}, nil
	case ModeImages:
		return a.proc.ProcessURLs(ctx, t, a.cfg.ImageContext), nil
	case ModeImagesFile:
		return a.proc.ProcessURLFile(ctx, t[0], a.cfg.ImageContext)
	}
	return nil, fmt.Errorf("unknown mode %q", a.cfg.Mode)
}

// dryRun scrapes and extracts context without calling the model. The
// located images are written as JSON.
func (a *App) dryRun(ctx context.Context) error {
	var images []locate.Image
	switch a.cfg.Mode {
	case ModePage:
		res := a.scraper.Scrape(ctx, a.cfg.Targets[0])
		if res.Err != nil {
			return res.Err
		}
		images = res.Images
	case ModePages:
		urls, err := batch.ReadURLList(a.cfg.Targets[0])
		if err != nil {
			return err
		}
		for _, u := range urls {
			res := a.scraper.Scrape(ctx, u)
			if res.Err != nil {
				log.Warn().Err(res.Err).Str("url", u).Msg("page skipped")
			}
			images = append(images, res.Images...)
		}
	default:
		urls := a.cfg.Targets
		if a.cfg.Mode == ModeImagesFile {
			var err error
			if urls, err = batch.ReadURLList(a.cfg.Targets[0]); err != nil {
				return err
			}
		}
		for _, u := range urls {
			images = append(images, locate.Image{URL: u, AltText: a.cfg.ImageAlt, Context: a.cfg.ImageContext})
		}
	}
	if len(images) == 0 {
		return ErrNoImages
	}
	out := a.outputPath()
	if a.format != export.JSON {
		out = trimExt(out) + ".json"
	}
	b, err := json.MarshalIndent(images, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write dry run: %w", err)
	}
	log.Info().Int("images", len(images)).Str("output", out).Msg("dry run complete; model not called")
	return nil
}

func (a *App) writeManifest(out string, results []batch.Result) {
	if a.cfg.NoManifest {
		return
	}
	meta := manifestMeta{
		Version:     BuildVersion,
		Mode:        a.cfg.Mode,
		Targets:     a.cfg.Targets,
		Model:       a.cfg.LLMModel,
		LLMBaseURL:  a.cfg.LLMBaseURL,
		Format:      string(a.format),
		ImageCount:  len(results),
		Succeeded:   countSucceeded(results),
		HTTPCache:   a.httpCache != nil,
		LLMCache:    a.llmCache != nil,
		GeneratedAt: a.now().UTC(),
	}
	b, err := marshalManifestJSON(meta, buildManifestEntries(results))
	if err != nil {
		log.Warn().Err(err).Msg("manifest encode failed")
		return
	}
	if err := os.WriteFile(deriveManifestSidecarPath(out), b, 0o644); err != nil {
		log.Warn().Err(err).Msg("manifest write failed")
	}
}

func (a *App) outputPath() string {
	if a.cfg.OutputPath != "" {
		return a.cfg.OutputPath
	}
	return export.DefaultFilename(a.format, a.now())
}

func trimExt(p string) string {
	return p[:len(p)-len(filepath.Ext(p))]
}
