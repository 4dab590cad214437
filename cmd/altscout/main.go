package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/altscout/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if errors.Is(err, errVersion) {
		fmt.Println(app.VersionString())
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(1)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps run errors to the process status: 2 when nothing was found
// to describe, 1 for any other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoImages):
		return 2
	default:
		return 1
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

var errVersion = errors.New("version requested")

// parseArgs builds the configuration. Precedence is flags, then environment
// (including dotenv files), then the config file, then defaults.
func parseArgs(args []string, stderr io.Writer) (app.Config, error) {
	def := app.DefaultConfig()
	fs := flag.NewFlagSet("altscout", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		page, pages, image, images, imagesFile string
		configPath, envFiles                   string
		version                                bool
		flagCfg                                = def
	)
	fs.StringVar(&page, "page", "", "Scrape one web page and describe its images")
	fs.StringVar(&pages, "pages", "", "File listing web pages to scrape, one URL per line")
	fs.StringVar(&image, "image", "", "Describe a single image (local path or URL)")
	fs.StringVar(&images, "images", "", "Comma-separated image URLs; extra arguments are added too")
	fs.StringVar(&imagesFile, "images-file", "", "File listing image URLs, one per line")
	fs.StringVar(&flagCfg.ImageContext, "context", "", "Context text for the image modes")
	fs.StringVar(&flagCfg.ImageAlt, "alt", "", "Current alt text for -image")
	fs.StringVar(&flagCfg.OutputPath, "output", "", "Output file (default alt_text_results_<timestamp>.<format>)")
	fs.StringVar(&flagCfg.Format, "format", def.Format, "Export format: json, csv, xlsx (excel) or pdf")
	fs.IntVar(&flagCfg.Workers, "workers", def.Workers, "Parallel image workers")
	fs.BoolVar(&flagCfg.NoManifest, "no-manifest", false, "Do not write the <output>.manifest.json sidecar")
	fs.StringVar(&flagCfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL (e.g. https://openrouter.ai/api/v1)")
	fs.StringVar(&flagCfg.LLMModel, "llm.model", "", "Vision model name")
	fs.StringVar(&flagCfg.LLMAPIKey, "llm.key", "", "API key for the model server")
	fs.IntVar(&flagCfg.LLMMaxTokens, "llm.maxTokens", def.LLMMaxTokens, "Maximum tokens of the model answer")
	fs.BoolVar(&flagCfg.LLMCacheOnly, "llm.cacheOnly", false, "Answer from the LLM cache only; fail on a miss")
	fs.IntVar(&flagCfg.Extract.SearchDepth, "context.depth", def.Extract.SearchDepth, "Ancestor levels searched for context")
	fs.IntVar(&flagCfg.Extract.MaxFragments, "context.maxFragments", def.Extract.MaxFragments, "Maximum context fragments per image")
	fs.IntVar(&flagCfg.Extract.MinFragmentLength, "context.minLength", def.Extract.MinFragmentLength, "Fragments of this many characters or fewer are dropped")
	fs.StringVar(&flagCfg.UserAgent, "ua", def.UserAgent, "User-Agent for page and image requests")
	fs.DurationVar(&flagCfg.RequestTimeout, "timeout", def.RequestTimeout, "Per-request timeout")
	fs.IntVar(&flagCfg.MaxAttempts, "attempts", def.MaxAttempts, "Attempts per request on transient errors")
	fs.Float64Var(&flagCfg.RatePerHost, "rate", 0, "Requests per second per host; 0 disables")
	insecure := fs.Bool("insecure", false, "Skip TLS certificate verification")
	fs.BoolVar(&flagCfg.RespectRobots, "robots", false, "Skip pages disallowed by robots.txt")
	fs.BoolVar(&flagCfg.ValidatePages, "validate", false, "HEAD each page first and skip non-HTML responses")
	fs.StringVar(&flagCfg.CacheDir, "cache.dir", def.CacheDir, "Cache directory path; empty disables caching")
	fs.DurationVar(&flagCfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&flagCfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&flagCfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.Int64Var(&flagCfg.CacheMaxBytes, "cache.maxBytes", 0, "Evict least recently used entries above this size; 0 disables")
	fs.IntVar(&flagCfg.CacheMaxCount, "cache.maxCount", 0, "Evict least recently used entries above this count; 0 disables")
	fs.BoolVar(&flagCfg.DryRun, "dry-run", false, "Scrape and extract context without calling the model")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&configPath, "config", "", "YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files loaded before reading the environment")
	fs.BoolVar(&version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	if version {
		return app.Config{}, errVersion
	}
	flagCfg.SSLVerify = !*insecure

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	switch {
	case page != "":
		flagCfg.Mode, flagCfg.Targets = app.ModePage, []string{page}
	case pages != "":
		flagCfg.Mode, flagCfg.Targets = app.ModePages, []string{pages}
	case image != "":
		flagCfg.Mode, flagCfg.Targets = app.ModeImage, []string{image}
	case images != "" || fs.NArg() > 0:
		flagCfg.Mode, flagCfg.Targets = app.ModeImages, append(splitList(images), fs.Args()...)
	case imagesFile != "":
		flagCfg.Mode, flagCfg.Targets = app.ModeImagesFile, []string{imagesFile}
	}
	modes := 0
	for _, name := range []string{"page", "pages", "image", "images", "images-file"} {
		if explicit[name] {
			modes++
		}
	}
	if modes > 1 {
		return app.Config{}, errors.New("choose only one of -page, -pages, -image, -images, -images-file")
	}

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}

	cfg := def
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	applyFlags(&cfg, flagCfg, explicit)
	return cfg, nil
}

// applyFlags copies the explicitly set flags over the layered config.
func applyFlags(cfg *app.Config, f app.Config, explicit map[string]bool) {
	if f.Mode != "" {
		cfg.Mode, cfg.Targets = f.Mode, f.Targets
	}
	set := map[string]func(){
		"context":              func() { cfg.ImageContext = f.ImageContext },
		"alt":                  func() { cfg.ImageAlt = f.ImageAlt },
		"output":               func() { cfg.OutputPath = f.OutputPath },
		"format":               func() { cfg.Format = f.Format },
		"workers":              func() { cfg.Workers = f.Workers },
		"no-manifest":          func() { cfg.NoManifest = f.NoManifest },
		"llm.base":             func() { cfg.LLMBaseURL = f.LLMBaseURL },
		"llm.model":            func() { cfg.LLMModel = f.LLMModel },
		"llm.key":              func() { cfg.LLMAPIKey = f.LLMAPIKey },
		"llm.maxTokens":        func() { cfg.LLMMaxTokens = f.LLMMaxTokens },
		"llm.cacheOnly":        func() { cfg.LLMCacheOnly = f.LLMCacheOnly },
		"context.depth":        func() { cfg.Extract.SearchDepth = f.Extract.SearchDepth },
		"context.maxFragments": func() { cfg.Extract.MaxFragments = f.Extract.MaxFragments },
		"context.minLength":    func() { cfg.Extract.MinFragmentLength = f.Extract.MinFragmentLength },
		"ua":                   func() { cfg.UserAgent = f.UserAgent },
		"timeout":              func() { cfg.RequestTimeout = f.RequestTimeout },
		"attempts":             func() { cfg.MaxAttempts = f.MaxAttempts },
		"rate":                 func() { cfg.RatePerHost = f.RatePerHost },
		"insecure":             func() { cfg.SSLVerify = f.SSLVerify },
		"robots":               func() { cfg.RespectRobots = f.RespectRobots },
		"validate":             func() { cfg.ValidatePages = f.ValidatePages },
		"cache.dir":            func() { cfg.CacheDir = f.CacheDir },
		"cache.maxAge":         func() { cfg.CacheMaxAge = f.CacheMaxAge },
		"cache.clear":          func() { cfg.CacheClear = f.CacheClear },
		"cache.strictPerms":    func() { cfg.CacheStrictPerms = f.CacheStrictPerms },
		"cache.maxBytes":       func() { cfg.CacheMaxBytes = f.CacheMaxBytes },
		"cache.maxCount":       func() { cfg.CacheMaxCount = f.CacheMaxCount },
		"dry-run":              func() { cfg.DryRun = f.DryRun },
		"v":                    func() { cfg.Verbose = f.Verbose },
	}
	for name, apply := range set {
		if explicit[name] {
			apply()
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
