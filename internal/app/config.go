package app

import (
    "time"

    "github.com/hyperifyio/altscout/internal/extract"
    "github.com/hyperifyio/altscout/internal/locate"
)

// Run modes.
const (
    ModePage       = "page"        // scrape one page
    ModePages      = "pages"       // scrape every page listed in a file
    ModeImage      = "image"       // one image path or URL
    ModeImages     = "images"      // image URLs given directly
    ModeImagesFile = "images-file" // image URLs listed in a file
)

// Config holds runtime configuration for the application.
type Config struct {
    Mode    string
    Targets []string
    // ImageContext and ImageAlt describe the image(s) in the image modes.
    ImageContext string
    ImageAlt     string

    OutputPath string
    Format     string
    Workers    int
    // NoManifest skips the <output>.manifest.json sidecar.
    NoManifest bool

    // LLM
    LLMBaseURL   string
    LLMModel     string
    LLMAPIKey    string
    LLMMaxTokens int

    // Extraction
    Extract    extract.Config
    Extensions []string

    // Requests
    UserAgent      string
    RequestTimeout time.Duration
    MaxAttempts    int
    RatePerHost    float64
    SSLVerify      bool
    // RespectRobots skips pages that the host's robots.txt disallows.
    RespectRobots  bool
    // ValidatePages sends a HEAD request first and skips pages that are not HTML.
    ValidatePages  bool

    // Cache
    CacheDir         string
    CacheMaxAge      time.Duration
    CacheClear       bool
    CacheStrictPerms bool
    CacheMaxBytes    int64
    CacheMaxCount    int
    LLMCacheOnly     bool

    // Behavior
    DryRun  bool
    Verbose bool
}

// Defaults shared by flag registration and file overlay.
const (
    defaultFormat         = "json"
    defaultWorkers        = 4
    defaultCacheDir       = ".altscout-cache"
    defaultMaxTokens      = 300
    defaultMaxAttempts    = 3
    defaultRequestTimeout = 30 * time.Second
)

// DefaultUserAgent identifies the tool towards web servers.
func DefaultUserAgent() string {
    return "altscout/" + BuildVersion + " (+https://github.com/hyperifyio/altscout)"
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
    return Config{
        Format:         defaultFormat,
        Workers:        defaultWorkers,
        LLMMaxTokens:   defaultMaxTokens,
        Extract:        extract.DefaultConfig(),
        Extensions:     append([]string(nil), locate.DefaultExtensions...),
        UserAgent:      DefaultUserAgent(),
        RequestTimeout: defaultRequestTimeout,
        MaxAttempts:    defaultMaxAttempts,
        SSLVerify:      true,
        CacheDir:       defaultCacheDir,
    }
}
