package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
    Mode    string   `yaml:"mode" json:"mode"`
    Targets []string `yaml:"targets" json:"targets"`
    Output  string   `yaml:"output" json:"output"`
    Format  string   `yaml:"format" json:"format"`
    Workers int      `yaml:"workers" json:"workers"`

    LLM struct {
        BaseURL   string `yaml:"base" json:"base"`
        Model     string `yaml:"model" json:"model"`
        APIKey    string `yaml:"key" json:"key"`
        MaxTokens int    `yaml:"maxTokens" json:"maxTokens"`
    } `yaml:"llm" json:"llm"`

    Extract struct {
        SearchDepth       *int     `yaml:"searchDepth" json:"searchDepth"`
        MaxFragments      *int     `yaml:"maxFragments" json:"maxFragments"`
        MinFragmentLength *int     `yaml:"minFragmentLength" json:"minFragmentLength"`
        NoisePhrases      []string `yaml:"noisePhrases" json:"noisePhrases"`
        AttributionMarker *string  `yaml:"attributionMarker" json:"attributionMarker"`
    } `yaml:"extract" json:"extract"`

    Images struct {
        Extensions []string `yaml:"extensions" json:"extensions"`
    } `yaml:"images" json:"images"`

    Requests struct {
        UserAgent   string        `yaml:"userAgent" json:"userAgent"`
        Timeout     time.Duration `yaml:"timeout" json:"timeout"`
        MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
        RatePerHost float64       `yaml:"ratePerHost" json:"ratePerHost"`
        SSLVerify   *bool         `yaml:"sslVerify" json:"sslVerify"`
        Robots      bool          `yaml:"robots" json:"robots"`
        Validate    bool          `yaml:"validate" json:"validate"`
    } `yaml:"requests" json:"requests"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
        MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
        MaxCount    int           `yaml:"maxCount" json:"maxCount"`
        LLMOnly     bool          `yaml:"llmOnly" json:"llmOnly"`
    } `yaml:"cache" json:"cache"`

    DryRun  bool `yaml:"dryRun" json:"dryRun"`
    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// still unset or at their flag default. Flags have already been parsed, so
// explicit flags win over the file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }
    def := DefaultConfig()

    if cfg.Mode == "" && fc.Mode != "" { cfg.Mode = fc.Mode }
    if len(cfg.Targets) == 0 && len(fc.Targets) > 0 { cfg.Targets = append([]string{}, fc.Targets...) }
    if cfg.OutputPath == "" && fc.Output != "" { cfg.OutputPath = fc.Output }
    if (cfg.Format == "" || cfg.Format == def.Format) && fc.Format != "" { cfg.Format = fc.Format }
    if (cfg.Workers == 0 || cfg.Workers == def.Workers) && fc.Workers > 0 { cfg.Workers = fc.Workers }

    if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
    if cfg.LLMModel == "" && fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
    if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }
    if (cfg.LLMMaxTokens == 0 || cfg.LLMMaxTokens == def.LLMMaxTokens) && fc.LLM.MaxTokens > 0 { cfg.LLMMaxTokens = fc.LLM.MaxTokens }

    // Extraction settings have no flags of their own beyond the basics, so
    // pointer fields let the file set zero explicitly.
    x := &cfg.Extract
    if fc.Extract.SearchDepth != nil && x.SearchDepth == def.Extract.SearchDepth { x.SearchDepth = *fc.Extract.SearchDepth }
    if fc.Extract.MaxFragments != nil && x.MaxFragments == def.Extract.MaxFragments { x.MaxFragments = *fc.Extract.MaxFragments }
    if fc.Extract.MinFragmentLength != nil && x.MinFragmentLength == def.Extract.MinFragmentLength { x.MinFragmentLength = *fc.Extract.MinFragmentLength }
    if len(fc.Extract.NoisePhrases) > 0 { x.NoisePhrases = append([]string{}, fc.Extract.NoisePhrases...) }
    if fc.Extract.AttributionMarker != nil { x.AttributionMarker = *fc.Extract.AttributionMarker }
    if len(fc.Images.Extensions) > 0 { cfg.Extensions = append([]string{}, fc.Images.Extensions...) }

    if (cfg.UserAgent == "" || cfg.UserAgent == def.UserAgent) && fc.Requests.UserAgent != "" { cfg.UserAgent = fc.Requests.UserAgent }
    if (cfg.RequestTimeout == 0 || cfg.RequestTimeout == def.RequestTimeout) && fc.Requests.Timeout > 0 { cfg.RequestTimeout = fc.Requests.Timeout }
    if (cfg.MaxAttempts == 0 || cfg.MaxAttempts == def.MaxAttempts) && fc.Requests.MaxAttempts > 0 { cfg.MaxAttempts = fc.Requests.MaxAttempts }
    if cfg.RatePerHost == 0 && fc.Requests.RatePerHost > 0 { cfg.RatePerHost = fc.Requests.RatePerHost }
    if fc.Requests.SSLVerify != nil && cfg.SSLVerify { cfg.SSLVerify = *fc.Requests.SSLVerify }
    if !cfg.RespectRobots && fc.Requests.Robots { cfg.RespectRobots = true }
    if !cfg.ValidatePages && fc.Requests.Validate { cfg.ValidatePages = true }

    if (cfg.CacheDir == "" || cfg.CacheDir == def.CacheDir) && fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if !cfg.CacheClear && fc.Cache.Clear { cfg.CacheClear = true }
    if !cfg.CacheStrictPerms && fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }
    if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 { cfg.CacheMaxBytes = fc.Cache.MaxBytes }
    if cfg.CacheMaxCount == 0 && fc.Cache.MaxCount > 0 { cfg.CacheMaxCount = fc.Cache.MaxCount }
    if !cfg.LLMCacheOnly && fc.Cache.LLMOnly { cfg.LLMCacheOnly = true }

    if !cfg.DryRun && fc.DryRun { cfg.DryRun = true }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig performs minimal schema validation for required settings.
// For dry-run, LLM settings may be omitted.
func ValidateConfig(cfg Config) error {
    switch cfg.Mode {
    case ModePage, ModePages, ModeImage, ModeImages, ModeImagesFile:
    case "":
        return errors.New("config: a mode is required (page, pages, image, images, images-file)")
    default:
        return fmt.Errorf("config: unknown mode %q", cfg.Mode)
    }
    if len(cfg.Targets) == 0 || strings.TrimSpace(cfg.Targets[0]) == "" {
        return fmt.Errorf("config: mode %s needs a target", cfg.Mode)
    }
    if (cfg.Mode == ModePage || cfg.Mode == ModeImage) && len(cfg.Targets) > 1 {
        return fmt.Errorf("config: mode %s takes exactly one target", cfg.Mode)
    }
    if !cfg.DryRun && strings.TrimSpace(cfg.LLMModel) == "" {
        return errors.New("config: llm.model is required (or set LLM_MODEL)")
    }
    if cfg.Workers < 0 || cfg.LLMMaxTokens < 0 || cfg.MaxAttempts < 0 || cfg.RatePerHost < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxCount < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    if err := cfg.Extract.Validate(); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    return nil
}
