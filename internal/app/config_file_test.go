package app

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func writeConfig(t *testing.T, name, content string) string {
    t.Helper()
    p := filepath.Join(t.TempDir(), name)
    if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
        t.Fatalf("write config: %v", err)
    }
    return p
}

func TestLoadConfigFile_YAMLSections(t *testing.T) {
    p := writeConfig(t, "altscout.yaml", `
mode: page
targets: ["https://www.zh.ch/de/news.html"]
format: excel
workers: 8
llm:
  base: https://openrouter.ai/api/v1
  model: vision-model
extract:
  searchDepth: 0
  maxFragments: 4
  noisePhrases: ["Teilen"]
  attributionMarker: "Foto:"
images:
  extensions: [".png"]
requests:
  timeout: 10s
  ratePerHost: 2.5
  sslVerify: false
  validate: true
cache:
  dir: /tmp/c
  maxAge: 48h
`)
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    cfg := DefaultConfig()
    ApplyFileConfig(&cfg, fc)

    if cfg.Mode != ModePage || len(cfg.Targets) != 1 || cfg.Format != "excel" || cfg.Workers != 8 {
        t.Fatalf("top-level fields not applied: %+v", cfg)
    }
    if cfg.LLMModel != "vision-model" || cfg.LLMBaseURL != "https://openrouter.ai/api/v1" {
        t.Fatalf("llm section not applied: %+v", cfg)
    }
    if cfg.Extract.SearchDepth != 0 || cfg.Extract.MaxFragments != 4 || cfg.Extract.MinFragmentLength != 10 {
        t.Fatalf("extract section not applied: %+v", cfg.Extract)
    }
    if strings.Join(cfg.Extract.NoisePhrases, ",") != "Teilen" || cfg.Extract.AttributionMarker != "Foto:" {
        t.Fatalf("normalizer settings not applied: %+v", cfg.Extract)
    }
    if strings.Join(cfg.Extensions, ",") != ".png" {
        t.Fatalf("extensions = %v", cfg.Extensions)
    }
    if cfg.RequestTimeout != 10*time.Second || cfg.RatePerHost != 2.5 || cfg.SSLVerify || !cfg.ValidatePages {
        t.Fatalf("requests section not applied: %+v", cfg)
    }
    if cfg.CacheDir != "/tmp/c" || cfg.CacheMaxAge != 48*time.Hour {
        t.Fatalf("cache section not applied: %+v", cfg)
    }
}

func TestLoadConfigFile_JSON(t *testing.T) {
    p := writeConfig(t, "altscout.json", `{"mode":"images","targets":["a.jpg","b.jpg"],"llm":{"model":"m"}}`)
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if fc.Mode != ModeImages || len(fc.Targets) != 2 || fc.LLM.Model != "m" {
        t.Fatalf("unexpected %+v", fc)
    }
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
    cfg := DefaultConfig()
    cfg.Mode = ModeImage
    cfg.LLMModel = "from-flag"
    cfg.Workers = 2
    var fc FileConfig
    fc.Mode = ModePage
    fc.LLM.Model = "from-file"
    fc.Workers = 9
    ApplyFileConfig(&cfg, fc)
    if cfg.Mode != ModeImage || cfg.LLMModel != "from-flag" || cfg.Workers != 2 {
        t.Fatalf("explicit values overridden: %+v", cfg)
    }
}

func TestValidateConfig(t *testing.T) {
    ok := DefaultConfig()
    ok.Mode = ModePage
    ok.Targets = []string{"https://example.com/"}
    ok.LLMModel = "m"
    if err := ValidateConfig(ok); err != nil {
        t.Fatalf("valid config rejected: %v", err)
    }

    dry := ok
    dry.LLMModel = ""
    dry.DryRun = true
    if err := ValidateConfig(dry); err != nil {
        t.Fatalf("dry run without model rejected: %v", err)
    }

    bad := map[string]func(c *Config){
        "no mode":        func(c *Config) { c.Mode = "" },
        "unknown mode":   func(c *Config) { c.Mode = "crawl" },
        "no target":      func(c *Config) { c.Targets = nil },
        "two pages":      func(c *Config) { c.Targets = []string{"a", "b"} },
        "no model":       func(c *Config) { c.LLMModel = "" },
        "negative limit": func(c *Config) { c.Workers = -1 },
        "bad extract":    func(c *Config) { c.Extract.MaxFragments = -1 },
    }
    for name, mutate := range bad {
        c := ok
        c.Extract = ok.Extract
        mutate(&c)
        if err := ValidateConfig(c); err == nil {
            t.Fatalf("%s: expected error", name)
        }
    }
}
