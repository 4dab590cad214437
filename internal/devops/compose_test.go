package devops

import (
    "os"
    "path/filepath"
    "strings"
    "testing"

    yaml "gopkg.in/yaml.v3"
)

func loadCompose(t *testing.T) map[string]any {
    t.Helper()
    b, err := os.ReadFile(filepath.Join(findRepoRoot(t), "docker-compose.yml"))
    if err != nil {
        t.Fatalf("read compose: %v", err)
    }
    var doc map[string]any
    if err := yaml.Unmarshal(b, &doc); err != nil {
        t.Fatalf("yaml unmarshal: %v", err)
    }
    services, ok := doc["services"].(map[string]any)
    if !ok {
        t.Fatalf("services missing or wrong type")
    }
    return services
}

func service(t *testing.T, services map[string]any, name string) map[string]any {
    t.Helper()
    s, ok := services[name].(map[string]any)
    if !ok {
        t.Fatalf("%s service missing", name)
    }
    return s
}

// TestCompose_StubLLMHealthcheck verifies that the stub model server probes
// /v1/models and that altscout waits for it to become healthy.
func TestCompose_StubLLMHealthcheck(t *testing.T) {
    services := loadCompose(t)
    stub := service(t, services, "stub-llm")
    hc, ok := stub["healthcheck"].(map[string]any)
    if !ok {
        t.Fatalf("stub-llm healthcheck missing")
    }
    testCmd, _ := hc["test"].([]any)
    if !anyStringContains(testCmd, "/v1/models") {
        t.Fatalf("healthcheck must probe /v1/models; test=%v", testCmd)
    }

    tool := service(t, services, "altscout")
    dep, ok := tool["depends_on"].(map[string]any)
    if !ok {
        t.Fatalf("altscout.depends_on missing or wrong type")
    }
    stubDep, _ := dep["stub-llm"].(map[string]any)
    if cond, _ := stubDep["condition"].(string); cond != "service_healthy" {
        t.Fatalf("altscout should depend on stub-llm service_healthy, got %q", cond)
    }
}

// TestCompose_ToolEnvironment verifies that the environment names match the
// variables the CLI reads and that the cache lives on a named volume.
func TestCompose_ToolEnvironment(t *testing.T) {
    tool := service(t, loadCompose(t), "altscout")
    env, _ := tool["environment"].([]any)
    for _, key := range []string{"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "CACHE_DIR"} {
        if !hasEnv(env, key) {
            t.Fatalf("altscout environment missing %s; env=%v", key, env)
        }
    }
    if !containsString(env, "LLM_BASE_URL=http://stub-llm:8081/v1") {
        t.Fatalf("LLM_BASE_URL should point at the stub; env=%v", env)
    }
    vols, _ := tool["volumes"].([]any)
    if !containsString(vols, "altscout_cache:/cache") {
        t.Fatalf("cache volume not mounted at /cache; volumes=%v", vols)
    }
}

// TestCompose_ToolHardening checks the non-root user and read-only root.
func TestCompose_ToolHardening(t *testing.T) {
    tool := service(t, loadCompose(t), "altscout")
    if user, _ := tool["user"].(string); user == "" || strings.HasPrefix(user, "0") {
        t.Fatalf("altscout must run as non-root, got %q", user)
    }
    if ro, _ := tool["read_only"].(bool); !ro {
        t.Fatalf("altscout should use a read-only root filesystem")
    }
}

func findRepoRoot(t *testing.T) string {
    t.Helper()
    dir, err := os.Getwd()
    if err != nil { t.Fatalf("getwd: %v", err) }
    // Walk up until we find go.mod
    for i := 0; i < 5; i++ {
        if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
            return dir
        }
        parent := filepath.Dir(dir)
        if parent == dir { break }
        dir = parent
    }
    t.Fatalf("could not locate repo root with go.mod")
    return ""
}

func containsString(items []any, needle string) bool {
    for _, v := range items {
        if s, ok := v.(string); ok && s == needle {
            return true
        }
    }
    return false
}

func anyStringContains(items []any, sub string) bool {
    for _, v := range items {
        if s, ok := v.(string); ok && strings.Contains(s, sub) {
            return true
        }
    }
    return false
}

func hasEnv(items []any, key string) bool {
    for _, v := range items {
        if s, ok := v.(string); ok {
            // KEY=VALUE or KEY
            if strings.HasPrefix(s, key+"=") || s == key {
                return true
            }
        }
    }
    return false
}
