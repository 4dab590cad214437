package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestHTTPCache_SaveLoadImage(t *testing.T) {
    t.Parallel()
    c := &HTTPCache{Dir: t.TempDir()}
    ctx := context.Background()
    u := "https://www.zh.ch/media/bruecke.jpg"
    body := []byte{0xff, 0xd8, 0xff, 0xe0}
    if err := c.Save(ctx, u, "image/jpeg", `"v1"`, "Tue, 01 Oct 2024 10:00:00 GMT", body); err != nil {
        t.Fatalf("save: %v", err)
    }
    meta, err := c.LoadMeta(ctx, u)
    if err != nil {
        t.Fatalf("load meta: %v", err)
    }
    if meta.URL != u || meta.ContentType != "image/jpeg" || meta.ETag != `"v1"` || meta.Size != len(body) {
        t.Fatalf("unexpected meta %+v", meta)
    }
    got, err := c.LoadBody(ctx, u)
    if err != nil || string(got) != string(body) {
        t.Fatalf("body = %x, err = %v", got, err)
    }
    if _, err := c.LoadMeta(ctx, "https://www.zh.ch/other.png"); err == nil {
        t.Fatalf("expected miss for unknown URL")
    }
}

func TestHTTPCache_EvictsLeastRecentlyUsedByCount(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &HTTPCache{Dir: dir}
    ctx := context.Background()
    urls := []string{"https://a.ch/1.jpg", "https://a.ch/2.jpg", "https://a.ch/3.jpg"}
    for i, u := range urls {
        if err := c.Save(ctx, u, "image/jpeg", "", "", []byte(fmt.Sprintf("img-%d", i))); err != nil {
            t.Fatalf("save %d: %v", i, err)
        }
        time.Sleep(10 * time.Millisecond)
    }
    // Reading the first entry makes the second one the oldest.
    if _, err := c.LoadBody(ctx, urls[0]); err != nil {
        t.Fatalf("touch: %v", err)
    }
    removed, err := EnforceHTTPCacheLimits(dir, 0, 2)
    if err != nil || removed != 1 {
        t.Fatalf("removed = %d, err = %v", removed, err)
    }
    if _, err := c.LoadBody(ctx, urls[1]); err == nil {
        t.Fatalf("expected least recently used entry evicted")
    }
    if _, err := c.LoadMeta(ctx, urls[1]); err == nil {
        t.Fatalf("meta must be evicted with its body")
    }
    if _, err := c.LoadBody(ctx, urls[0]); err != nil {
        t.Fatalf("recently used entry evicted: %v", err)
    }
}

func TestHTTPCache_EvictsUntilUnderByteLimit(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &HTTPCache{Dir: dir}
    ctx := context.Background()
    if err := c.Save(ctx, "https://b.ch/big.png", "image/png", "", "", []byte("1111111111")); err != nil {
        t.Fatalf("save: %v", err)
    }
    time.Sleep(10 * time.Millisecond)
    if err := c.Save(ctx, "https://b.ch/small.png", "image/png", "", "", []byte("22")); err != nil {
        t.Fatalf("save: %v", err)
    }
    removed, err := EnforceHTTPCacheLimits(dir, 5, 0)
    if err != nil || removed != 1 {
        t.Fatalf("removed = %d, err = %v", removed, err)
    }
    if n, _ := EnforceHTTPCacheLimits(dir, 0, 0); n != 0 {
        t.Fatalf("zero limits must not evict, removed %d", n)
    }
}

func TestKeyFrom_DependsOnEveryPart(t *testing.T) {
    t.Parallel()
    a := KeyFrom("vision", "prompt", "digest-a")
    if a != KeyFrom("vision", "prompt", "digest-a") {
        t.Fatalf("key not deterministic")
    }
    for _, other := range []string{KeyFrom("vision", "prompt", "digest-b"), KeyFrom("other", "prompt", "digest-a"), KeyFrom("vision", "prompt2", "digest-a")} {
        if other == a {
            t.Fatalf("distinct inputs produced the same key")
        }
    }
}

func TestLLMCache_SaveGetAndLRU(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &LLMCache{Dir: dir}
    ctx := context.Background()
    keys := []string{KeyFrom("m", "p1"), KeyFrom("m", "p2"), KeyFrom("m", "p3")}
    for i, k := range keys {
        payload, _ := json.Marshal(map[string]string{"alt_text": fmt.Sprintf("Bild %d", i)})
        if err := c.Save(ctx, k, payload); err != nil {
            t.Fatalf("save %d: %v", i, err)
        }
        time.Sleep(10 * time.Millisecond)
    }
    got, ok, err := c.Get(ctx, keys[0])
    if err != nil || !ok || string(got) != `{"alt_text":"Bild 0"}` {
        t.Fatalf("get = %s ok=%v err=%v", got, ok, err)
    }
    // Sidecars of the HTTP cache never count as LLM entries.
    if err := os.WriteFile(filepath.Join(dir, "stray.meta.json"), []byte("{}"), 0o644); err != nil {
        t.Fatalf("write stray: %v", err)
    }
    removed, err := EnforceLLMCacheLimits(dir, 0, 2)
    if err != nil || removed != 1 {
        t.Fatalf("removed = %d, err = %v", removed, err)
    }
    if _, ok, _ := c.Get(ctx, keys[1]); ok {
        t.Fatalf("expected oldest untouched entry evicted")
    }
    if _, err := os.Stat(filepath.Join(dir, "stray.meta.json")); err != nil {
        t.Fatalf("non-LLM file removed: %v", err)
    }
}

func TestPurgeByAge(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    llmDir := t.TempDir()
    c := &LLMCache{Dir: llmDir}
    oldKey, newKey := KeyFrom("m", "old"), KeyFrom("m", "new")
    _ = c.Save(ctx, oldKey, []byte(`{}`))
    _ = c.Save(ctx, newKey, []byte(`{}`))
    past := time.Now().Add(-48 * time.Hour)
    if err := os.Chtimes(filepath.Join(llmDir, oldKey+".json"), past, past); err != nil {
        t.Fatalf("chtimes: %v", err)
    }
    if n, err := PurgeLLMCacheByAge(llmDir, 24*time.Hour); err != nil || n != 1 {
        t.Fatalf("llm purge removed %d, err %v", n, err)
    }
    if _, ok, _ := c.Get(ctx, newKey); !ok {
        t.Fatalf("fresh entry purged")
    }

    httpDir := t.TempDir()
    h := &HTTPCache{Dir: httpDir}
    _ = h.Save(ctx, "https://c.ch/x.jpg", "image/jpeg", "", "", []byte("x"))
    if n, _ := PurgeHTTPCacheByAge(httpDir, time.Hour); n != 0 {
        t.Fatalf("fresh http entry purged")
    }
    meta := HTTPEntry{URL: "https://c.ch/old.jpg", SavedAt: time.Now().Add(-2 * time.Hour)}
    b, _ := json.Marshal(meta)
    key := h.key(meta.URL)
    _ = os.WriteFile(filepath.Join(httpDir, key+".meta.json"), b, 0o644)
    _ = os.WriteFile(filepath.Join(httpDir, key+".body"), []byte("old"), 0o644)
    if n, err := PurgeHTTPCacheByAge(httpDir, time.Hour); err != nil || n != 1 {
        t.Fatalf("http purge removed %d, err %v", n, err)
    }
    if _, err := os.Stat(filepath.Join(httpDir, key+".body")); !os.IsNotExist(err) {
        t.Fatalf("body of purged entry still present")
    }
}

func TestClearDir(t *testing.T) {
    t.Parallel()
    dir := filepath.Join(t.TempDir(), "cache")
    if err := os.MkdirAll(filepath.Join(dir, "llm"), 0o755); err != nil {
        t.Fatalf("mkdir: %v", err)
    }
    _ = os.WriteFile(filepath.Join(dir, "llm", "x.json"), []byte("{}"), 0o644)
    if err := ClearDir(dir); err != nil {
        t.Fatalf("clear: %v", err)
    }
    entries, err := os.ReadDir(dir)
    if err != nil || len(entries) != 0 {
        t.Fatalf("expected empty dir, got %v err %v", entries, err)
    }
    if err := ClearDir(" "); err == nil {
        t.Fatalf("expected error for empty dir")
    }
}

func TestStrictPerms(t *testing.T) {
    t.Parallel()
    base := t.TempDir()
    ctx := context.Background()

    llmDir := filepath.Join(base, "llm")
    key := KeyFrom("model", "prompt")
    if err := (&LLMCache{Dir: llmDir, StrictPerms: true}).Save(ctx, key, []byte(`{"alt_text":"x"}`)); err != nil {
        t.Fatalf("save llm: %v", err)
    }
    httpDir := filepath.Join(base, "http")
    h := &HTTPCache{Dir: httpDir, StrictPerms: true}
    u := "https://example.com/x.png"
    if err := h.Save(ctx, u, "image/png", "etag", "", []byte("png")); err != nil {
        t.Fatalf("save http: %v", err)
    }

    for _, d := range []string{llmDir, httpDir} {
        info, err := os.Stat(d)
        if err != nil {
            t.Fatalf("stat %s: %v", d, err)
        }
        if got := info.Mode() & 0o777; got != 0o700 {
            t.Fatalf("%s mode = %o, want 0700", d, got)
        }
    }
    k := h.key(u)
    for _, f := range []string{filepath.Join(llmDir, key+".json"), filepath.Join(httpDir, k+".body"), filepath.Join(httpDir, k+".meta.json")} {
        info, err := os.Stat(f)
        if err != nil {
            t.Fatalf("stat %s: %v", f, err)
        }
        if got := info.Mode() & 0o777; got != 0o600 {
            t.Fatalf("%s mode = %o, want 0600", f, got)
        }
    }
}
