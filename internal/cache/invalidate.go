package cache

import (
    "encoding/json"
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
    if strings.TrimSpace(dir) == "" {
        return errors.New("empty dir")
    }
    if err := os.RemoveAll(dir); err != nil {
        return err
    }
    return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes HTTP cache entries older than maxAge.
// It inspects <key>.meta.json for SavedAt timestamp and deletes both meta and
// corresponding <key>.body when expired.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    now := time.Now().UTC()
    removed := 0
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
            return nil
        }
        b, err := os.ReadFile(path)
        if err != nil {
            return nil // skip unreadable
        }
        var e HTTPEntry
        if err := json.Unmarshal(b, &e); err != nil {
            return nil // skip malformed
        }
        if now.Sub(e.SavedAt) <= maxAge {
            return nil
        }
        removed++
        removeHTTPEntry(path)
        return nil
    })
    return removed, err
}

// PurgeLLMCacheByAge removes LLM cache entries older than maxAge based on file
// modification time. LLM cache files use the .json extension and are leaf files.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    now := time.Now().UTC()
    removed := 0
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() || !isLLMEntry(d.Name()) {
            return nil
        }
        info, err := d.Info()
        if err != nil {
            return nil
        }
        if now.Sub(info.ModTime().UTC()) <= maxAge {
            return nil
        }
        removed++
        _ = os.Remove(path)
        return nil
    })
    return removed, err
}

// EnforceHTTPCacheLimits evicts least recently used HTTP entries until the
// total body size is at most maxBytes and at most maxCount entries remain.
// Zero disables the respective limit.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
    entries, err := collect(dir, func(name string) bool { return strings.HasSuffix(name, ".body") })
    if err != nil {
        return 0, err
    }
    return evict(entries, maxBytes, maxCount, func(p string) {
        removeHTTPEntry(strings.TrimSuffix(p, ".body") + ".meta.json")
    }), nil
}

// EnforceLLMCacheLimits is EnforceHTTPCacheLimits for LLM response files.
func EnforceLLMCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
    entries, err := collect(dir, isLLMEntry)
    if err != nil {
        return 0, err
    }
    return evict(entries, maxBytes, maxCount, func(p string) { _ = os.Remove(p) }), nil
}

type fileEntry struct {
    path    string
    size    int64
    modTime time.Time
}

func collect(dir string, match func(name string) bool) ([]fileEntry, error) {
    var out []fileEntry
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() || !match(d.Name()) {
            return nil
        }
        info, err := d.Info()
        if err != nil {
            return nil
        }
        out = append(out, fileEntry{path: path, size: info.Size(), modTime: info.ModTime()})
        return nil
    })
    // oldest first
    sort.Slice(out, func(i, j int) bool { return out[i].modTime.Before(out[j].modTime) })
    return out, err
}

func evict(entries []fileEntry, maxBytes int64, maxCount int, remove func(path string)) int {
    var total int64
    for _, e := range entries {
        total += e.size
    }
    count := len(entries)
    removed := 0
    for _, e := range entries {
        overBytes := maxBytes > 0 && total > maxBytes
        overCount := maxCount > 0 && count > maxCount
        if !overBytes && !overCount {
            break
        }
        remove(e.path)
        total -= e.size
        count--
        removed++
    }
    return removed
}

// removeHTTPEntry deletes a meta file and its body.
func removeHTTPEntry(metaPath string) {
    _ = os.Remove(metaPath)
    _ = os.Remove(strings.TrimSuffix(metaPath, ".meta.json") + ".body")
}

func isLLMEntry(name string) bool {
    if strings.HasSuffix(name, ".meta.json") || strings.HasSuffix(name, ".body") {
        return false
    }
    return strings.HasSuffix(name, ".json")
}
