package alttext

import (
    "context"
    "fmt"
    "net/url"
    "os"
    "path/filepath"
    "strings"
)

// Loader returns the raw bytes of an image.
type Loader interface {
    Load(ctx context.Context, rawURL string) ([]byte, error)
}

// ImageGetter is implemented by *fetch.Client.
type ImageGetter interface {
    GetImage(ctx context.Context, url string) ([]byte, string, error)
}

// SourceLoader reads file:// URLs from disk and fetches everything else
// through Remote.
type SourceLoader struct {
    Remote ImageGetter
}

func (l *SourceLoader) Load(ctx context.Context, rawURL string) ([]byte, error) {
    if strings.HasPrefix(strings.ToLower(rawURL), "file://") {
        u, err := url.Parse(rawURL)
        if err != nil {
            return nil, fmt.Errorf("parse file URL: %w", err)
        }
        b, err := os.ReadFile(filepath.FromSlash(u.Path))
        if err != nil {
            return nil, fmt.Errorf("read local image: %w", err)
        }
        return b, nil
    }
    if l.Remote == nil {
        return nil, fmt.Errorf("%w: no remote loader", ErrNotConfigured)
    }
    b, _, err := l.Remote.GetImage(ctx, rawURL)
    if err != nil {
        return nil, fmt.Errorf("download image: %w", err)
    }
    return b, nil
}

// FileURL turns a local path into an absolute file:// URL.
func FileURL(p string) (string, error) {
    abs, err := filepath.Abs(p)
    if err != nil {
        return "", err
    }
    return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
