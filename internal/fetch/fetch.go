package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/altscout/internal/cache"
)

var (
	// ErrInvalidURL is returned for URLs without scheme or host.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrUnsupportedScheme is returned for anything but http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrUnsupportedContentType is returned when the response is not of the
	// requested kind (HTML page or image).
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// Client wraps http.Client and provides timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for HTTP GET bodies and headers.
	Cache *cache.HTTPCache
	// If true, bypass cache entirely and fetch fresh (no conditional headers),
	// but still save the latest response to cache.
	BypassCache bool

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int
	// Limiter, when set, spaces requests to the same host.
	Limiter *HostLimiter

	// internal limiter initialized on first use when MaxConcurrent > 0
	limiter     chan struct{}
	limiterOnce sync.Once
}

// acceptFunc decides whether a response content type is usable.
type acceptFunc func(contentType string) bool

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// GetPage fetches an HTML document. It returns the body and its content type.
func (c *Client) GetPage(ctx context.Context, url string) ([]byte, string, error) {
	return c.get(ctx, url, isAllowedHTMLContentType)
}

// GetImage fetches image bytes. Servers that label images as
// application/octet-stream are accepted; the caller sniffs the format.
func (c *Client) GetImage(ctx context.Context, url string) ([]byte, string, error) {
	return c.get(ctx, url, isAllowedImageContentType)
}

// Validate checks that rawURL is a well-formed http(s) URL and that a HEAD
// request answers with an HTML content type.
func (c *Client) Validate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if !isHTTPScheme(u) {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	resp, err := c.do(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); !isAllowedHTMLContentType(ct) {
		return fmt.Errorf("%w: %s", ErrUnsupportedContentType, ct)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, accept acceptFunc) ([]byte, string, error) {
	// If cache exists, attempt conditional request
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, url); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	refetched := false
	for i := 0; i < attempts; i++ {
		res, err := c.tryOnce(ctx, url, etag, lastMod, accept)
		if err == nil {
			if res.status == http.StatusNotModified {
				if c.Cache != nil {
					if cached, err := c.Cache.LoadBody(ctx, url); err == nil {
						ct := res.contentType
						if meta, merr := c.Cache.LoadMeta(ctx, url); merr == nil && meta.ContentType != "" {
							ct = meta.ContentType
						}
						return cached, ct, nil
					}
				}
				// The cached body is gone; ask once more without validators.
				if refetched || (etag == "" && lastMod == "") {
					return nil, "", &StatusError{Code: res.status}
				}
				log.Debug().Str("url", url).Msg("cached body missing after 304; refetching")
				etag, lastMod = "", ""
				refetched = true
				i--
				continue
			}
			if c.Cache != nil && res.status == http.StatusOK {
				if err := c.Cache.Save(ctx, url, res.contentType, res.etag, res.lastModified, res.body); err != nil {
					log.Debug().Err(err).Str("url", url).Msg("cache save failed")
				}
			}
			return res.body, res.contentType, nil
		}
		if !isTransient(err) || i == attempts-1 {
			return nil, "", err
		}
		lastErr = err
		log.Debug().Err(err).Str("url", url).Int("attempt", i+1).Msg("transient fetch error; retrying")
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, "", lastErr
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) tryOnce(ctx context.Context, url string, etag string, lastMod string, accept acceptFunc) (response, error) {
	headers := http.Header{}
	if etag != "" {
		headers.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		headers.Set("If-Modified-Since", lastMod)
	}
	resp, err := c.do(ctx, http.MethodGet, url, headers)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		// 304: no body expected; return no error with status 304
		return response{
			contentType:  resp.Header.Get("Content-Type"),
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			status:       resp.StatusCode,
		}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{status: resp.StatusCode}, &StatusError{Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !accept(contentType) {
		return response{status: resp.StatusCode}, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{status: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	return response{
		body:         b,
		contentType:  contentType,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}, nil
}

// do sends one request through the concurrency gate and host limiter. The
// caller must close the response body to give the slot back.
func (c *Client) do(ctx context.Context, method, rawURL string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, req.URL.Hostname()); err != nil {
			return nil, err
		}
	}
	// The concurrency slot is held until the response body is closed.
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	cancel := context.CancelFunc(func() {})
	if c.PerRequestTimeout > 0 {
		var tctx context.Context
		tctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		req = req.WithContext(tctx)
	}
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		cancel()
		c.release()
		return nil, err
	}
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, done: func() {
		cancel()
		c.release()
	}}
	return resp, nil
}

// releaseOnClose frees the per-request timeout and the concurrency slot
// once the body is closed.
type releaseOnClose struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *releaseOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.done)
	return err
}

func isTransient(err error) bool {
	// Treat HTTP 5xx and context deadline as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500 && se.Code <= 599
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// allow text/html variants and application/xhtml+xml
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func isAllowedImageContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "application/octet-stream")
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
		// should not happen, but avoid blocking
	}
}
