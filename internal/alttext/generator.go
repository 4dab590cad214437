// Package alttext asks a vision model for German alternative texts.
package alttext

import (
    "context"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/altscout/internal/cache"
    "github.com/hyperifyio/altscout/internal/llm"
    "github.com/hyperifyio/altscout/internal/locate"
)

var (
    // ErrNotConfigured is returned when client, loader or model is missing.
    ErrNotConfigured = errors.New("alt-text generator not configured")
    // ErrNoImageData is returned when the image could not be loaded or is empty.
    ErrNoImageData = errors.New("no image data")
    // ErrEmptyResponse is returned when the model answers with nothing usable.
    ErrEmptyResponse = errors.New("empty model response")
)

// DefaultMaxTokens bounds the model answer; alt texts are short.
const DefaultMaxTokens = 300

// Generator produces alt texts for located images.
type Generator struct {
    Client    llm.Client
    Loader    Loader
    Model     string
    MaxTokens int
    Cache     *cache.LLMCache
    // CacheOnly answers from the cache and fails fast on a miss.
    CacheOnly bool
    // RetryDelay is the pause before the single retry. Zero means 500ms.
    RetryDelay time.Duration
}

type cachedAltText struct {
    AltText string `json:"alt_text"`
}

// Generate loads the image, sends it with its context to the model and
// returns the cleaned answer.
func (g *Generator) Generate(ctx context.Context, img locate.Image) (string, error) {
    if g == nil || g.Client == nil || g.Loader == nil || strings.TrimSpace(g.Model) == "" {
        return "", ErrNotConfigured
    }
    data, err := g.Loader.Load(ctx, img.URL)
    if err != nil {
        return "", fmt.Errorf("%w: %v", ErrNoImageData, err)
    }
    if len(data) == 0 {
        return "", ErrNoImageData
    }
    prompt := BuildPrompt(img.Context, img.AltText)
    sum := sha256.Sum256(data)
    key := cache.KeyFrom(g.Model, prompt, hex.EncodeToString(sum[:]))

    if g.Cache != nil {
        if raw, ok, _ := g.Cache.Get(ctx, key); ok {
            var c cachedAltText
            if err := json.Unmarshal(raw, &c); err == nil && c.AltText != "" {
                log.Debug().Str("url", img.URL).Msg("alt text from cache")
                return c.AltText, nil
            }
        }
    }
    if g.CacheOnly {
        return "", fmt.Errorf("%w: cache miss", ErrEmptyResponse)
    }

    req := g.request(prompt, DetectMIME(img.URL, data), data)
    resp, err := g.Client.CreateChatCompletion(ctx, req)
    if err != nil {
        log.Debug().Err(err).Str("url", img.URL).Msg("model call failed; retrying once")
        select {
        case <-ctx.Done():
            return "", ctx.Err()
        case <-time.After(g.retryDelay()):
        }
        resp, err = g.Client.CreateChatCompletion(ctx, req)
        if err != nil {
            return "", fmt.Errorf("model call (after retry): %w", err)
        }
    }
    if len(resp.Choices) == 0 {
        return "", ErrEmptyResponse
    }
    out := CleanAltText(resp.Choices[0].Message.Content)
    if out == "" {
        return "", ErrEmptyResponse
    }
    if g.Cache != nil {
        payload, _ := json.Marshal(cachedAltText{AltText: out})
        if err := g.Cache.Save(ctx, key, payload); err != nil {
            log.Debug().Err(err).Msg("llm cache save failed")
        }
    }
    return out, nil
}

func (g *Generator) request(prompt, mimeType string, data []byte) openai.ChatCompletionRequest {
    maxTokens := g.MaxTokens
    if maxTokens <= 0 {
        maxTokens = DefaultMaxTokens
    }
    dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
    return openai.ChatCompletionRequest{
        Model:     g.Model,
        MaxTokens: maxTokens,
        Messages: []openai.ChatCompletionMessage{{
            Role: openai.ChatMessageRoleUser,
            MultiContent: []openai.ChatMessagePart{
                {Type: openai.ChatMessagePartTypeText, Text: prompt},
                {Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
            },
        }},
    }
}

func (g *Generator) retryDelay() time.Duration {
    if g.RetryDelay > 0 {
        return g.RetryDelay
    }
    return 500 * time.Millisecond
}
