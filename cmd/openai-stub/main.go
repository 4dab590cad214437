// Command openai-stub is a minimal OpenAI-compatible vision endpoint for
// local runs and tests. Every chat request that carries an image is answered
// with the same alt text.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultAltText = "Platzhalterbild für lokale Tests"

// chatRequest accepts both plain string content and multi-part content.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// hasImage reports whether any message carries an image_url part with a
// base64 data URL.
func (r chatRequest) hasImage() bool {
	for _, m := range r.Messages {
		var parts []contentPart
		if err := json.Unmarshal(m.Content, &parts); err != nil {
			continue
		}
		for _, p := range parts {
			if p.Type == "image_url" && p.ImageURL != nil && strings.HasPrefix(p.ImageURL.URL, "data:image/") {
				return true
			}
		}
	}
	return false
}

func newMux(model, altText string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if !req.hasImage() {
			http.Error(w, "image part missing", http.StatusBadRequest)
			return
		}
		log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("chat completion")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "stub-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": altText},
			}},
		})
	})
	return mux
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// probe GETs url and fails on anything but 200. Used as the container
// healthcheck since the runtime image has no shell tools.
func probe(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	probeURL := flag.String("probe", "", "Check that URL answers 200 and exit")
	flag.Parse()
	if *probeURL != "" {
		if err := probe(&http.Client{Timeout: 3 * time.Second}, *probeURL); err != nil {
			log.Error().Err(err).Str("url", *probeURL).Msg("probe failed")
			os.Exit(1)
		}
		return
	}
	model := envOr("MODEL_ID", "test-model")
	addr := envOr("ADDR", ":8081")
	altText := envOr("ALT_TEXT", defaultAltText)

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model, altText)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}
