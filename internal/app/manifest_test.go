package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hyperifyio/altscout/internal/batch"
)

func TestBuildManifestEntries_ComputesSHA256AndChars(t *testing.T) {
	results := []batch.Result{
		{URL: "https://example.com/a.jpg", Context: "hello", Success: true},
		{URL: "https://example.com/b.jpg", Context: "Zürich\n", SourceWebsite: "https://example.com/"},
	}
	entries := buildManifestEntries(results)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries; got %d", len(entries))
	}
	if entries[0].ContextChars != 5 || entries[1].ContextChars != 6 {
		t.Fatalf("unexpected char counts: %+v", entries)
	}
	if entries[0].ContextSHA256 != computeSHA256Hex("hello") {
		t.Fatalf("digest mismatch")
	}
	if entries[0].Index != 1 || entries[1].Index != 2 || entries[1].Website != "https://example.com/" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if countSucceeded(results) != 1 {
		t.Fatalf("countSucceeded")
	}
}

func TestMarshalManifestJSON_RoundTrip(t *testing.T) {
	meta := manifestMeta{Mode: ModePage, Model: "vision", GeneratedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), ImageCount: 1}
	b, err := marshalManifestJSON(meta, []manifestEntry{{Index: 1, URL: "u", ContextSHA256: "abcd"}})
	if err != nil {
		t.Fatal(err)
	}
	var back struct {
		Meta   manifestMeta    `json:"meta"`
		Images []manifestEntry `json:"images"`
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Meta.Model != "vision" || len(back.Images) != 1 || back.Images[0].ContextSHA256 != "abcd" {
		t.Fatalf("unexpected %+v", back)
	}
	if deriveManifestSidecarPath("out.csv") != "out.csv.manifest.json" {
		t.Fatalf("sidecar path")
	}
}
