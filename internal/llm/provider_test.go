package llm

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    openai "github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_UsesBaseURL(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/v1/models":
            _ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []map[string]any{{"id": "vision-model", "object": "model"}}})
        case "/v1/chat/completions":
            if got := r.Header.Get("Authorization"); got != "Bearer secret" {
                t.Errorf("authorization header = %q", got)
            }
            _ = json.NewEncoder(w).Encode(map[string]any{
                "id":      "x",
                "object":  "chat.completion",
                "choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "ok"}}},
            })
        default:
            http.NotFound(w, r)
        }
    }))
    defer srv.Close()

    p := NewOpenAI(srv.URL+"/v1", "secret", srv.Client())
    var _ Client = p
    var _ ModelLister = p

    models, err := p.ListModels(context.Background())
    if err != nil || len(models.Models) != 1 || models.Models[0].ID != "vision-model" {
        t.Fatalf("ListModels = %+v, %v", models, err)
    }
    resp, err := p.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
        Model:    "vision-model",
        Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}},
    })
    if err != nil {
        t.Fatalf("chat: %v", err)
    }
    if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "ok" {
        t.Fatalf("unexpected response: %+v", resp)
    }
}
