package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "is_related: True\njustification: ok"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 30, "totalTokenCount": 150},
			"modelVersion": "gemini-2.0-flash-001"
		}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "gemini-2.0-flash",
		WithGeminiBaseURL(srv.URL),
		WithGeminiPricing(Pricing{InputPerMillion: 0.10, OutputPerMillion: 0.40}),
	)

	resp, err := client.Generate(context.Background(), Request{UserPrompt: "classify this"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.HasPrefix(resp.Content, "is_related: True") {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.Model != "gemini-2.0-flash-001" {
		t.Errorf("model = %q, want gemini-2.0-flash-001", resp.Model)
	}
	if resp.Usage.TotalTokens != 150 {
		t.Errorf("total tokens = %d, want 150", resp.Usage.TotalTokens)
	}
	if resp.Cost <= 0 {
		t.Errorf("expected positive cost, got %f", resp.Cost)
	}
}

func TestGeminiGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", WithGeminiBaseURL(srv.URL))

	_, err := client.Generate(context.Background(), Request{UserPrompt: "x"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry status code, got: %v", err)
	}
}

func TestGeminiNotConfigured(t *testing.T) {
	client := NewGeminiClient("", "gemini-2.0-flash")
	if client.Available() {
		t.Error("client without api key should not be available")
	}
	if _, err := client.Generate(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Error("expected error from unconfigured client")
	}
}
