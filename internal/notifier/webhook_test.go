package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bluelight-labs/vigia/internal/models"
)

func TestWebhookConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  WebhookConfig
		wantErr bool
	}{
		{
			name:   "valid https",
			config: WebhookConfig{URL: "https://discord.com/api/webhooks/123/abc"},
		},
		{
			name:   "valid http",
			config: WebhookConfig{URL: "http://localhost:8080/hook"},
		},
		{
			name:    "missing URL",
			config:  WebhookConfig{},
			wantErr: true,
		},
		{
			name:    "bad scheme",
			config:  WebhookConfig{URL: "ftp://example.com/hook"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var mu sync.Mutex
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		mu.Lock()
		received = append(received, payload["content"])
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier("cor", WebhookConfig{
		URL:           server.URL,
		RatePerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}

	alert := &models.Alert{
		ID:          "alert-1",
		Solicitante: "cor",
		Message:     "**Alerta de seguranca**\nTiroteio proximo ao perimetro.",
	}
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 request, got %d", len(received))
	}
	if received[0] != alert.Message {
		t.Errorf("content = %q, want %q", received[0], alert.Message)
	}
}

func TestWebhookNotifierChunksLongMessage(t *testing.T) {
	var mu sync.Mutex
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		mu.Lock()
		received = append(received, payload["content"])
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier("cet-rio", WebhookConfig{
		URL:              server.URL,
		MaxMessageLength: 200,
		RatePerSecond:    1000,
	})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, strings.Repeat("a", 80))
	}
	alert := &models.Alert{
		ID:          "alert-2",
		Solicitante: "cet-rio",
		Message:     strings.Join(lines, "\n"),
	}
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) < 2 {
		t.Fatalf("expected multiple chunk posts, got %d", len(received))
	}
	for i, content := range received {
		if len(content) > 200 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(content))
		}
	}
	if strings.Join(received, "\n") != alert.Message {
		t.Error("rejoined chunks do not reproduce the original message")
	}
}

func TestWebhookNotifierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier("cor", WebhookConfig{URL: server.URL, RatePerSecond: 1000})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}

	alert := &models.Alert{ID: "alert-3", Solicitante: "cor", Message: "msg"}
	err = n.Send(context.Background(), alert)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status code in error, got: %v", err)
	}
}

func TestWebhookNotifierEmptyMessage(t *testing.T) {
	n, err := NewWebhookNotifier("cor", WebhookConfig{URL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	alert := &models.Alert{ID: "alert-4", Solicitante: "cor"}
	if err := n.Send(context.Background(), alert); err == nil {
		t.Fatal("expected error for empty message")
	}
}

type recordingNotifier struct {
	name  string
	sent  []*models.Alert
	fail  bool
	mu    sync.Mutex
	close bool
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return context.DeadlineExceeded
	}
	r.sent = append(r.sent, alert)
	return nil
}

func (r *recordingNotifier) Close() error {
	r.close = true
	return nil
}

func TestDispatcherRoutesByRequester(t *testing.T) {
	cor := &recordingNotifier{name: "cor"}
	cet := &recordingNotifier{name: "cet-rio"}

	d := NewDispatcher()
	d.Register(cor)
	d.Register(cet)

	alert := &models.Alert{ID: "a1", Solicitante: "cet-rio", Message: "msg"}
	if err := d.Dispatch(context.Background(), alert); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(cet.sent) != 1 {
		t.Errorf("expected cet-rio to receive the alert, got %d", len(cet.sent))
	}
	if len(cor.sent) != 0 {
		t.Errorf("cor should not receive the alert, got %d", len(cor.sent))
	}
}

func TestDispatcherUnknownRequester(t *testing.T) {
	d := NewDispatcher()
	d.Register(&recordingNotifier{name: "cor"})

	alert := &models.Alert{ID: "a2", Solicitante: "desconhecido", Message: "msg"}
	if err := d.Dispatch(context.Background(), alert); err == nil {
		t.Fatal("expected error for unknown requester")
	}
}

func TestDispatcherSendError(t *testing.T) {
	d := NewDispatcher()
	d.Register(&recordingNotifier{name: "cor", fail: true})

	alert := &models.Alert{ID: "a3", Solicitante: "cor", Message: "msg"}
	if err := d.Dispatch(context.Background(), alert); err == nil {
		t.Fatal("expected error when the channel fails")
	}
}

func TestDispatcherClose(t *testing.T) {
	cor := &recordingNotifier{name: "cor"}
	d := NewDispatcher()
	d.Register(cor)

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !cor.close {
		t.Error("expected underlying notifier to be closed")
	}
}
