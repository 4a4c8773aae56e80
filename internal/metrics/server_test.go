package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServerStartReturnsWhileServing(t *testing.T) {
	srv := NewServer("127.0.0.1:0")

	done := make(chan error, 1)
	go func() {
		done <- srv.Start()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return while serving")
	}
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "# HELP") {
		t.Error("metrics response missing exposition format output")
	}
}

func TestServerIndexPage(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "/metrics") {
		t.Error("index page should link to /metrics")
	}

	missing, err := http.Get("http://" + srv.Addr() + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want %d", missing.StatusCode, http.StatusNotFound)
	}
}

func TestServerBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0")
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Shutdown(context.Background())

	second := NewServer(first.Addr())
	if err := second.Start(); err == nil {
		second.Shutdown(context.Background())
		t.Fatal("Start() on an occupied address should fail")
	}
}
