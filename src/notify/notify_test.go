package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLogNotifier(t *testing.T) {
	if err := NewLogNotifier().Notify(context.Background(), "title", "message"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, 2*time.Second)
	if err := n.Notify(context.Background(), "tick completed", "buys=1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["title"] != "tick completed" || got["message"] != "buys=1" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebhookNotifierRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, 2*time.Second)
	if err := n.Notify(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected an error on webhook failure")
	}
}

func TestNewNotifier(t *testing.T) {
	if _, err := NewNotifier(Config{Backend: "log"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewNotifier(Config{Backend: ""}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewNotifier(Config{Backend: "webhook"}); err == nil {
		t.Fatal("expected an error without a webhook url")
	}
	if _, err := NewNotifier(Config{Backend: "carrier-pigeon"}); err == nil {
		t.Fatal("expected an error for unknown backends")
	}
}
