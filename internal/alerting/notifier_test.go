package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testEvent() Event {
	return Event{
		Symbol:    "BTC",
		Direction: DirectionBelow,
		Price:     decimal.NewFromInt(95),
		Threshold: decimal.NewFromInt(100),
		At:        time.Now().UTC(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())

	if err := notifier.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "BELOW") || !strings.Contains(received["text"], "BTC") {
		t.Fatalf("message should mention symbol and direction: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())

	if err := notifier.Notify(context.Background(), testEvent()); err == nil {
		t.Fatal("ok=false must surface as an error")
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	notifier := NewLogNotifier(zerolog.Nop())
	if err := notifier.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("log notifier should never fail: %v", err)
	}
}
