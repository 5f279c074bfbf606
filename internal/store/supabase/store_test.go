package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/config"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
)

func newTestStore(handler http.HandlerFunc) (*Store, *httptest.Server) {
	ts := httptest.NewServer(handler)
	store := New(config.SupabaseConfig{
		URL:   ts.URL,
		Key:   "service-key",
		Table: "chat_histories",
	})
	return store, ts
}

func TestLoadExistingHistory(t *testing.T) {
	store, ts := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/rest/v1/chat_histories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("chat_id"); got != "eq.abc" {
			t.Errorf("unexpected chat_id filter %q", got)
		}
		if r.Header.Get("apikey") != "service-key" {
			t.Errorf("missing apikey header")
		}
		if r.Header.Get("Authorization") != "Bearer service-key" {
			t.Errorf("missing bearer token")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"chat_id":"abc","history":[{"timestamp":"2026-08-29 10:00:00","user_message":"hi","bot_response":"hello"}]}]`))
	})
	defer ts.Close()

	history, err := store.Load(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(history))
	}
	if history[0].UserMessage != "hi" || history[0].BotResponse != "hello" {
		t.Fatalf("unexpected exchange: %+v", history[0])
	}
}

func TestLoadUnknownChatID(t *testing.T) {
	store, ts := newTestStore(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	defer ts.Close()

	history, err := store.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error for unknown chat id, got %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}
}

func TestLoadServerError(t *testing.T) {
	store, ts := newTestStore(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
	})
	defer ts.Close()

	if _, err := store.Load(context.Background(), "abc"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSaveUpserts(t *testing.T) {
	var received record
	store, ts := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/rest/v1/chat_histories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("on_conflict"); got != "chat_id" {
			t.Errorf("unexpected on_conflict %q", got)
		}
		if prefer := r.Header.Get("Prefer"); !strings.Contains(prefer, "resolution=merge-duplicates") {
			t.Errorf("upsert preference missing, got %q", prefer)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})
	defer ts.Close()

	history := []chat.Exchange{
		{Timestamp: "2026-08-29 10:00:00", UserMessage: "hi", BotResponse: "hello"},
	}
	if err := store.Save(context.Background(), "abc", history); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	if received.ChatID != "abc" {
		t.Fatalf("unexpected chat_id in payload: %q", received.ChatID)
	}
	if len(received.History) != 1 || received.History[0].UserMessage != "hi" {
		t.Fatalf("unexpected history payload: %+v", received.History)
	}
}

func TestSaveServerError(t *testing.T) {
	store, ts := newTestStore(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "row level security", http.StatusForbidden)
	})
	defer ts.Close()

	if err := store.Save(context.Background(), "abc", nil); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
