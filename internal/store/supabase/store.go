// Package supabase persists chat histories through Supabase's PostgREST API.
// Each chat id maps to one row holding the full truncated exchange list as
// jsonb; writes are upserts, so concurrent writers are last-write-wins.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/config"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
)

// Store implements chat.HistoryStore against a Supabase table with columns
// chat_id (text primary key) and history (jsonb).
type Store struct {
	baseURL string
	key     string
	table   string
	client  *http.Client
}

// New builds a Store from the Supabase configuration.
func New(cfg config.SupabaseConfig) *Store {
	return &Store{
		baseURL: cfg.URL,
		key:     cfg.Key,
		table:   cfg.Table,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type record struct {
	ChatID  string          `json:"chat_id"`
	History []chat.Exchange `json:"history"`
}

// Load fetches the stored history for a chat id. An unknown id yields an
// empty history, not an error.
func (s *Store) Load(ctx context.Context, chatID string) ([]chat.Exchange, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?chat_id=eq.%s&select=history",
		s.baseURL, s.table, url.QueryEscape(chatID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}
	s.setAuthHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d fetching history: %s", resp.StatusCode, body)
	}

	var rows []record
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].History, nil
}

// Save upserts the full history for a chat id.
func (s *Store) Save(ctx context.Context, chatID string, history []chat.Exchange) error {
	payload, err := json.Marshal(record{ChatID: chatID, History: history})
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?on_conflict=chat_id", s.baseURL, s.table)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build store request: %w", err)
	}
	s.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to store history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d storing history: %s", resp.StatusCode, body)
	}

	return nil
}

func (s *Store) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
}
