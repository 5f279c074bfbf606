package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	chatmodel "github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
	chatservice "github.com/brpuneet898/bdm-chatbot/backend/internal/service/chat"
)

const apology = "Sorry, I encountered an error while processing your request."

type stubPipeline struct {
	answer string
	err    error
	calls  int
}

func (p *stubPipeline) Answer(_ context.Context, query string, _ []chatmodel.Exchange) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if p.answer != "" {
		return p.answer, nil
	}
	return "echo: " + query, nil
}

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load(_ context.Context, _ string) ([]chatmodel.Exchange, error) {
	return nil, s.loadErr
}

func (s *failingStore) Save(_ context.Context, _ string, _ []chatmodel.Exchange) error {
	s.saves++
	return s.saveErr
}

func TestStartChatUniqueIDs(t *testing.T) {
	svc := chatservice.NewService(&stubPipeline{}, chatmodel.NewMemoryStore())

	first := svc.StartChat()
	second := svc.StartChat()

	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("first chat id is not a uuid: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct chat ids, got %s twice", first)
	}
}

func TestSendMessageFirstExchange(t *testing.T) {
	svc := chatservice.NewService(&stubPipeline{answer: "Use 1-inch margins."}, chatmodel.NewMemoryStore())

	answer, history, err := svc.SendMessage(context.Background(), "abc", "What page margins for the proposal?")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if answer == "" {
		t.Fatal("expected non-empty answer")
	}
	if len(history) != 1 {
		t.Fatalf("expected history of length 1, got %d", len(history))
	}
	if history[0].UserMessage != "What page margins for the proposal?" {
		t.Fatalf("unexpected user message: %q", history[0].UserMessage)
	}
	if history[0].BotResponse != answer {
		t.Fatalf("stored response %q does not match answer %q", history[0].BotResponse, answer)
	}
	if _, err := time.Parse(chatmodel.TimestampLayout, history[0].Timestamp); err != nil {
		t.Fatalf("timestamp %q does not match layout: %v", history[0].Timestamp, err)
	}
}

func TestSendMessageMissingFields(t *testing.T) {
	pipeline := &stubPipeline{}
	store := &failingStore{}
	svc := chatservice.NewService(pipeline, store)

	cases := []struct {
		name        string
		chatID      string
		userMessage string
	}{
		{"empty chat id", "", "hello"},
		{"empty user message", "abc", ""},
		{"both empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.SendMessage(context.Background(), tc.chatID, tc.userMessage)
			if !errors.Is(err, chatservice.ErrMissingFields) {
				t.Fatalf("expected ErrMissingFields, got %v", err)
			}
		})
	}

	if pipeline.calls != 0 {
		t.Fatalf("pipeline invoked %d times for invalid input", pipeline.calls)
	}
	if store.saves != 0 {
		t.Fatalf("store written %d times for invalid input", store.saves)
	}
}

func TestSendMessageTruncatesHistory(t *testing.T) {
	svc := chatservice.NewService(&stubPipeline{}, chatmodel.NewMemoryStore())
	ctx := context.Background()

	const total = 60
	var history []chatmodel.Exchange
	for i := 1; i <= total; i++ {
		var err error
		_, history, err = svc.SendMessage(ctx, "abc", fmt.Sprintf("message %d", i))
		if err != nil {
			t.Fatalf("SendMessage #%d err: %v", i, err)
		}
	}

	if len(history) != 50 {
		t.Fatalf("expected history capped at 50, got %d", len(history))
	}
	if history[0].UserMessage != "message 11" {
		t.Fatalf("expected oldest retained exchange to be message 11, got %q", history[0].UserMessage)
	}
	if history[len(history)-1].UserMessage != fmt.Sprintf("message %d", total) {
		t.Fatalf("expected newest exchange to be message %d, got %q", total, history[len(history)-1].UserMessage)
	}
	for i := 1; i < len(history); i++ {
		if history[i-1].Timestamp > history[i].Timestamp {
			t.Fatalf("history out of chronological order at %d", i)
		}
	}
}

func TestSendMessageBelowCapKeepsAll(t *testing.T) {
	svc := chatservice.NewService(&stubPipeline{}, chatmodel.NewMemoryStore())
	ctx := context.Background()

	var history []chatmodel.Exchange
	for i := 1; i <= 7; i++ {
		var err error
		_, history, err = svc.SendMessage(ctx, "abc", fmt.Sprintf("message %d", i))
		if err != nil {
			t.Fatalf("SendMessage #%d err: %v", i, err)
		}
	}

	if len(history) != 7 {
		t.Fatalf("expected 7 exchanges, got %d", len(history))
	}
}

func TestSendMessageStoreFailureStillAnswers(t *testing.T) {
	store := &failingStore{saveErr: errors.New("supabase down")}
	svc := chatservice.NewService(&stubPipeline{answer: "still here"}, store)

	answer, history, err := svc.SendMessage(context.Background(), "abc", "hello")
	if err != nil {
		t.Fatalf("expected no error despite store failure, got %v", err)
	}
	if answer != "still here" {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if len(history) != 1 {
		t.Fatalf("expected in-memory history of length 1, got %d", len(history))
	}
}

func TestSendMessagePipelineFailureReturnsApology(t *testing.T) {
	store := chatmodel.NewMemoryStore()
	svc := chatservice.NewService(&stubPipeline{err: errors.New("llm unavailable")}, store)
	ctx := context.Background()

	answer, history, err := svc.SendMessage(ctx, "abc", "hello")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if answer != apology {
		t.Fatalf("expected apology answer, got %q", answer)
	}
	if len(history) != 1 || history[0].BotResponse != apology {
		t.Fatalf("expected apology recorded in history, got %+v", history)
	}

	stored, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(stored) != 1 || stored[0].BotResponse != apology {
		t.Fatalf("expected apology persisted, got %+v", stored)
	}
}

func TestSendMessageLoadFailure(t *testing.T) {
	store := &failingStore{loadErr: errors.New("supabase down")}
	svc := chatservice.NewService(&stubPipeline{}, store)

	if _, _, err := svc.SendMessage(context.Background(), "abc", "hello"); err == nil {
		t.Fatal("expected error when history load fails")
	}
	if store.saves != 0 {
		t.Fatalf("store written %d times after load failure", store.saves)
	}
}
