package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
)

// ErrMissingFields rejects requests without a chat id or user message.
var ErrMissingFields = errors.New("chat_id and user_message are required")

// maxHistory caps the stored conversation log; older exchanges are evicted
// oldest-first before every write.
const maxHistory = 50

// apologyResponse replaces the model's answer when the pipeline fails. The
// conversation continues; the failure is only logged.
const apologyResponse = "Sorry, I encountered an error while processing your request."

// Pipeline produces an answer for a query given the prior conversation.
type Pipeline interface {
	Answer(ctx context.Context, query string, history []chat.Exchange) (string, error)
}

// Service orchestrates a chat turn: load history, generate the answer,
// record the exchange, persist best-effort.
type Service struct {
	pipeline Pipeline
	store    chat.HistoryStore
}

// NewService wires the answer pipeline to the history store.
func NewService(pipeline Pipeline, store chat.HistoryStore) *Service {
	return &Service{pipeline: pipeline, store: store}
}

// StartChat provisions a fresh chat id. Nothing is persisted until the first
// message arrives.
func (s *Service) StartChat() string {
	chatID := uuid.NewString()
	log.Printf("[chat] new chat session started, chat_id=%s", chatID)
	return chatID
}

// SendMessage runs one conversation turn and returns the bot's answer along
// with the updated, truncated history. A pipeline failure degrades to a
// canned apology; a persistence failure is logged and never surfaced — the
// caller still receives the answer.
func (s *Service) SendMessage(ctx context.Context, chatID, userMessage string) (string, []chat.Exchange, error) {
	if chatID == "" || userMessage == "" {
		return "", nil, ErrMissingFields
	}

	history, err := s.store.Load(ctx, chatID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load history for chat_id=%s: %w", chatID, err)
	}
	if len(history) == 0 {
		log.Printf("[chat] no history found for chat_id=%s, starting a new session", chatID)
	}

	answer, err := s.pipeline.Answer(ctx, userMessage, history)
	if err != nil {
		log.Printf("[chat] error generating response for chat_id=%s: %v", chatID, err)
		answer = apologyResponse
	}

	exchange := chat.Exchange{
		Timestamp:   time.Now().Format(chat.TimestampLayout),
		UserMessage: userMessage,
		BotResponse: answer,
	}

	history = append(history, exchange)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	if err := s.store.Save(ctx, chatID, history); err != nil {
		log.Printf("[chat] error storing history for chat_id=%s: %v", chatID, err)
	} else {
		log.Printf("[chat] history updated for chat_id=%s, exchanges=%d", chatID, len(history))
	}

	return answer, history, nil
}
