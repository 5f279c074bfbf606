package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/config"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
)

// Service answers user queries through a retrieval-augmented chat chain:
// documents relevant to the query are folded into the system prompt, prior
// exchanges become chat history, and the shared model generates the reply.
type Service struct {
	retriever    retriever.Retriever
	systemPrompt string
	chain        compose.Runnable[map[string]any, *schema.Message]
}

// NewService resolves the shared model through the handle and compiles the
// chat chain. Called once at startup; a credential problem surfaces here.
func NewService(ctx context.Context, handle *Handle, ret retriever.Retriever, cfg config.AIConfig) (*Service, error) {
	chatModel, err := handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	return &Service{
		retriever:    ret,
		systemPrompt: systemPrompt,
		chain:        runnable,
	}, nil
}

// Answer generates a context-grounded reply for the query given the prior
// conversation history.
func (s *Service) Answer(ctx context.Context, query string, history []chat.Exchange) (string, error) {
	docs, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	input := map[string]any{
		"system":  s.buildSystemPrompt(docs),
		"history": buildHistoryMessages(history),
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[ai] generated response, context_docs=%d, length=%d", len(docs), len(response.Content))
	return response.Content, nil
}

// buildSystemPrompt appends retrieved document content to the base prompt as
// reference material the model should ground its answer in.
func (s *Service) buildSystemPrompt(docs []*schema.Document) string {
	if len(docs) == 0 {
		return s.systemPrompt
	}

	var builder strings.Builder
	builder.WriteString(s.systemPrompt)
	builder.WriteString("\n\nUse the following reference material when it is relevant to the question:")
	for _, doc := range docs {
		builder.WriteString("\n- ")
		builder.WriteString(strings.TrimSpace(doc.Content))
	}
	return builder.String()
}

func buildHistoryMessages(history []chat.Exchange) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(history)*2)
	for _, exchange := range history {
		messages = append(messages, schema.UserMessage(exchange.UserMessage))
		messages = append(messages, schema.AssistantMessage(exchange.BotResponse, nil))
	}
	return messages
}
