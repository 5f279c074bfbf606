package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatModel "github.com/brpuneet898/bdm-chatbot/backend/internal/model/chat"
	chatService "github.com/brpuneet898/bdm-chatbot/backend/internal/service/chat"
	"github.com/brpuneet898/bdm-chatbot/backend/pkg/utils"
)

// internalErrorMessage is the only detail a 500 response carries.
const internalErrorMessage = "An error occurred while processing your request."

// Handler exposes the chat service over HTTP.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/start_chat", h.handleStartChat)
	r.Post("/chat", h.handleChat)
}

// handleStartChat provisions a new chat session id.
func (h *Handler) handleStartChat(w http.ResponseWriter, r *http.Request) {
	chatID := h.chatSvc.StartChat()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"chat_id": chatID})
}

// handleChat runs one conversation turn.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ChatID      string `json:"chat_id"`
		UserMessage string `json:"user_message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("[http] invalid chat request body: %v", err)
		utils.RespondError(w, http.StatusBadRequest, chatService.ErrMissingFields.Error())
		return
	}

	answer, history, err := h.chatSvc.SendMessage(r.Context(), payload.ChatID, payload.UserMessage)
	if err != nil {
		if errors.Is(err, chatService.ErrMissingFields) {
			log.Printf("[http] chat_id or user_message missing in request")
			utils.RespondError(w, http.StatusBadRequest, chatService.ErrMissingFields.Error())
			return
		}
		log.Printf("[http] error in chat route: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	utils.RespondJSON(w, http.StatusOK, struct {
		BotResponse string               `json:"bot_response"`
		ChatHistory []chatModel.Exchange `json:"chat_history"`
	}{
		BotResponse: answer,
		ChatHistory: history,
	})
}
