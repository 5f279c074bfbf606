package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/handler/chat"
	middlewarePkg "github.com/brpuneet898/bdm-chatbot/backend/internal/middleware"
	chatService "github.com/brpuneet898/bdm-chatbot/backend/internal/service/chat"
	"github.com/brpuneet898/bdm-chatbot/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(chatSvc)
	chatHandler.RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
