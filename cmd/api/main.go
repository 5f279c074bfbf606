package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brpuneet898/bdm-chatbot/backend/internal/config"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/handler"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/service/ai"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/service/chat"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/store/supabase"
	"github.com/brpuneet898/bdm-chatbot/backend/internal/vectorstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Build the retrieval index before serving traffic.
	loader := vectorstore.NewLoader(cfg.Knowledge.Dir, cfg.Knowledge.TopK)
	ret, err := loader.EnsureFresh(ctx)
	if err != nil {
		log.Fatalf("failed to load vector store: %v", err)
	}
	go func() {
		if err := loader.Watch(ctx); err != nil {
			log.Printf("warning: knowledge watcher stopped: %v", err)
		}
	}()

	// Prime the shared model handle; a credential problem aborts startup.
	handle := ai.NewHandle(cfg.AI)
	aiService, err := ai.NewService(ctx, handle, ret, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Println("vector store and retrieval chain initialized")

	historyStore := supabase.New(cfg.Supabase)
	chatService := chat.NewService(aiService, historyStore)

	router := handler.NewRouter(chatService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("BDM chatbot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
