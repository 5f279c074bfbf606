package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Supabase  SupabaseConfig
	Knowledge KnowledgeConfig
}

// Load reads configuration from environment variables. Missing Supabase
// credentials are a hard error; the process must not start without them.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	supabase, err := loadSupabaseConfig()
	if err != nil {
		return nil, err
	}

	knowledge, err := loadKnowledgeConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Supabase: supabase, Knowledge: knowledge}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the hosted chat model.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel constructs the chat model client from configuration.
// Temperature, model name, and credentials are fixed for the process
// lifetime once the model has been built.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: set ARK_API_KEY (or ARK_ACCESS_KEY + ARK_SECRET_KEY) and MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		defaultTemp := 0.8
		temperature = &defaultTemp
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        getEnvOrDefault("MODEL", "llama3-8b-8192"),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		SystemPrompt: strings.TrimSpace(os.Getenv("SYSTEM_PROMPT")),
	}, nil
}

// SupabaseConfig describes the persistence service. URL and key are
// mandatory; the service refuses to start without them.
type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

func loadSupabaseConfig() (SupabaseConfig, error) {
	url := strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	key := strings.TrimSpace(os.Getenv("SUPABASE_KEY"))

	if url == "" || key == "" {
		return SupabaseConfig{}, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be set")
	}

	return SupabaseConfig{
		URL:   strings.TrimSuffix(url, "/"),
		Key:   key,
		Table: getEnvOrDefault("SUPABASE_TABLE", "chat_histories"),
	}, nil
}

// KnowledgeConfig describes the local knowledge base backing retrieval.
type KnowledgeConfig struct {
	Dir  string
	TopK int
}

func loadKnowledgeConfig() (KnowledgeConfig, error) {
	topK := 4
	if override, err := parseOptionalIntEnv("RETRIEVER_TOP_K"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 1 {
			topK = 1
		} else {
			topK = *override
		}
	}

	return KnowledgeConfig{
		Dir:  getEnvOrDefault("KNOWLEDGE_DIR", "knowledge"),
		TopK: topK,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
