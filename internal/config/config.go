package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"github.com/marvinh/rag-assistant/internal/core"
)

// Config holds all runtime settings. Values come from the environment,
// typically via a .env file loaded in main.
type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"./uploads"`

	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDim   int    `env:"EMBEDDING_DIM" envDefault:"1536"`
	ChatModel      string `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	MaxAnswerToks  int    `env:"MAX_ANSWER_TOKENS" envDefault:"600"`

	// MilvusAddr left empty disables the milvus backend.
	MilvusAddr       string `env:"MILVUS_ADDR"`
	MilvusCollection string `env:"MILVUS_COLLECTION" envDefault:"documents"`

	ChromaDir string `env:"CHROMA_DIR" envDefault:"./data/chroma"`

	SessionDB string `env:"SESSION_DB" envDefault:"./data/sessions.db"`

	DefaultBackend string `env:"RAG_BACKEND" envDefault:"chroma"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	backend, ok := core.ParseBackend(cfg.DefaultBackend, core.BackendChroma)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownBackend, cfg.DefaultBackend)
	}
	if backend == core.BackendMilvus && cfg.MilvusAddr == "" {
		return nil, fmt.Errorf("RAG_BACKEND is milvus but MILVUS_ADDR is not set")
	}
	return cfg, nil
}

// Backend returns the default backend as a typed value.
func (c *Config) Backend() core.Backend {
	b, _ := core.ParseBackend(c.DefaultBackend, core.BackendChroma)
	return b
}
