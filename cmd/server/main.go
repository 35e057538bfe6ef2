package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marvinh/rag-assistant/internal/blob"
	"github.com/marvinh/rag-assistant/internal/config"
	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/embed"
	"github.com/marvinh/rag-assistant/internal/ingest"
	"github.com/marvinh/rag-assistant/internal/llm"
	"github.com/marvinh/rag-assistant/internal/logger"
	"github.com/marvinh/rag-assistant/internal/rag"
	"github.com/marvinh/rag-assistant/internal/server"
	"github.com/marvinh/rag-assistant/internal/session"
	"github.com/marvinh/rag-assistant/internal/store"
	"github.com/marvinh/rag-assistant/internal/store/milvus"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if cfg.OpenAIAPIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	blobs, err := blob.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to open upload store: %v", err)
		os.Exit(1)
	}

	embedder := embed.NewCached(embed.NewService(embed.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDim,
	}))
	generator := llm.NewService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var remote core.VectorStore
	if cfg.MilvusAddr != "" {
		milvusStore, err := milvus.NewStore(ctx, cfg.MilvusAddr, cfg.MilvusCollection, cfg.EmbeddingDim)
		if err != nil {
			// Milvus being down only matters when it is the default
			// backend; otherwise keep serving from the local store.
			if cfg.Backend() == core.BackendMilvus {
				logger.Error("Failed to connect to Milvus: %v", err)
				os.Exit(1)
			}
			logger.Warn("Milvus unavailable, continuing without it: %v", err)
		} else {
			remote = milvusStore
			defer milvusStore.Close(context.Background())
		}
	}

	stores, err := store.NewProvider(remote, cfg.ChromaDir)
	if err != nil {
		logger.Error("Failed to open vector stores: %v", err)
		os.Exit(1)
	}

	pipeline := ingest.NewPipeline(
		ingest.NewLoader(blobs),
		ingest.NewSemanticChunker(embedder),
		embedder,
	)
	engine := rag.NewEngine(embedder, generator, cfg.MaxAnswerToks)
	svc := rag.NewService(blobs, pipeline, engine, stores, cfg.Backend())

	sessions, err := session.NewStore(cfg.SessionDB)
	if err != nil {
		logger.Error("Failed to open session store: %v", err)
		os.Exit(1)
	}
	defer sessions.Close()

	srv := server.New(cfg.HTTPAddr, cfg.AllowedOrigins, svc, sessions)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed: %v", err)
		}
	}

	logger.Info("Server stopped")
}
