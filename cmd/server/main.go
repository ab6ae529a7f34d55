package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mikeboe/sitechat/pkg/chat"
	"github.com/mikeboe/sitechat/pkg/chunker"
	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/crawler"
	"github.com/mikeboe/sitechat/pkg/database"
	"github.com/mikeboe/sitechat/pkg/embeddings"
	"github.com/mikeboe/sitechat/pkg/pipeline"
	"github.com/mikeboe/sitechat/pkg/server"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

const version = "0.1.0"

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Database Connection
	var db *database.PostgresDB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			slog.Error("Failed to initialize schema", "error", err)
			os.Exit(1)
		}
	}

	embedder, err := embeddings.NewFromConfig(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to create embedder", "error", err)
		os.Exit(1)
	}

	store, err := vectorstore.NewFromConfig(ctx, cfg, db)
	if err != nil {
		slog.Error("Failed to open vector store", "store", cfg.VectorStore, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	generator, err := chat.NewGeneratorFromConfig(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create chat model", "error", err)
		os.Exit(1)
	}

	settings, err := config.NewSettingsStore(cfg.SettingsFile)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	responder := chat.NewResponder(embedder, store, generator,
		chat.WithTopK(cfg.TopK),
		chat.WithPersona(func() string { return settings.Get().PersonaName() }),
	)

	// Initialize Chat Service
	var sessions chat.SessionStore = chat.NewMemoryStore()
	var jobs server.JobStore = server.NewMemoryJobStore()
	if cfg.SessionStore == config.SessionsPostgres {
		sessions = chat.NewPostgresStore(db)
		jobs = server.NewPostgresJobStore(db)
	}
	chatSvc := chat.NewService(responder, sessions)

	renderers, err := crawler.FactoryFor(cfg.Renderer, cfg.SettleDelay, slog.Default())
	if err != nil {
		slog.Error("Failed to create renderer", "error", err)
		os.Exit(1)
	}
	chunks, err := chunker.New(cfg.ChunkStrategy, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		slog.Error("Failed to create chunker", "error", err)
		os.Exit(1)
	}

	// Initialize Service & Handler
	svc := server.NewService(jobs, pipeline.Components{
		Renderers: renderers,
		Chunker:   chunks,
		Embedder:  embedder,
		Store:     store,
		BatchSize: cfg.BatchSize,
	}, cfg.MaxPages)
	svc.CrawlOutput = cfg.CrawlOutput
	svc.ChunksFile = cfg.ChunksFile
	svc.LogSink = handler

	mcpHandler := server.NewMCPHandler(server.NewMCPServer(responder, version))
	r := server.NewRouter(server.NewHandler(svc, chatSvc, settings, mcpHandler))

	slog.Info("Server starting", "port", cfg.Port, "vector_store", cfg.VectorStore, "index", cfg.IndexName)
	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
