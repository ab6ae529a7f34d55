package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/database"
	"github.com/mikeboe/sitechat/pkg/embeddings"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

var verbose bool

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "sitechat",
		Short: "Turn a website into a retrieval-augmented chatbot",
		Long: `sitechat crawls a website, splits its pages into chunks, stores their embeddings
in a vector store and answers questions grounded in the indexed content.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newCrawlCmd(cfg),
		newChunkCmd(cfg),
		newIndexCmd(cfg),
		newIngestCmd(cfg),
		newAskCmd(cfg),
		newChatCmd(cfg),
		newSettingsCmd(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// backend holds the clients shared by the index, ingest and chat commands.
type backend struct {
	embedder *embeddings.Retrying
	store    vectorstore.Store
	db       *database.PostgresDB
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &backend{}
	if cfg.VectorStore == config.StorePGVector {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.db = db
	}

	embedder, err := embeddings.NewFromConfig(ctx, cfg, slog.Default())
	if err != nil {
		b.Close()
		return nil, err
	}
	b.embedder = embedder

	store, err := vectorstore.NewFromConfig(ctx, cfg, b.db)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.store = store
	return b, nil
}

func (b *backend) Close() {
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			slog.Warn("Failed to close vector store", "error", err)
		}
	}
	if b.db != nil {
		b.db.Close()
	}
}
