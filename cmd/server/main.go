package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lucamori/seo-agent/pkg/agent"
	"github.com/lucamori/seo-agent/pkg/chat"
	"github.com/lucamori/seo-agent/pkg/config"
	"github.com/lucamori/seo-agent/pkg/database"
	"github.com/lucamori/seo-agent/pkg/embeddings"
	"github.com/lucamori/seo-agent/pkg/knowledge"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/retrieval"
	"github.com/lucamori/seo-agent/pkg/scanstore"
	"github.com/lucamori/seo-agent/pkg/server"
	"github.com/lucamori/seo-agent/pkg/workflow"
)

const (
	knowledgeCollection = "seo_knowledge"
	historyCollection   = "scan_history"
)

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// It's okay if .env doesn't exist, as long as env vars are set
	_ = godotenv.Load()

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "seo-agent",
		Short: "SEO audit service with retrieval-augmented AI analysis",
		Long:  "seo-agent scans websites for SEO issues and augments the audit with AI-generated fixes, roadmaps and strategy, streamed to the caller as the analysis progresses.",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe(cfg)
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index-knowledge",
		Short: "Embed and index the SEO knowledge base, then exit",
		Run: func(cmd *cobra.Command, args []string) {
			runIndex(cfg)
		},
	}

	rootCmd.AddCommand(serveCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	db             *database.PostgresDB
	embedder       embeddings.Embedder
	knowledgeStore *retrieval.Store
	historyStore   *retrieval.Store
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureVectorExtension(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, collection := range []string{knowledgeCollection, historyCollection} {
		if err := db.CreateCollectionTable(ctx, collection, cfg.EmbeddingDim); err != nil {
			db.Close()
			return nil, err
		}
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleAPIKey, cfg.EmbeddingDim)
	if err != nil {
		db.Close()
		return nil, err
	}

	knowledgeStore, err := retrieval.NewStore(db.Pool, knowledgeCollection)
	if err != nil {
		db.Close()
		return nil, err
	}
	historyStore, err := retrieval.NewStore(db.Pool, historyCollection)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		db:             db,
		embedder:       embedder,
		knowledgeStore: knowledgeStore,
		historyStore:   historyStore,
	}, nil
}

func runIndex(cfg *config.Config) {
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer st.db.Close()

	indexer := knowledge.NewIndexer(st.knowledgeStore, st.embedder, slog.Default())
	count, err := indexer.Index(ctx)
	if err != nil {
		slog.Error("Failed to index knowledge base", "error", err)
		os.Exit(1)
	}
	slog.Info("Knowledge base indexed", "documents", count)
}

func runServe(cfg *config.Config) {
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer st.db.Close()

	indexer := knowledge.NewIndexer(st.knowledgeStore, st.embedder, slog.Default())
	if indexed, err := indexer.Indexed(ctx); err != nil {
		slog.Warn("Could not check knowledge base state", "error", err)
	} else if !indexed {
		if _, err := indexer.Index(ctx); err != nil {
			slog.Warn("Knowledge base indexing failed, retrieval will be degraded", "error", err)
		}
	}

	cache, err := llm.NewCache(cfg.CacheCapacity)
	if err != nil {
		slog.Error("Failed to create response cache", "error", err)
		os.Exit(1)
	}

	registry := llm.NewRegistry(llm.Credentials{
		OpenAIKey:       cfg.OpenAIAPIKey,
		AnthropicKey:    cfg.AnthropicAPIKey,
		MistralKey:      cfg.MistralAPIKey,
		OllamaBaseURL:   cfg.OllamaBaseURL,
		LMStudioBaseURL: cfg.LMStudioBaseURL,
	}, cache, cfg.LLMMaxRetries, slog.Default())
	registry.SetDefaults(cfg.LLMTemperature, cfg.LLMMaxTokens)

	if _, err := registry.SetActive(llm.Config{Provider: cfg.LLMProvider, Model: cfg.LLMModel}); err != nil {
		slog.Warn("No LLM provider active at startup, configure one via POST /api/providers", "error", err)
	}

	retriever := retrieval.NewRetriever(st.embedder, slog.Default())
	retriever.Register(knowledgeCollection, st.knowledgeStore, cfg.KnowledgeResults)
	retriever.Register(historyCollection, st.historyStore, cfg.ScanResults)

	scans := scanstore.NewStore(st.historyStore, st.embedder, cfg.ChunkSize, cfg.ChunkOverlap, slog.Default())

	orchestrator := workflow.NewOrchestrator(workflow.Options{
		Generator:   registry,
		Retriever:   retriever,
		Persister:   scans,
		ContextTopK: cfg.ContextTopK,
		Logger:      slog.Default(),
	})

	agentRunner := agent.New(agent.Options{
		Generator:        registry,
		MaxIterations:    cfg.AgentMaxIterations,
		FailureThreshold: cfg.AgentFailureThreshold,
		Logger:           slog.Default(),
	})

	chatManager := chat.NewManager(chat.Options{
		Streamer:            registry,
		Retriever:           retriever,
		Scans:               scans,
		MaxHistory:          cfg.ChatMaxHistory,
		ContextTopK:         cfg.ContextTopK,
		KnowledgeCollection: knowledgeCollection,
		HistoryCollection:   historyCollection,
		Logger:              slog.Default(),
	})

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-Conversation-Id"},
		AllowCredentials: true,
	}))

	h := server.NewHandler(orchestrator, agentRunner, chatManager, registry, scans, slog.Default())
	h.RegisterRoutes(router)

	slog.Info("Starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
