package server

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/chat"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/config"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/documents"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/rag"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/retrieval"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
	"github.com/OmNagvekar/Information-Retrieval-RAG/tools"
)

func CreateServer(log logger.Logger) *mcp.Server {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "irag-mcp", Version: "v0.1.0"}, nil)

	gen := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		CallTimeout: cfg.CallTimeout,
	}, log)
	inv := llm.NewInvoker(llm.InvokerConfig{
		CallsPerPeriod: cfg.CallsPerPeriod,
		Period:         cfg.RateGranted,
	}, log)

	index, err := retrieval.NewWeaviateIndex(retrieval.WeaviateConfig{
		Host:      cfg.WeaviateHost,
		Scheme:    cfg.WeaviateScheme,
		APIKey:    cfg.WeaviateAPIKey,
		ClassName: cfg.WeaviateClass,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize vector index: %v", err)
	}
	engine := retrieval.NewEngine(index, gen, inv, retrieval.Config{}, log)

	store := initializeChatStore(cfg, log)
	schemaStore := initializeSchemaStore(cfg, log)

	registry := documents.NewRegistry(cfg.PDFDir, log)
	if err := registry.Refresh(); err != nil {
		log.Warn("Initial corpus scan failed: %v", err)
	}

	assistant := rag.NewAssistant(engine, gen, inv, store, registry, schema.Default(),
		rag.Config{ArtifactDir: cfg.ArtifactDir, ForceJSON: cfg.ForceJSON}, log)

	mcp.AddTool(server, tools.ExtractTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ExtractQuery) (*mcp.CallToolResult, *tools.ExtractResponse, error) {
		return tools.ExtractToolHandler(ctx, req, query, assistant, cfg.UserID, log)
	})

	mcp.AddTool(server, tools.ListDocumentsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ListDocumentsQuery) (*mcp.CallToolResult, *tools.ListDocumentsResponse, error) {
		return tools.ListDocumentsToolHandler(ctx, req, query, registry, log)
	})

	mcp.AddTool(server, tools.NewChatTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.NewChatQuery) (*mcp.CallToolResult, *tools.NewChatResponse, error) {
		return tools.NewChatToolHandler(ctx, req, query, log)
	})

	mcp.AddTool(server, tools.ChatHistoryTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ChatHistoryQuery) (*mcp.CallToolResult, *tools.ChatHistoryResponse, error) {
		return tools.ChatHistoryToolHandler(ctx, req, query, store, cfg.UserID, log)
	})

	mcp.AddTool(server, tools.ListChatsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ListChatsQuery) (*mcp.CallToolResult, *tools.ListChatsResponse, error) {
		return tools.ListChatsToolHandler(ctx, req, query, store, cfg.UserID, log)
	})

	mcp.AddTool(server, tools.ClearHistoryTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ClearHistoryQuery) (*mcp.CallToolResult, *tools.ClearHistoryResponse, error) {
		return tools.ClearHistoryToolHandler(ctx, req, query, store, cfg.UserID, log)
	})

	mcp.AddTool(server, tools.SaveSchemaTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.SaveSchemaQuery) (*mcp.CallToolResult, *tools.SaveSchemaResponse, error) {
		return tools.SaveSchemaToolHandler(ctx, req, query, schemaStore, log)
	})

	mcp.AddTool(server, tools.ListSchemasTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ListSchemasQuery) (*mcp.CallToolResult, *tools.ListSchemasResponse, error) {
		return tools.ListSchemasToolHandler(ctx, req, query, schemaStore, assistant, log)
	})

	mcp.AddTool(server, tools.UseSchemaTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.UseSchemaQuery) (*mcp.CallToolResult, *tools.UseSchemaResponse, error) {
		return tools.UseSchemaToolHandler(ctx, req, query, schemaStore, assistant, log)
	})

	return server
}

// initializeChatStore selects MongoDB when a URI is configured and falls back
// to the in-memory store otherwise.
func initializeChatStore(cfg config.Config, log logger.Logger) chat.Store {
	if cfg.MongoURI == "" {
		log.Info("No MongoDB URI configured, chat history is in-memory only")
		return chat.NewMemoryStore()
	}
	store, err := chat.NewMongoStore(chat.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize chat store: %v", err)
	}
	return store
}

func initializeSchemaStore(cfg config.Config, log logger.Logger) *schema.Store {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("Failed to create data directory: %v", err)
	}
	store, err := schema.NewStore(cfg.SchemaDBPath(), []byte(cfg.SigningKey), log)
	if err != nil {
		log.Fatal("Failed to initialize schema store: %v", err)
	}
	return store
}
