package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/documents"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

type ListDocumentsQuery struct{}

type ListDocumentsResponse struct {
	Documents []models.DocumentInfo `json:"documents"`
}

func ListDocumentsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ListDocumentsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "list-documents",
		Description: "List the PDF documents in the indexed corpus, with page counts where available.",
		InputSchema: inputschema,
	}
}

func ListDocumentsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ListDocumentsQuery, registry *documents.Registry, log logger.Logger) (*mcp.CallToolResult, *ListDocumentsResponse, error) {
	log.Info("list-documents tool called")
	if err := registry.Refresh(); err != nil {
		log.Error("list-documents tool failed: %v", err)
		return nil, nil, err
	}
	docs := registry.Documents()
	if docs == nil {
		docs = []models.DocumentInfo{}
	}
	return nil, &ListDocumentsResponse{Documents: docs}, nil
}
