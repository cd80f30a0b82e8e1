// Package tools defines the MCP tool surface. Each tool pairs a typed query
// and response with a handler; the server wires in the shared dependencies.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/rag"
)

type ExtractQuery struct {
	Query  string `json:"query"`
	ChatID string `json:"chat_id,omitempty"`
}

type ExtractResponse struct {
	StructuredResponse    string `json:"structured_response"`
	NonStructuredResponse string `json:"non_Structured_response"`
	Citations             string `json:"citations"`
	ChatID                string `json:"chat_id"`
}

func ExtractTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ExtractQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "extract",
		Description: "Answer a question over the indexed research-paper corpus. Returns a free-text answer, a structured extraction record, and the citations grounding the answer. Pass chat_id to continue an existing conversation; omit it to start a new one.",
		InputSchema: inputschema,
	}
}

func ExtractToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ExtractQuery, assistant *rag.Assistant, userID string, log logger.Logger) (*mcp.CallToolResult, *ExtractResponse, error) {
	log.Info("extract tool called")

	chatID := query.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	response, err := assistant.Query(ctx, userID, chatID, query.Query)
	if err != nil {
		log.Error("extract tool failed: %v", err)
		return nil, nil, err
	}

	return nil, &ExtractResponse{
		StructuredResponse:    response.StructuredResponse,
		NonStructuredResponse: response.NonStructuredResponse,
		Citations:             response.Citations,
		ChatID:                chatID,
	}, nil
}
