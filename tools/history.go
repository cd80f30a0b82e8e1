package tools

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/chat"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
)

type NewChatQuery struct{}

type NewChatResponse struct {
	ChatID string `json:"chat_id"`
}

func NewChatTool() *mcp.Tool {
	inputschema, err := jsonschema.For[NewChatQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "new-chat",
		Description: "Start a new conversation and return its chat id. Subsequent query calls with this id share one history.",
		InputSchema: inputschema,
	}
}

func NewChatToolHandler(ctx context.Context, req *mcp.CallToolRequest, query NewChatQuery, log logger.Logger) (*mcp.CallToolResult, *NewChatResponse, error) {
	log.Info("new-chat tool called")
	return nil, &NewChatResponse{ChatID: uuid.NewString()}, nil
}

type ChatHistoryQuery struct {
	ChatID string `json:"chat_id"`
}

// HistoryTurn is the wire form of a persisted turn.
type HistoryTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ChatHistoryResponse struct {
	ChatID string        `json:"chat_id"`
	Title  string        `json:"title,omitempty"`
	Turns  []HistoryTurn `json:"turns"`
}

func ChatHistoryTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ChatHistoryQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "chat-history",
		Description: "Return the full history of a conversation: human queries, AI answers and citation documents, in order.",
		InputSchema: inputschema,
	}
}

func ChatHistoryToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ChatHistoryQuery, store chat.Store, userID string, log logger.Logger) (*mcp.CallToolResult, *ChatHistoryResponse, error) {
	log.Info("chat-history tool called")

	turns, err := store.History(ctx, userID, query.ChatID)
	if err != nil {
		log.Error("chat-history tool failed: %v", err)
		return nil, nil, err
	}
	title, err := store.Title(ctx, userID, query.ChatID)
	if err != nil {
		title = ""
	}

	out := make([]HistoryTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryTurn{
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	return nil, &ChatHistoryResponse{ChatID: query.ChatID, Title: title, Turns: out}, nil
}

type ListChatsQuery struct{}

type ListChatsResponse struct {
	ChatIDs []string `json:"chat_ids"`
}

func ListChatsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ListChatsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "list-chats",
		Description: "List the ids of all stored conversations.",
		InputSchema: inputschema,
	}
}

func ListChatsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ListChatsQuery, store chat.Store, userID string, log logger.Logger) (*mcp.CallToolResult, *ListChatsResponse, error) {
	log.Info("list-chats tool called")
	ids, err := store.ListChats(ctx, userID)
	if err != nil {
		log.Error("list-chats tool failed: %v", err)
		return nil, nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, &ListChatsResponse{ChatIDs: ids}, nil
}

type ClearHistoryQuery struct {
	ChatID string `json:"chat_id"`
}

type ClearHistoryResponse struct {
	Cleared bool `json:"cleared"`
}

func ClearHistoryTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ClearHistoryQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "clear-history",
		Description: "Delete a conversation and its history.",
		InputSchema: inputschema,
	}
}

func ClearHistoryToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ClearHistoryQuery, store chat.Store, userID string, log logger.Logger) (*mcp.CallToolResult, *ClearHistoryResponse, error) {
	log.Info("clear-history tool called")
	if err := store.ClearChat(ctx, userID, query.ChatID); err != nil {
		log.Error("clear-history tool failed: %v", err)
		return nil, nil, err
	}
	return nil, &ClearHistoryResponse{Cleared: true}, nil
}
