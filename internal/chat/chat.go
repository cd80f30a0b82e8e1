// Package chat persists conversation history. Each user owns a set of named
// chats; every answered query appends exactly three turns to the active chat,
// in a single atomic write: the human query, the AI answer, and the citation
// document.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// ErrChatNotFound reports a lookup for a chat id that does not exist for the
// user.
var ErrChatNotFound = errors.New("chat not found")

// Store is the history persistence boundary.
type Store interface {
	// AppendExchange atomically appends the three turns of one answered
	// query to the chat, creating the chat if needed.
	AppendExchange(ctx context.Context, userID, chatID string, turns [3]models.ChatTurn) error

	// History returns the chat's turns in insertion order.
	History(ctx context.Context, userID, chatID string) ([]models.ChatTurn, error)

	// Recent returns the last limit turns in insertion order. A chat that
	// does not exist yet yields no turns, not an error.
	Recent(ctx context.Context, userID, chatID string, limit int) ([]models.ChatTurn, error)

	// SetTitle records the chat's display title. Titles are set once, on the
	// first exchange.
	SetTitle(ctx context.Context, userID, chatID, title string) error

	// Title returns the chat's display title, empty when unset.
	Title(ctx context.Context, userID, chatID string) (string, error)

	// ListChats returns the user's chat ids.
	ListChats(ctx context.Context, userID string) ([]string, error)

	// ClearChat removes a chat and its history.
	ClearChat(ctx context.Context, userID, chatID string) error

	Close(ctx context.Context) error
}

// Exchange builds the three-turn batch for one answered query. Turn order is
// fixed: human, ai, citation.
func Exchange(query, answer, citations string, at time.Time) [3]models.ChatTurn {
	return [3]models.ChatTurn{
		{Role: models.RoleHuman, Content: query, Timestamp: at},
		{Role: models.RoleAI, Content: answer, Timestamp: at},
		{Role: models.RoleCitation, Content: citations, Timestamp: at},
	}
}
