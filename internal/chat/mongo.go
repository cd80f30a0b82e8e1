package chat

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// MongoConfig configures the MongoDB-backed history store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

func (c MongoConfig) withDefaults() MongoConfig {
	if c.Database == "" {
		c.Database = "irag"
	}
	if c.Collection == "" {
		c.Collection = "chat_history"
	}
	return c
}

// chatDocument is one named chat inside a user document.
type chatDocument struct {
	Title string            `bson:"title,omitempty"`
	Turns []models.ChatTurn `bson:"turns"`
}

// userDocument holds all of one user's chats. Keeping the user's history in a
// single document makes the three-turn exchange append a single atomic write.
type userDocument struct {
	UserID string                  `bson:"_id"`
	Chats  map[string]chatDocument `bson:"chats"`
}

// MongoStore implements Store on a per-user-document layout.
type MongoStore struct {
	collection *mongo.Collection
	client     *mongo.Client
	log        logger.Logger
}

func NewMongoStore(cfg MongoConfig, log logger.Logger) (*MongoStore, error) {
	cfg = cfg.withDefaults()
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	return &MongoStore{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		client:     client,
		log:        log,
	}, nil
}

// AppendExchange pushes all three turns with a single $push/$each so a
// concurrent writer can never interleave inside an exchange.
func (s *MongoStore) AppendExchange(ctx context.Context, userID, chatID string, turns [3]models.ChatTurn) error {
	field := "chats." + chatID + ".turns"
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{field: bson.M{"$each": turns[:]}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("appending exchange to chat %q: %w", chatID, err)
	}
	s.log.Debug("appended exchange to chat %q for user %q", chatID, userID)
	return nil
}

func (s *MongoStore) History(ctx context.Context, userID, chatID string) ([]models.ChatTurn, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, ok := doc.Chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %q: %w", chatID, ErrChatNotFound)
	}
	return c.Turns, nil
}

// Recent fetches only the tail of the turns array with a $slice projection so
// long-running chats do not ship their whole history on every query.
func (s *MongoStore) Recent(ctx context.Context, userID, chatID string, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	var doc userDocument
	err := s.collection.FindOne(ctx,
		bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"chats." + chatID + ".turns": bson.M{"$slice": -limit}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading recent turns for chat %q: %w", chatID, err)
	}
	return doc.Chats[chatID].Turns, nil
}

func (s *MongoStore) SetTitle(ctx context.Context, userID, chatID, title string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"chats." + chatID + ".title": title}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("setting title for chat %q: %w", chatID, err)
	}
	return nil
}

func (s *MongoStore) Title(ctx context.Context, userID, chatID string) (string, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	return doc.Chats[chatID].Title, nil
}

func (s *MongoStore) ListChats(ctx context.Context, userID string) ([]string, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(doc.Chats))
	for id := range doc.Chats {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MongoStore) ClearChat(ctx context.Context, userID, chatID string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$unset": bson.M{"chats." + chatID: ""}},
	)
	if err != nil {
		return fmt.Errorf("clearing chat %q: %w", chatID, err)
	}
	s.log.Info("cleared chat %q for user %q", chatID, userID)
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) load(ctx context.Context, userID string) (userDocument, error) {
	var doc userDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return userDocument{}, fmt.Errorf("user %q: %w", userID, ErrChatNotFound)
	}
	if err != nil {
		return userDocument{}, fmt.Errorf("loading history for user %q: %w", userID, err)
	}
	return doc, nil
}
