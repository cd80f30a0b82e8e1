package retrieval

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// WeaviateConfig configures the Weaviate-backed vector index adapter.
// Vectorization happens server-side (text2vec modules), so this process
// never touches embeddings.
type WeaviateConfig struct {
	Host   string
	Scheme string
	APIKey string
	// ClassName is the collection holding passage chunks. Defaults to
	// "PaperChunk".
	ClassName string
}

// WeaviateIndex implements VectorIndex against a Weaviate cluster.
type WeaviateIndex struct {
	client *weaviate.Client
	class  string
	log    logger.Logger
}

func NewWeaviateIndex(cfg WeaviateConfig, log logger.Logger) (*WeaviateIndex, error) {
	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}

	class := cfg.ClassName
	if class == "" {
		class = "PaperChunk"
	}
	return &WeaviateIndex{client: client, class: class, log: log}, nil
}

// Search runs a nearText similarity search restricted to the given document.
func (w *WeaviateIndex) Search(ctx context.Context, query string, filter Filter, k int) ([]models.Passage, error) {
	fields := []graphql.Field{{Name: "content"}}
	for _, f := range MetadataFields() {
		if f.Property != "" {
			fields = append(fields, graphql.Field{Name: f.Property})
		}
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}})

	builder := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithNearText(w.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})).
		WithFields(fields...).
		WithLimit(k)

	if filter.DocumentID != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"source"}).
			WithOperator(filters.Equal).
			WithValueString(filter.DocumentID))
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}

	var passages []models.Passage
	if data, ok := result.Data["Get"].(map[string]any); ok {
		if hits, ok := data[w.class].([]any); ok {
			for _, hit := range hits {
				item, ok := hit.(map[string]any)
				if !ok {
					continue
				}
				if p := parsePassage(item); p.Snippet != "" {
					passages = append(passages, p)
				}
			}
		}
	}

	w.log.Debug("weaviate returned %d passages for document %q", len(passages), filter.DocumentID)
	return passages, nil
}

func parsePassage(item map[string]any) models.Passage {
	var p models.Passage
	if v, ok := item["content"].(string); ok {
		p.Snippet = v
	}
	if v, ok := item["source"].(string); ok {
		p.Source = v
	}
	if v, ok := item["title"].(string); ok {
		p.Title = v
	}
	if v, ok := item["totalPages"].(float64); ok {
		p.TotalPages = int(v)
	}
	if v, ok := item["doi"].(string); ok {
		p.DOI = v
	}
	if additional, ok := item["_additional"].(map[string]any); ok {
		if id, ok := additional["id"].(string); ok {
			p.ID = id
		}
	}
	p.Metadata = map[string]any{
		"id":          p.ID,
		"source":      p.Source,
		"title":       p.Title,
		"total_pages": p.TotalPages,
		"doi":         p.DOI,
	}
	return p
}
