// Package retrieval produces the ranked, deduplicated passage batch a query
// is answered against. The vector index itself is an external similarity
// service; this package owns the per-document fan-out, the query-expansion
// strategy and the rank fusion of the combined result sets.
package retrieval

import (
	"context"

	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// Filter restricts a search to a single owning document.
type Filter struct {
	DocumentID string
}

// VectorIndex is the boundary to the external similarity-search service.
type VectorIndex interface {
	Search(ctx context.Context, query string, filter Filter, k int) ([]models.Passage, error)
}

// MetadataField describes one attribute of the index's declared metadata
// schema. Property is the stored attribute name an adapter queries; it is
// empty for attributes the index synthesizes (like the passage id).
type MetadataField struct {
	Name        string
	Property    string
	Description string
	Type        string
}

// MetadataFields is the metadata schema passages carry in the index.
func MetadataFields() []MetadataField {
	return []MetadataField{
		{Name: "id", Description: "The unique identifier of the passage.", Type: "string"},
		{Name: "source", Property: "source", Description: "The filename or source of the document, typically a PDF.", Type: "string"},
		{Name: "title", Property: "title", Description: "The title of the document or research paper.", Type: "string"},
		{Name: "total_pages", Property: "totalPages", Description: "The total number of pages in the document.", Type: "integer"},
		{Name: "doi", Property: "doi", Description: "The Digital Object Identifier of the research paper, if available.", Type: "string"},
	}
}
