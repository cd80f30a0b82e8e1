package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	taggedJSONPattern = regexp.MustCompile(`(?s)<json>\s*(.*?)\s*</json>`)
)

// CitationExtractor asks the generator to quote the retrieved passages back
// as citation records. Citations are best-effort evidence: any failure, from
// the call itself to an unsalvageable response, degrades to an empty list
// instead of failing the query.
type CitationExtractor struct {
	gen llm.Generator
	inv *llm.Invoker
	log logger.Logger
}

func NewCitationExtractor(gen llm.Generator, inv *llm.Invoker, log logger.Logger) *CitationExtractor {
	return &CitationExtractor{gen: gen, inv: inv, log: log}
}

// citationExample is the worked input/output pair shown to the generator so
// the expected citation JSON is anchored by demonstration, not description.
const (
	citationExampleInput = `Source ID: 0
Article ID: 5a88139a-d5bf-4a83-96ed-2ad5f57b978d
Article Title: Memristive Devices from CuO Nanoparticles
Article Snippet: The device exhibits robust switching with a ratio of 103, supporting stable memory.
Article Source: 1.pdf`

	citationExampleOutput = `{"citations": [{"Source_ID": 0, "Article_ID": "5a88139a-d5bf-4a83-96ed-2ad5f57b978d", "Article_Snippet": "The device exhibits robust switching with a ratio of 103", "Article_Title": "Memristive Devices from CuO Nanoparticles", "Article_Source": "1.pdf"}]}`
)

// Extract returns the citation list for the passage batch. With no passages
// there is nothing to attribute and no call is made.
func (c *CitationExtractor) Extract(ctx context.Context, passages []models.Passage) models.CitationList {
	if len(passages) == 0 {
		return models.CitationList{Citations: []models.Citation{}}
	}

	raw, err := llm.Invoke(ctx, c.inv, func(ctx context.Context) (string, error) {
		return c.gen.GenerateStructured(ctx, c.prompt(passages), "citations", citationSchema())
	})
	if err != nil {
		c.log.Warn("citation generation failed, continuing without citations: %v", err)
		return models.CitationList{Citations: []models.Citation{}}
	}

	list, err := ParseCitations(raw)
	if err != nil {
		c.log.Warn("citation response unsalvageable, continuing without citations: %v", err)
		return models.CitationList{Citations: []models.Citation{}}
	}
	return list
}

func (c *CitationExtractor) prompt(passages []models.Passage) string {
	var sources strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&sources, "Source ID: %d\nArticle ID: %s\nArticle Title: %s\nArticle Snippet: %s\nArticle Source: %s\nmetadata: %s\n\n",
			i, p.ID, p.Title, p.Snippet, p.Source, passageMetadata(p))
	}

	return fmt.Sprintf(`Extract citation details from the given context. Each citation should include Source_ID, Article_ID, Article_Snippet, Article_Title and Article_Source, quoting the snippet from the context. Respond with a JSON object of the form {"citations": [...]}; return {"citations": []} when the context supports none.

Example input:
%s

Example output:
%s

Context:
%s`, citationExampleInput, citationExampleOutput, sources.String())
}

func passageMetadata(p models.Passage) string {
	meta := map[string]any{"id": p.ID, "source": p.Source}
	if p.Title != "" {
		meta["title"] = p.Title
	}
	if p.TotalPages > 0 {
		meta["totalPages"] = p.TotalPages
	}
	if p.DOI != "" {
		meta["doi"] = p.DOI
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func citationSchema() map[string]any {
	citation := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Source_ID":       map[string]any{"type": "integer"},
			"Article_ID":      map[string]any{"type": "string"},
			"Article_Snippet": map[string]any{"type": "string"},
			"Article_Title":   map[string]any{"type": "string"},
			"Article_Source":  map[string]any{"type": "string"},
		},
		"required":             []string{"Source_ID", "Article_ID", "Article_Snippet", "Article_Title", "Article_Source"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"citations": map[string]any{"type": "array", "items": citation},
		},
		"required":             []string{"citations"},
		"additionalProperties": false,
	}
}

// ParseCitations recovers a citation list from decorated or partially
// malformed generator output. Candidate payloads are tried in order: a fenced
// code block, a <json> tagged block when the response starts with the tag,
// the raw text, and the raw text's "data" field. Each candidate is also
// retried truncated at its last closing brace, which salvages responses cut
// off mid-stream. A candidate that decodes to an empty list does not end the
// search: a later candidate may still carry the citations, and the empty
// document is adopted only when no candidate yields any.
func ParseCitations(raw string) (models.CitationList, error) {
	var candidates []string
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "<json>") {
		if m := taggedJSONPattern.FindStringSubmatch(raw); m != nil {
			candidates = append(candidates, m[1])
		}
	}
	candidates = append(candidates, raw)

	sawEmpty := false
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if list, ok := decodeCitations(candidate); ok {
			if len(list.Citations) > 0 {
				return list, nil
			}
			sawEmpty = true
			continue
		}
		if idx := strings.LastIndex(candidate, "}"); idx >= 0 {
			if list, ok := decodeCitations(candidate[:idx+1]); ok {
				if len(list.Citations) > 0 {
					return list, nil
				}
				sawEmpty = true
			}
		}
	}
	if sawEmpty {
		return models.CitationList{Citations: []models.Citation{}}, nil
	}
	return models.CitationList{}, fmt.Errorf("no JSON candidate in citation response")
}

// decodeCitations handles the shapes models actually produce: the canonical
// {"citations": [...]}, the doubly-nested {"citations": {"citations": [...]}},
// and a wrapping {"data": {...}} envelope.
func decodeCitations(candidate string) (models.CitationList, bool) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &outer); err != nil {
		return models.CitationList{}, false
	}
	if data, ok := outer["data"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err == nil {
			outer = inner
		}
	}

	payload, ok := outer["citations"]
	if !ok {
		return models.CitationList{}, false
	}

	var citations []models.Citation
	if err := json.Unmarshal(payload, &citations); err == nil {
		if citations == nil {
			citations = []models.Citation{}
		}
		return models.CitationList{Citations: citations}, true
	}

	var nested models.CitationList
	if err := json.Unmarshal(payload, &nested); err == nil && nested.Citations != nil {
		return nested, true
	}
	return models.CitationList{}, false
}
