package models

import "time"

// Passage is a retrieved unit of grounding context. IDs are unique within a
// single retrieval batch; passages are not persisted beyond the request.
type Passage struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Title      string         `json:"title,omitempty"`
	Snippet    string         `json:"snippet"`
	TotalPages int            `json:"total_pages,omitempty"`
	DOI        string         `json:"doi,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Citation links a generated claim back to a passage in the current batch.
// The JSON keys follow the extraction schema the generator is asked to fill.
type Citation struct {
	SourceID       *int   `json:"Source_ID"`
	ArticleID      string `json:"Article_ID,omitempty"`
	ArticleSnippet string `json:"Article_Snippet,omitempty"`
	ArticleTitle   string `json:"Article_Title,omitempty"`
	ArticleSource  string `json:"Article_Source,omitempty"`
}

// CitationList is the citation document shape: {"citations": [...]}.
type CitationList struct {
	Citations []Citation `json:"citations"`
}

// Chat turn roles. The set is closed; anything else is a programming error.
const (
	RoleHuman    = "human"
	RoleAI       = "ai"
	RoleCitation = "citation"
)

// ChatTurn is the persisted conversation unit. Insertion order is the only
// ordering guarantee.
type ChatTurn struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Response is the three-field bundle returned for every query. The orchestrator
// never fails outright: degraded responses carry sentinel text instead.
type Response struct {
	StructuredResponse    string `json:"structured_response"`
	NonStructuredResponse string `json:"non_Structured_response"`
	Citations             string `json:"citations"`
}

// DocumentInfo describes one document known to the corpus registry.
type DocumentInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	DOI        string `json:"doi,omitempty"`
}
