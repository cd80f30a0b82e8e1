// Package rag wires retrieval, extraction, citation attribution and history
// into the one operation the outside world calls: answer a query over the
// indexed corpus. The assistant degrades instead of failing: a query always
// produces a three-part response, substituting sentinel text and empty
// documents for whatever stage broke.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/chat"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/documents"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/extract"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/retrieval"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// fallbackAnswer is returned whenever no grounded answer could be produced.
const fallbackAnswer = "I'm sorry, I couldn't process your request."

// Config holds the assistant's policy knobs.
type Config struct {
	// ArtifactDir is where per-query debug artifacts (assembled context,
	// raw response documents) are written. Empty disables artifacts.
	ArtifactDir string

	// ForceJSON runs extraction in the low-capability forced-JSON cascade.
	ForceJSON bool

	// HistoryTurns is how many recent turns are loaded for prompt assembly.
	// Zero means 6; the extractor folds in the conversational tail of the
	// window.
	HistoryTurns int
}

// Assistant is the query orchestrator.
type Assistant struct {
	engine    *retrieval.Engine
	extractor *extract.Extractor
	citations *extract.CitationExtractor
	gen       llm.Generator
	inv       *llm.Invoker
	store     chat.Store
	registry  *documents.Registry
	schema    *schema.Schema
	cfg       Config
	log       logger.Logger
	now       func() time.Time
}

func NewAssistant(
	engine *retrieval.Engine,
	gen llm.Generator,
	inv *llm.Invoker,
	store chat.Store,
	registry *documents.Registry,
	sc *schema.Schema,
	cfg Config,
	log logger.Logger,
) *Assistant {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 6
	}
	return &Assistant{
		engine:    engine,
		extractor: extract.NewExtractor(gen, inv, extract.Config{ForceJSON: cfg.ForceJSON}, log),
		citations: extract.NewCitationExtractor(gen, inv, log),
		gen:       gen,
		inv:       inv,
		store:     store,
		registry:  registry,
		schema:    sc,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// SetSchema swaps the extraction schema used for subsequent queries.
func (a *Assistant) SetSchema(sc *schema.Schema) { a.schema = sc }

// Schema returns the active extraction schema.
func (a *Assistant) Schema() *schema.Schema { return a.schema }

// Query answers one question over the corpus and persists the exchange.
// The returned response always carries all three parts; stage failures are
// absorbed into sentinel text, an all-null record or an empty citation list.
func (a *Assistant) Query(ctx context.Context, userID, chatID, query string) (models.Response, error) {
	passages, err := a.engine.Retrieve(ctx, query, a.registry.IDs(), 0)
	if err != nil {
		a.log.Error("retrieval failed: %v", err)
		passages = nil
	}

	contextText := assembleContext(passages)
	a.writeArtifact("context.txt", []byte(contextText))

	if len(passages) == 0 {
		// No evidence is a valid outcome: an all-null record, an empty
		// citation document and the apology text, with the exchange recorded.
		structured, _ := schema.NewRecord(a.schema).JSONString()
		citationsJSON := marshalCitations(models.CitationList{Citations: []models.Citation{}})
		a.writeArtifact("sample_response.json", []byte(structured))
		a.writeArtifact("citation_response.json", []byte(citationsJSON))
		a.persistExchange(ctx, userID, chatID, query, fallbackAnswer, citationsJSON)
		return models.Response{
			StructuredResponse:    structured,
			NonStructuredResponse: fallbackAnswer,
			Citations:             citationsJSON,
		}, nil
	}

	record, rawText, err := a.extractor.Extract(ctx, a.schema, query, a.recentTurns(ctx, userID, chatID), contextText)
	if err != nil {
		// Total generation failure: the sentinel fills all three fields and
		// the exchange is still recorded.
		a.log.Error("extraction failed: %v", err)
		a.persistExchange(ctx, userID, chatID, query, fallbackAnswer, fallbackAnswer)
		return models.Response{
			StructuredResponse:    fallbackAnswer,
			NonStructuredResponse: fallbackAnswer,
			Citations:             fallbackAnswer,
		}, nil
	}
	answer := strings.TrimSpace(rawText)
	if answer == "" {
		answer = fallbackAnswer
	}

	citationList := a.citations.Extract(ctx, passages)

	structured, err := record.JSONString()
	if err != nil {
		a.log.Error("serializing record: %v", err)
		structured, _ = schema.NewRecord(a.schema).JSONString()
	}
	citationsJSON := marshalCitations(citationList)

	a.writeArtifact("sample_response.json", []byte(structured))
	a.writeArtifact("citation_response.json", []byte(citationsJSON))

	a.persistExchange(ctx, userID, chatID, query, answer, citationsJSON)

	return models.Response{
		StructuredResponse:    structured,
		NonStructuredResponse: answer,
		Citations:             citationsJSON,
	}, nil
}

// recentTurns loads the history window the extraction prompt draws from.
// History is best-effort: a store failure just means a bare prompt.
func (a *Assistant) recentTurns(ctx context.Context, userID, chatID string) []models.ChatTurn {
	turns, err := a.store.Recent(ctx, userID, chatID, a.cfg.HistoryTurns)
	if err != nil {
		a.log.Warn("loading recent turns: %v", err)
		return nil
	}
	return turns
}

// GenerateTitle produces a short display title for a chat from its first
// query, falling back to a truncation of the query itself.
func (a *Assistant) GenerateTitle(ctx context.Context, query string) string {
	prompt := fmt.Sprintf("Generate a concise title (at most six words) for a conversation that starts with this question. Respond with the title only.\n\nQuestion: %s", query)
	title, err := llm.Invoke(ctx, a.inv, func(ctx context.Context) (string, error) {
		return a.gen.Generate(ctx, prompt)
	})
	if err != nil || strings.TrimSpace(title) == "" {
		return truncate(query, 60)
	}
	return strings.Trim(strings.TrimSpace(title), `"`)
}

func (a *Assistant) persistExchange(ctx context.Context, userID, chatID, query, answer, citationsJSON string) {
	turns := chat.Exchange(query, answer, citationsJSON, a.now())
	if err := a.store.AppendExchange(ctx, userID, chatID, turns); err != nil {
		a.log.Error("persisting exchange: %v", err)
		return
	}

	title, err := a.store.Title(ctx, userID, chatID)
	if err == nil && title == "" {
		if err := a.store.SetTitle(ctx, userID, chatID, a.GenerateTitle(ctx, query)); err != nil {
			a.log.Warn("setting chat title: %v", err)
		}
	}
}

func (a *Assistant) writeArtifact(name string, data []byte) {
	if a.cfg.ArtifactDir == "" {
		return
	}
	if err := os.MkdirAll(a.cfg.ArtifactDir, 0o755); err != nil {
		a.log.Warn("creating artifact directory: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(a.cfg.ArtifactDir, name), data, 0o644); err != nil {
		a.log.Warn("writing artifact %q: %v", name, err)
	}
}

// assembleContext renders the passage batch as the grounding context block,
// one source-attributed section per passage.
func assembleContext(passages []models.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[source: %s", p.Source)
		if p.Title != "" {
			fmt.Fprintf(&b, " | title: %s", p.Title)
		}
		b.WriteString("]\n")
		b.WriteString(p.Snippet)
	}
	return b.String()
}

func marshalCitations(list models.CitationList) string {
	raw, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return `{"citations": []}`
	}
	return string(raw)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
