package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/chat"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/documents"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/retrieval"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// scriptedGen routes each call to a canned response by its instruction text.
type scriptedGen struct {
	table     string
	citations string
	title     string
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "alternative questions"):
		return "", nil
	case strings.Contains(prompt, "Extracted Value"):
		return g.table, nil
	case strings.Contains(prompt, "concise title"):
		return g.title, nil
	default:
		return "", nil
	}
}

func (g *scriptedGen) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("forced-JSON mode not scripted")
}

func (g *scriptedGen) GenerateStructured(ctx context.Context, prompt, name string, js map[string]any) (string, error) {
	if name == "citations" {
		return g.citations, nil
	}
	return "", errors.New("structured output unavailable")
}

// staticIndex returns the same passages for every query on the one document.
type staticIndex struct {
	passages []models.Passage
}

func (s *staticIndex) Search(ctx context.Context, query string, filter retrieval.Filter, k int) ([]models.Passage, error) {
	return s.passages, nil
}

func assistantSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("test", []schema.FieldSpec{
		{Name: "switching_layer_material", Label: "switching layer material"},
		{Name: "memory_window", Label: "memory window in volts", Kind: schema.Float},
	})
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	return s
}

func newTestAssistant(t *testing.T, index retrieval.VectorIndex, gen llm.Generator, store chat.Store, corpusDir string) *Assistant {
	t.Helper()
	log := logger.NewNoOp()
	inv := llm.NewInvoker(llm.InvokerConfig{
		CallsPerPeriod: 1000,
		Period:         time.Second,
		MaxAttempts:    1,
	}, log)
	engine := retrieval.NewEngine(index, gen, inv, retrieval.Config{}, log)
	registry := documents.NewRegistry(corpusDir, log)
	if err := registry.Refresh(); err != nil {
		t.Fatalf("registry refresh: %v", err)
	}
	return NewAssistant(engine, gen, inv, store, registry, assistantSchema(t), Config{}, log)
}

func TestQueryEmptyCorpusDegrades(t *testing.T) {
	store := chat.NewMemoryStore()
	a := newTestAssistant(t, &staticIndex{}, &scriptedGen{}, store, t.TempDir())
	ctx := context.Background()

	response, err := a.Query(ctx, "u1", "c1", "what is the memory window?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if response.NonStructuredResponse != fallbackAnswer {
		t.Errorf("answer = %q, want the fallback sentinel", response.NonStructuredResponse)
	}
	if !strings.Contains(response.StructuredResponse, `"memory_window": null`) {
		t.Errorf("structured response not all-null: %s", response.StructuredResponse)
	}

	if !strings.Contains(response.Citations, `"citations": []`) {
		t.Errorf("citations = %s, want an empty citation document", response.Citations)
	}

	history, err := store.History(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d turns, want 3", len(history))
	}
	wantRoles := []string{models.RoleHuman, models.RoleAI, models.RoleCitation}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("turn %d role = %q, want %q", i, history[i].Role, role)
		}
	}
}

func TestQueryFullPath(t *testing.T) {
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "1.pdf"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}

	index := &staticIndex{passages: []models.Passage{
		{ID: "p1", Source: "1.pdf", Title: "HfO2 RRAM", Snippet: "The memory window was 2.5 V."},
	}}
	gen := &scriptedGen{
		table:     "| switching layer material | HfO2 |\n| memory window in volts | 2.5 V |",
		citations: `{"citations": [{"Source_ID": 0, "Article_ID": "p1", "Article_Snippet": "The memory window was 2.5 V.", "Article_Title": "HfO2 RRAM", "Article_Source": "1.pdf"}]}`,
		title:     "Memory window lookup",
	}
	store := chat.NewMemoryStore()
	a := newTestAssistant(t, index, gen, store, corpus)
	ctx := context.Background()

	response, err := a.Query(ctx, "u1", "c1", "what is the memory window?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if response.NonStructuredResponse != gen.table {
		t.Errorf("answer = %q, want the raw extraction text", response.NonStructuredResponse)
	}
	if !strings.Contains(response.StructuredResponse, `"switching_layer_material": "HfO2"`) {
		t.Errorf("structured response missing material: %s", response.StructuredResponse)
	}
	if !strings.Contains(response.StructuredResponse, `"memory_window": 2.5`) {
		t.Errorf("structured response missing window: %s", response.StructuredResponse)
	}
	if !strings.Contains(response.Citations, `"Article_ID": "p1"`) {
		t.Errorf("citations missing passage link: %s", response.Citations)
	}

	title, err := store.Title(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "Memory window lookup" {
		t.Errorf("title = %q", title)
	}
}

func TestQueryWritesArtifacts(t *testing.T) {
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "1.pdf"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	artifacts := filepath.Join(t.TempDir(), "filtered_output")

	index := &staticIndex{passages: []models.Passage{{ID: "p1", Source: "1.pdf", Snippet: "text"}}}
	gen := &scriptedGen{table: "| memory window in volts | 1.0 |", citations: `{"citations": []}`, title: "t"}

	log := logger.NewNoOp()
	inv := llm.NewInvoker(llm.InvokerConfig{CallsPerPeriod: 1000, Period: time.Second, MaxAttempts: 1}, log)
	engine := retrieval.NewEngine(index, gen, inv, retrieval.Config{}, log)
	registry := documents.NewRegistry(corpus, log)
	if err := registry.Refresh(); err != nil {
		t.Fatalf("registry refresh: %v", err)
	}
	a := NewAssistant(engine, gen, inv, chat.NewMemoryStore(), registry, assistantSchema(t), Config{ArtifactDir: artifacts}, log)

	if _, err := a.Query(context.Background(), "u1", "c1", "q"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	for _, name := range []string{"context.txt", "sample_response.json", "citation_response.json"} {
		if _, err := os.Stat(filepath.Join(artifacts, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}
}

// failingGen errors on every call, modeling a dead generation service.
type failingGen struct{}

func (failingGen) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("upstream unavailable")
}

func (failingGen) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("upstream unavailable")
}

func (failingGen) GenerateStructured(ctx context.Context, prompt, name string, js map[string]any) (string, error) {
	return "", errors.New("upstream unavailable")
}

func TestQueryTotalFailureSentinel(t *testing.T) {
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "1.pdf"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	index := &staticIndex{passages: []models.Passage{{ID: "p1", Source: "1.pdf", Snippet: "text"}}}
	store := chat.NewMemoryStore()
	a := newTestAssistant(t, index, failingGen{}, store, corpus)
	ctx := context.Background()

	response, err := a.Query(ctx, "u1", "c1", "q")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if response.NonStructuredResponse != fallbackAnswer ||
		response.StructuredResponse != fallbackAnswer ||
		response.Citations != fallbackAnswer {
		t.Errorf("response = %+v, want the sentinel in all three fields", response)
	}

	history, err := store.History(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history has %d turns, want 3", len(history))
	}
}

func TestQueryFoldsHistoryIntoPrompt(t *testing.T) {
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "1.pdf"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	index := &staticIndex{passages: []models.Passage{{ID: "p1", Source: "1.pdf", Snippet: "text"}}}
	store := chat.NewMemoryStore()
	if err := store.AppendExchange(context.Background(), "u1", "c1",
		chat.Exchange("what device is this?", "An HfO2 memristor.", "{}", time.Now())); err != nil {
		t.Fatal(err)
	}

	gen := &promptRecorder{scriptedGen: scriptedGen{
		table: "| memory window in volts | 1.0 |", citations: `{"citations": []}`, title: "t",
	}}
	a := newTestAssistant(t, index, gen, store, corpus)

	if _, err := a.Query(context.Background(), "u1", "c1", "and its endurance?"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	found := false
	for _, p := range gen.prompts {
		if strings.Contains(p, "Human: what device is this?") &&
			strings.Contains(p, "Assistant: An HfO2 memristor.") &&
			strings.Contains(p, "Query: and its endurance?") {
			found = true
		}
	}
	if !found {
		t.Error("no extraction prompt carried the prior exchange and the query")
	}
}

// promptRecorder captures every free-text prompt on top of scriptedGen.
type promptRecorder struct {
	scriptedGen
	prompts []string
}

func (g *promptRecorder) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.scriptedGen.Generate(ctx, prompt)
}

func TestAssembleContext(t *testing.T) {
	got := assembleContext([]models.Passage{
		{Source: "1.pdf", Title: "Paper", Snippet: "first"},
		{Source: "2.pdf", Snippet: "second"},
	})
	if !strings.Contains(got, "[source: 1.pdf | title: Paper]\nfirst") {
		t.Errorf("context missing attributed first passage:\n%s", got)
	}
	if !strings.Contains(got, "[source: 2.pdf]\nsecond") {
		t.Errorf("context missing second passage:\n%s", got)
	}
}

func TestGenerateTitleFallsBackToQuery(t *testing.T) {
	store := chat.NewMemoryStore()
	a := newTestAssistant(t, &staticIndex{}, &scriptedGen{}, store, t.TempDir())

	long := strings.Repeat("memory window ", 10)
	title := a.GenerateTitle(context.Background(), long)
	if title == "" {
		t.Fatal("title is empty")
	}
	if len([]rune(title)) > 63 {
		t.Errorf("fallback title too long: %q", title)
	}
}
