package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// fakeIndex serves canned results keyed by document id and query.
type fakeIndex struct {
	mu      sync.Mutex
	results map[string]map[string][]models.Passage
	errs    map[string]error
	queried map[string][]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		results: make(map[string]map[string][]models.Passage),
		errs:    make(map[string]error),
		queried: make(map[string][]string),
	}
}

func (f *fakeIndex) add(docID, query string, passages ...models.Passage) {
	if f.results[docID] == nil {
		f.results[docID] = make(map[string][]models.Passage)
	}
	f.results[docID][query] = passages
}

func (f *fakeIndex) Search(ctx context.Context, query string, filter Filter, k int) ([]models.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried[filter.DocumentID] = append(f.queried[filter.DocumentID], query)
	if err := f.errs[filter.DocumentID]; err != nil {
		return nil, err
	}
	return f.results[filter.DocumentID][query], nil
}

// variantGen answers every expansion request with fixed variants.
type variantGen struct {
	variants string
	err      error
}

func (g *variantGen) Generate(ctx context.Context, prompt string) (string, error) {
	return g.variants, g.err
}

func (g *variantGen) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not supported")
}

func (g *variantGen) GenerateStructured(ctx context.Context, prompt, name string, schema map[string]any) (string, error) {
	return "", errors.New("not supported")
}

func testInvoker() *llm.Invoker {
	return llm.NewInvoker(llm.InvokerConfig{
		CallsPerPeriod: 1000,
		Period:         time.Second,
		MaxAttempts:    1,
	}, logger.NewNoOp())
}

func passage(id string) models.Passage {
	return models.Passage{ID: id, Source: "1.pdf", Snippet: "snippet " + id}
}

func TestRetrieveFusesAndDeduplicates(t *testing.T) {
	index := newFakeIndex()
	index.add("1.pdf", "q", passage("a"), passage("b"))
	index.add("1.pdf", "v1", passage("b"), passage("c"))

	engine := NewEngine(index, &variantGen{variants: "v1"}, testInvoker(), Config{QueryVariants: 1}, logger.NewNoOp())

	got, err := engine.Retrieve(context.Background(), "q", []string{"1.pdf"}, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d passages, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("passage[%d] = %q, want %q (both-list hits rank first)", i, got[i].ID, id)
		}
	}
}

func TestRetrieveCapsDocuments(t *testing.T) {
	index := newFakeIndex()
	index.add("1.pdf", "q", passage("a"))
	index.add("2.pdf", "q", passage("b"))
	index.add("3.pdf", "q", passage("c"))

	engine := NewEngine(index, &variantGen{variants: ""}, testInvoker(), Config{MaxDocuments: 2}, logger.NewNoOp())

	got, err := engine.Retrieve(context.Background(), "q", []string{"1.pdf", "2.pdf", "3.pdf"}, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d passages, want 2", len(got))
	}
	if len(index.queried["3.pdf"]) != 0 {
		t.Errorf("document beyond the cap was queried: %v", index.queried["3.pdf"])
	}
}

func TestRetrieveSkipsFailedDocument(t *testing.T) {
	index := newFakeIndex()
	index.errs["1.pdf"] = errors.New("shard unavailable")
	index.add("2.pdf", "q", passage("b"))

	engine := NewEngine(index, &variantGen{variants: ""}, testInvoker(), Config{}, logger.NewNoOp())

	got, err := engine.Retrieve(context.Background(), "q", []string{"1.pdf", "2.pdf"}, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("got %v, want just passage b", got)
	}
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	engine := NewEngine(newFakeIndex(), &variantGen{}, testInvoker(), Config{}, logger.NewNoOp())
	got, err := engine.Retrieve(context.Background(), "q", nil, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d passages, want 0", len(got))
	}
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	index := newFakeIndex()
	index.add("1.pdf", "q", passage("a"), passage("b"), passage("c"), passage("d"))

	engine := NewEngine(index, &variantGen{variants: ""}, testInvoker(), Config{}, logger.NewNoOp())

	got, err := engine.Retrieve(context.Background(), "q", []string{"1.pdf"}, 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d passages, want 2", len(got))
	}
}

func TestExpandQueryParsing(t *testing.T) {
	gen := &variantGen{variants: "1. First variant\n\n2) Second variant\n- Third variant\nFourth variant"}
	engine := NewEngine(newFakeIndex(), gen, testInvoker(), Config{QueryVariants: 3}, logger.NewNoOp())

	variants, err := engine.expandQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("expandQuery: %v", err)
	}
	want := []string{"First variant", "Second variant", "Third variant"}
	if len(variants) != len(want) {
		t.Fatalf("variants = %v, want %v", variants, want)
	}
	for i := range want {
		if variants[i] != want[i] {
			t.Errorf("variants[%d] = %q, want %q", i, variants[i], want[i])
		}
	}
}

func TestFuseRankedTiePrefersFirstList(t *testing.T) {
	a, b := passage("a"), passage("b")
	fused := fuseRanked([][]models.Passage{{a}, {b}}, []float64{0.5, 0.5})
	if len(fused) != 2 {
		t.Fatalf("got %d passages, want 2", len(fused))
	}
	if fused[0].ID != "a" {
		t.Errorf("tie broke toward %q, want the first list's passage", fused[0].ID)
	}
}
