package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/llm"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// rrfK is the dampening constant of reciprocal-rank fusion: one top-rank hit
// outweighs many tail hits without hard score thresholds.
const rrfK = 60

// Config holds the retrieval policy knobs.
type Config struct {
	// TopK passages returned per document. Zero means 7.
	TopK int
	// MaxDocuments caps how many documents are scanned per request in
	// high-cost remote-model mode. Zero means 2; negative disables the cap.
	MaxDocuments int
	// QueryVariants is how many paraphrases the expansion search asks the
	// generator for. Zero means 3.
	QueryVariants int
	// MaxWorkers bounds the per-document fan-out. Zero means 2.
	MaxWorkers int
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 7
	}
	if c.MaxDocuments == 0 {
		c.MaxDocuments = 2
	}
	if c.QueryVariants <= 0 {
		c.QueryVariants = 3
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 2
	}
	return c
}

// Engine retrieves passages per document with two complementary strategies:
// a filtered similarity search and a query-expansion search driven by
// generator paraphrases. The two result lists are merged with equal-weighted
// reciprocal-rank fusion and deduplicated by passage id.
type Engine struct {
	index VectorIndex
	gen   llm.Generator
	inv   *llm.Invoker
	cfg   Config
	log   logger.Logger
}

func NewEngine(index VectorIndex, gen llm.Generator, inv *llm.Invoker, cfg Config, log logger.Logger) *Engine {
	return &Engine{index: index, gen: gen, inv: inv, cfg: cfg.withDefaults(), log: log}
}

// Retrieve fans out over the known documents and returns the combined
// passage batch in document order. A single document's failure is logged and
// skipped; the query proceeds with whatever was gathered, possibly nothing.
func (e *Engine) Retrieve(ctx context.Context, query string, documentIDs []string, topK int) ([]models.Passage, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	docs := documentIDs
	if e.cfg.MaxDocuments > 0 && len(docs) > e.cfg.MaxDocuments {
		docs = docs[:e.cfg.MaxDocuments]
	}

	perDoc := make([][]models.Passage, len(docs))
	pool := llm.NewWorkerPool(e.cfg.MaxWorkers)
	var wg sync.WaitGroup

	for i, doc := range docs {
		if err := pool.Acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(idx int, docID string) {
			defer wg.Done()
			defer pool.Release()

			// The whole per-document retrieval goes through the invoker:
			// query expansion spends generation-service quota, and rate-limit
			// signals must reach the retry loop instead of being swallowed.
			passages, err := llm.Invoke(ctx, e.inv, func(ctx context.Context) ([]models.Passage, error) {
				return e.retrieveDocument(ctx, query, docID, topK)
			})
			if err != nil {
				e.log.Error("retrieval failed for document %q: %v", docID, err)
				return
			}
			perDoc[idx] = passages
		}(i, doc)
	}
	wg.Wait()

	seen := make(map[string]bool)
	var batch []models.Passage
	for _, passages := range perDoc {
		for _, p := range passages {
			if p.ID != "" && seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			batch = append(batch, p)
		}
	}
	e.log.Info("retrieved %d passages across %d document(s)", len(batch), len(docs))
	return batch, nil
}

func (e *Engine) retrieveDocument(ctx context.Context, query, docID string, topK int) ([]models.Passage, error) {
	filter := Filter{DocumentID: docID}

	direct, err := e.index.Search(ctx, query, filter, topK)
	if err != nil {
		if classified := llm.Classify(err); llm.Retryable(classified) {
			return nil, classified
		}
		e.log.Warn("similarity search failed for document %q: %v", docID, err)
	}

	expanded, err := e.expansionSearch(ctx, query, filter, topK)
	if err != nil {
		if classified := llm.Classify(err); llm.Retryable(classified) {
			return nil, classified
		}
		e.log.Warn("expansion search failed for document %q: %v", docID, err)
	}

	fused := fuseRanked([][]models.Passage{direct, expanded}, []float64{0.5, 0.5})
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// expansionSearch paraphrases the query to bridge vocabulary mismatch, runs
// the same filtered search per variant, and unions the hits in rank order.
func (e *Engine) expansionSearch(ctx context.Context, query string, filter Filter, topK int) ([]models.Passage, error) {
	variants, err := e.expandQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var union []models.Passage
	for _, variant := range variants {
		hits, err := e.index.Search(ctx, variant, filter, topK)
		if err != nil {
			if classified := llm.Classify(err); llm.Retryable(classified) {
				return nil, classified
			}
			e.log.Warn("variant search failed: %v", err)
			continue
		}
		for _, p := range hits {
			if p.ID != "" && seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			union = append(union, p)
		}
	}
	return union, nil
}

func (e *Engine) expandQuery(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(`You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant passages from a vector database. By generating multiple perspectives on the user question, your goal is to help overcome some of the limitations of distance-based similarity search. Provide these alternative questions separated by newlines, with no numbering and no other text.

Original question: %s`, e.cfg.QueryVariants, query)

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var variants []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) "))
		if line == "" {
			continue
		}
		variants = append(variants, line)
		if len(variants) == e.cfg.QueryVariants {
			break
		}
	}
	return variants, nil
}

// fuseRanked merges ranked lists by weighted reciprocal-rank fusion,
// deduplicating by passage id. Ties go to the earlier (higher-priority)
// list, preserving its relative order.
func fuseRanked(lists [][]models.Passage, weights []float64) []models.Passage {
	type entry struct {
		passage models.Passage
		score   float64
		list    int
		rank    int
	}

	byID := make(map[string]*entry)
	var order []*entry
	for li, list := range lists {
		for rank, p := range list {
			key := p.ID
			if key == "" {
				key = fmt.Sprintf("anon-%d-%d", li, rank)
			}
			ent, ok := byID[key]
			if !ok {
				ent = &entry{passage: p, list: li, rank: rank}
				byID[key] = ent
				order = append(order, ent)
			}
			ent.score += weights[li] / float64(rrfK+rank+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		if order[i].list != order[j].list {
			return order[i].list < order[j].list
		}
		return order[i].rank < order[j].rank
	})

	fused := make([]models.Passage, 0, len(order))
	for _, ent := range order {
		fused = append(fused, ent.passage)
	}
	return fused
}
