// Package documents tracks the local corpus: the PDF files whose passages
// have been indexed. The registry is the source of truth for which document
// ids a retrieval may fan out over.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/models"
)

// Registry lists the corpus PDFs under a directory. Document ids are the PDF
// filenames, matching the source attribute passages carry in the index.
type Registry struct {
	dir string
	log logger.Logger

	mu   sync.Mutex
	docs []models.DocumentInfo
}

func NewRegistry(dir string, log logger.Logger) *Registry {
	return &Registry{dir: dir, log: log}
}

// Refresh rescans the corpus directory. Files that fail to parse are listed
// anyway, with a zero page count: a damaged PDF may still have indexed
// passages.
func (r *Registry) Refresh() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading corpus directory %q: %w", r.dir, err)
	}

	var docs []models.DocumentInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		doc := models.DocumentInfo{
			ID:    entry.Name(),
			Title: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
		}
		pages, err := api.PageCountFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.log.Warn("page count failed for %q: %v", entry.Name(), err)
		} else {
			doc.TotalPages = pages
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()
	r.log.Info("corpus registry refreshed: %d document(s)", len(docs))
	return nil
}

// Documents returns the known corpus documents from the last refresh.
func (r *Registry) Documents() []models.DocumentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.DocumentInfo, len(r.docs))
	copy(out, r.docs)
	return out
}

// IDs returns the document ids retrieval fans out over.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.docs))
	for _, d := range r.docs {
		ids = append(ids, d.ID)
	}
	return ids
}
