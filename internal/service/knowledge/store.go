package knowledge

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Store answers personal-fact queries with hybrid search: a semantic
// vector collection when embeddings are configured, supplemented by plain
// keyword matching over the brain file. Either side may be absent; the
// other still serves.
type Store struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	lines      []string
}

// Options configures the knowledge store.
type Options struct {
	BrainFile string
	VectorDir string
	Embedder  chromem.EmbeddingFunc
	MaxHits   int
}

// NewStore loads the brain file (if present) and, when an embedder is
// supplied, opens the persistent vector collection and indexes any lines
// not yet stored.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	s := &Store{}

	if opts.BrainFile != "" {
		lines, err := readLines(opts.BrainFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read brain file: %w", err)
			}
			log.Printf("[knowledge] brain file %s missing, keyword search disabled", opts.BrainFile)
		}
		s.lines = lines
	}

	if opts.Embedder != nil && opts.VectorDir != "" {
		db, err := chromem.NewPersistentDB(opts.VectorDir, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		collection, err := db.GetOrCreateCollection("knowledge", nil, opts.Embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to open knowledge collection: %w", err)
		}
		s.collection = collection

		if err := s.indexLines(ctx); err != nil {
			log.Printf("[knowledge] vector indexing incomplete: %v", err)
		}
	}

	return s, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// indexLines backfills the vector collection from the brain file. Document
// IDs are derived from content so re-runs are idempotent.
func (s *Store) indexLines(ctx context.Context) error {
	if s.collection == nil || len(s.lines) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(s.lines))
	for i, line := range s.lines {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("brain-%03d", i),
			Content: line,
		})
	}
	return s.collection.AddDocuments(ctx, docs, 2)
}

// Add stores one new fact in both the keyword lines and, when available,
// the vector collection.
func (s *Store) Add(ctx context.Context, fact string) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return fmt.Errorf("empty fact")
	}

	s.mu.Lock()
	s.lines = append(s.lines, fact)
	idx := len(s.lines) - 1
	s.mu.Unlock()

	if s.collection == nil {
		return nil
	}
	return s.collection.AddDocument(ctx, chromem.Document{
		ID:      fmt.Sprintf("brain-%03d", idx),
		Content: fact,
	})
}

// Search returns matching facts, semantic hits first, keyword hits as
// supplement, deduplicated.
func (s *Store) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var results []string
	seen := make(map[string]bool)

	if s.collection != nil && s.collection.Count() > 0 {
		n := 5
		if count := s.collection.Count(); count < n {
			n = count
		}
		hits, err := s.collection.Query(ctx, query, n, nil, nil)
		if err != nil {
			log.Printf("[knowledge] vector query failed, falling back to keywords: %v", err)
		} else {
			for _, hit := range hits {
				if hit.Similarity < 0.3 {
					continue
				}
				if !seen[hit.Content] {
					seen[hit.Content] = true
					results = append(results, hit.Content)
				}
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	lowered := strings.ToLower(query)
	for _, line := range s.lines {
		if strings.Contains(strings.ToLower(line), lowered) && !seen[line] {
			seen[line] = true
			results = append(results, line)
		}
	}
	return results, nil
}
