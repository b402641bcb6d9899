package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
)

var ErrClosed = errors.New("memory store is closed")

// Summarizer condenses a run of turns into a short synopsis.
type Summarizer interface {
	Summarize(ctx context.Context, turns []conv.Turn) (string, error)
}

// Store owns the MemoryLedger: an append-only JSONL file of turns with
// periodic Summary records interleaved at their insertion point. All
// mutation goes through Append; no other component holds a writable
// reference.
type Store struct {
	mu              sync.Mutex
	path            string
	file            *os.File
	turns           []conv.Turn
	sinceSummary    int
	summaryInterval int
	summarizer      Summarizer
	closed          bool
}

// NewStore loads prior state from path (starting empty when the file is
// missing or corrupt) and opens the ledger for appending. interval controls
// how many turns accumulate before a Summary record is inserted.
func NewStore(path string, interval int, summarizer Summarizer) (*Store, error) {
	if interval <= 0 {
		interval = 10
	}

	turns := loadLedger(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	s := &Store{
		path:            path,
		file:            file,
		turns:           turns,
		summaryInterval: interval,
		summarizer:      summarizer,
	}
	s.sinceSummary = countSinceSummary(turns)

	if len(turns) > 0 {
		log.Printf("[memory] loaded %d records from previous sessions", len(turns))
	}
	return s, nil
}

// loadLedger restores prior turns. A trailing partial record (torn write)
// is discarded, not fatal; any other unparseable line is skipped.
func loadLedger(path string) []conv.Turn {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[memory] could not read ledger, starting fresh: %v", err)
		}
		return nil
	}
	defer f.Close()

	var turns []conv.Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var turn conv.Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			log.Printf("[memory] dropping unparseable ledger record: %v", err)
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[memory] ledger scan stopped early: %v", err)
	}
	return turns
}

func countSinceSummary(turns []conv.Turn) int {
	count := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Summary {
			break
		}
		count++
	}
	return count
}

// Append persists one completed turn. It is synchronous from the caller's
// perspective; a persistence failure is logged and the in-memory ledger
// still advances, bounding data loss to the single unflushed turn.
func (s *Store) Append(ctx context.Context, turn conv.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.turns = append(s.turns, turn)
	s.sinceSummary++

	if err := s.writeRecord(turn); err != nil {
		log.Printf("[memory] persist failed, continuing in-memory: %v", err)
	}

	if s.sinceSummary >= s.summaryInterval {
		s.maybeSummarize(ctx)
	}
	return nil
}

// maybeSummarize condenses the unsummarized span into one synthetic record.
// Caller holds the lock. The raw turns stay on disk; the Summary record only
// replaces them for prompting purposes.
func (s *Store) maybeSummarize(ctx context.Context) {
	if s.summarizer == nil {
		s.sinceSummary = 0
		return
	}

	span := s.turns[len(s.turns)-s.sinceSummary:]
	text, err := s.summarizer.Summarize(ctx, span)
	if err != nil {
		log.Printf("[memory] summarization failed, will retry on next turn: %v", err)
		return
	}

	summary := conv.Turn{
		ID:        uuid.NewString(),
		Role:      conv.RoleAssistant,
		Content:   "Previous conversation summary: " + text,
		Sentiment: sentiment.Neutral,
		Summary:   true,
		CreatedAt: time.Now().UTC(),
	}
	s.turns = append(s.turns, summary)
	s.sinceSummary = 0

	if err := s.writeRecord(summary); err != nil {
		log.Printf("[memory] persist failed for summary record: %v", err)
	}
	log.Printf("[memory] ledger compacted, summary: %.60s", text)
}

func (s *Store) writeRecord(turn conv.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return s.file.Sync()
}

// Context returns the bounded prompting window: the latest Summary record
// (when one exists) followed by the turns after it, capped to maxDepth most
// recent turns.
func (s *Store) Context(maxDepth int) []conv.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastSummary := -1
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Summary {
			lastSummary = i
			break
		}
	}

	tail := s.turns[lastSummary+1:]
	if maxDepth > 0 && len(tail) > maxDepth {
		tail = tail[len(tail)-maxDepth:]
	}

	var window []conv.Turn
	if lastSummary >= 0 {
		window = append(window, s.turns[lastSummary])
	}
	window = append(window, tail...)
	return window
}

// All returns a copy of the full ledger, summaries included.
func (s *Store) All() []conv.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conv.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len reports the number of ledger records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Close releases the underlying file. Appends after Close fail with
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
