package engine

import (
	"sync"
	"sync/atomic"
)

// DefaultTranspositionSize bounds the number of stored analyses
const DefaultTranspositionSize = 1 << 14

// TranspositionTable maps canonical position IDs (dice included) to
// completed analyses. When full it drops every entry and starts a new
// generation. Stored values are checked on read and a malformed entry is
// treated as a miss.
type TranspositionTable struct {
	mu      sync.RWMutex
	entries map[string]*Evaluation
	limit   int

	hits        atomic.Uint64
	misses      atomic.Uint64
	stores      atomic.Uint64
	generations atomic.Uint64
}

// TranspositionStats is a snapshot of table statistics
type TranspositionStats struct {
	Entries     int    `json:"entries"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Stores      uint64 `json:"stores"`
	Generations uint64 `json:"generations"`
}

// NewTranspositionTable creates a table holding at most limit entries
// (DefaultTranspositionSize if limit <= 0)
func NewTranspositionTable(limit int) *TranspositionTable {
	if limit <= 0 {
		limit = DefaultTranspositionSize
	}
	return &TranspositionTable{
		entries: make(map[string]*Evaluation),
		limit:   limit,
	}
}

// Get returns a copy of the stored analysis for id
func (t *TranspositionTable) Get(id string) (*Evaluation, bool) {
	t.mu.RLock()
	ev, ok := t.entries[id]
	t.mu.RUnlock()

	if !ok || ev.Validate() != nil {
		t.misses.Add(1)
		return nil, false
	}
	t.hits.Add(1)
	return ev.Clone(), true
}

// Put stores a copy of ev under id
func (t *TranspositionTable) Put(id string, ev *Evaluation) {
	if ev == nil {
		return
	}
	stored := ev.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[id]; !exists && len(t.entries) >= t.limit {
		t.entries = make(map[string]*Evaluation)
		t.generations.Add(1)
	}
	t.entries[id] = stored
	t.stores.Add(1)
}

// Len returns the number of stored entries
func (t *TranspositionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Flush removes every entry and resets the statistics
func (t *TranspositionTable) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*Evaluation)
	t.hits.Store(0)
	t.misses.Store(0)
	t.stores.Store(0)
	t.generations.Store(0)
}

// Stats returns a snapshot of the table statistics
func (t *TranspositionTable) Stats() TranspositionStats {
	return TranspositionStats{
		Entries:     t.Len(),
		Hits:        t.hits.Load(),
		Misses:      t.misses.Load(),
		Stores:      t.stores.Load(),
		Generations: t.generations.Load(),
	}
}
