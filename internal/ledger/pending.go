package ledger

import (
	"sync"
	"time"
)

// DefaultPendingTTL bounds how long an in-flight trade note survives.
const DefaultPendingTTL = 15 * time.Minute

// PendingTrade is bookkeeping for a trade between analysis and outcome.
type PendingTrade struct {
	Mint       string    `json:"mint"`
	Action     string    `json:"action"`
	EntryPrice float64   `json:"entryPrice"`
	Patterns   []string  `json:"patterns,omitempty"`
	Signals    []string  `json:"signals,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PendingStore holds in-flight trade notes keyed by identity with TTL and
// consume-once semantics, so entries can never accumulate for the life of
// the process.
type PendingStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]PendingTrade
	now func() time.Time
}

// NewPendingStore creates a store with the given TTL (0 means the default).
func NewPendingStore(ttl time.Duration) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingStore{
		ttl: ttl,
		m:   make(map[string]PendingTrade),
		now: time.Now,
	}
}

// Put stores a pending trade under key, replacing any prior entry.
func (s *PendingStore) Put(key string, p PendingTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.CreatedAt = s.now()
	s.sweep()
	s.m[key] = p
}

// Consume removes and returns the entry for key. Expired entries are gone.
func (s *PendingStore) Consume(key string) (PendingTrade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	p, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	return p, ok
}

// sweep drops expired entries. Caller holds the lock.
func (s *PendingStore) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for k, p := range s.m {
		if p.CreatedAt.Before(cutoff) {
			delete(s.m, k)
		}
	}
}
