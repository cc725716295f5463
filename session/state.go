// Package session holds the in-memory state of one dashboard session: the
// submitted document, its clauses, the selected clause and the per-clause
// analysis cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"nomiko-backend/metrics"
	"nomiko-backend/models"
)

var (
	ErrNoDocument         = errors.New("no document in session")
	ErrUnknownClause      = errors.New("clause not found in session")
	ErrDuplicateClauseID  = errors.New("duplicate clause id")
	ErrSessionChanged     = errors.New("session was reset while the analysis was running")
	ErrCapabilityNotCache = errors.New("capability results are not cached per clause")
)

// Fetcher produces one analysis result for a cache miss
type Fetcher func(ctx context.Context) (models.AnalysisResult, error)

type cacheKey struct {
	clauseID   string
	capability models.Capability
}

// State is the document session state. Every mutation goes through its
// methods; it is safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	generation uint64
	document   *models.Document
	clauses    []models.Clause
	index      map[string]int
	selected   string
	cache      map[cacheKey]models.AnalysisResult

	inflight singleflight.Group
	logger   *zap.Logger
}

// New creates an empty session state
func New(logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		index:  make(map[string]int),
		cache:  make(map[cacheKey]models.AnalysisResult),
		logger: logger,
	}
}

// Start replaces all state with a freshly analyzed document. The selection
// starts on the first risky clause, if any. It returns the new generation.
func (s *State) Start(doc models.Document, clauses []models.Clause) (uint64, error) {
	index := make(map[string]int, len(clauses))
	for i, c := range clauses {
		if _, dup := index[c.ID]; dup {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateClauseID, c.ID)
		}
		index[c.ID] = i
	}

	copied := make([]models.Clause, len(clauses))
	copy(copied, clauses)

	selected := ""
	for _, c := range copied {
		if c.RiskAssessment != nil {
			selected = c.ID
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.document = &doc
	s.clauses = copied
	s.index = index
	s.selected = selected
	s.cache = make(map[cacheKey]models.AnalysisResult)
	return s.generation, nil
}

// Reset clears the document, clauses, selection and cache
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.document = nil
	s.clauses = nil
	s.index = make(map[string]int)
	s.selected = ""
	s.cache = make(map[cacheKey]models.AnalysisResult)
}

// Generation identifies the current session; it changes on Start and Reset
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Document returns a copy of the current document, or nil
func (s *State) Document() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return nil
	}
	doc := *s.document
	return &doc
}

// Clauses returns the clause list in presentation order
func (s *State) Clauses() []models.Clause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Clause, len(s.clauses))
	copy(out, s.clauses)
	return out
}

// Clause looks up one clause by id
func (s *State) Clause(id string) (models.Clause, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Clause{}, false
	}
	return s.clauses[i], true
}

// Select moves the selection pointer. Unknown ids leave it unchanged and
// return false.
func (s *State) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the selected clause id
func (s *State) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != ""
}

// Cached returns a cached result without fetching
func (s *State) Cached(clauseID string, capability models.Capability) (models.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.cache[cacheKey{clauseID, capability}]
	return result, ok
}

// GetOrFetch returns the cached result for (clauseID, capability) or runs
// fetch to produce it. Concurrent callers for the same key share a single
// fetch; the first caller's ctx is the one fetch receives. A result that
// lands after the session changed is dropped and ErrSessionChanged returned.
func (s *State) GetOrFetch(ctx context.Context, clauseID string, capability models.Capability, fetch Fetcher) (models.AnalysisResult, error) {
	if !capability.PerClause() {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotCache, capability)
	}

	s.mu.RLock()
	gen := s.generation
	hasDoc := s.document != nil
	_, known := s.index[clauseID]
	cached, hit := s.cache[cacheKey{clauseID, capability}]
	s.mu.RUnlock()

	if !hasDoc {
		return nil, ErrNoDocument
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClause, clauseID)
	}
	if hit {
		metrics.CacheLookups.WithLabelValues(string(capability), "hit").Inc()
		return cached, nil
	}

	key := fmt.Sprintf("%d/%s/%s", gen, clauseID, capability)
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		// A previous flight for this key may have stored the value after our
		// cache check above.
		if result, ok := s.Cached(clauseID, capability); ok {
			return result, nil
		}
		metrics.CacheLookups.WithLabelValues(string(capability), "miss").Inc()

		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if !s.store(gen, cacheKey{clauseID, capability}, result) {
			return nil, ErrSessionChanged
		}
		return result, nil
	})
	if shared {
		metrics.CacheLookups.WithLabelValues(string(capability), "shared").Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.(models.AnalysisResult), nil
}

// store commits a fetched result if gen is still current
func (s *State) store(gen uint64, key cacheKey, result models.AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		metrics.StaleResultsDiscarded.WithLabelValues("cache").Inc()
		s.logger.Debug("discarding analysis from previous session",
			zap.String("clause_id", key.clauseID),
			zap.String("capability", string(key.capability)))
		return false
	}
	if _, exists := s.cache[key]; !exists {
		s.cache[key] = result
	}
	return true
}
