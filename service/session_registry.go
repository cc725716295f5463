package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nomiko-backend/analysis"
	"nomiko-backend/metrics"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry keeps one dashboard per browser tab
type SessionRegistry struct {
	invoker *analysis.Invoker
	reports *ReportService
	logger  *zap.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*DashboardService
}

// SessionRegistryOption is a functional option for SessionRegistry
type SessionRegistryOption func(*SessionRegistry)

// RegistryWithInvoker sets the invoker shared by every session
func RegistryWithInvoker(inv *analysis.Invoker) SessionRegistryOption {
	return func(r *SessionRegistry) {
		r.invoker = inv
	}
}

// RegistryWithReportService sets the report exporter shared by every session
func RegistryWithReportService(reports *ReportService) SessionRegistryOption {
	return func(r *SessionRegistry) {
		r.reports = reports
	}
}

// RegistryWithLogger sets the logger
func RegistryWithLogger(logger *zap.Logger) SessionRegistryOption {
	return func(r *SessionRegistry) {
		r.logger = logger
	}
}

// RegistryWithIdleTTL sets how long an untouched session survives.
// Zero disables eviction.
func RegistryWithIdleTTL(ttl time.Duration) SessionRegistryOption {
	return func(r *SessionRegistry) {
		r.idleTTL = ttl
	}
}

// RegistryWithClock overrides time.Now
func RegistryWithClock(now func() time.Time) SessionRegistryOption {
	return func(r *SessionRegistry) {
		r.now = now
	}
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(opts ...SessionRegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		logger:   zap.NewNop(),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*DashboardService),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a new idle dashboard session
func (r *SessionRegistry) Create() *DashboardService {
	s := NewDashboardService(
		DashboardWithInvoker(r.invoker),
		DashboardWithReportService(r.reports),
		DashboardWithLogger(r.logger),
		DashboardWithClock(r.now),
	)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	metrics.SessionsActive.Inc()
	r.logger.Info("session opened", zap.String("session_id", s.ID().String()))
	return s
}

// Get returns an open session
func (r *SessionRegistry) Get(id uuid.UUID) (*DashboardService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes a session and removes the reports it exported. In-flight
// work for it is discarded.
func (r *SessionRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Reset()
	metrics.SessionsActive.Dec()
	r.logger.Info("session closed", zap.String("session_id", id.String()))

	if r.reports != nil {
		if _, err := r.reports.DeleteSession(ctx, id); err != nil {
			r.logger.Warn("session reports not fully deleted",
				zap.String("session_id", id.String()), zap.Error(err))
		}
	}
	return nil
}

// Len returns the number of open sessions
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle closes every session idle for longer than the TTL and returns
// how many were closed.
func (r *SessionRegistry) EvictIdle(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.RLock()
	var expired []uuid.UUID
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	evicted := 0
	for _, id := range expired {
		if err := r.Delete(ctx, id); err == nil {
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}
