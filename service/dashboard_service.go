package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nomiko-backend/analysis"
	"nomiko-backend/metrics"
	"nomiko-backend/models"
	"nomiko-backend/session"
)

const notificationSegmentationFailed = "SEGMENTATION_FAILED"

var (
	ErrInvalidState    = errors.New("operation not allowed in the current dashboard state")
	ErrInvalidDocument = errors.New("invalid document")
	ErrNoDocument      = errors.New("no document has been analyzed")
	ErrClauseNotFound  = errors.New("clause not found")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrUnknownTab      = errors.New("unknown tab")
	ErrTabUnavailable  = errors.New("tab is not available for this clause")
	ErrSessionChanged  = session.ErrSessionChanged
)

// ErrCapabilityFailed wraps every failed per-clause or whole-document
// analysis. The underlying *analysis.Error stays reachable with errors.As.
var ErrCapabilityFailed = errors.New("analysis failed")

type panelKey struct {
	clauseID string
	tab      models.Tab
}

// queryPanel is a whole-document panel; seq identifies the latest request
type queryPanel struct {
	state models.PanelState
	seq   uint64
}

// DashboardService is the controller behind one dashboard. It owns the
// session state and every panel, and is safe for concurrent use.
type DashboardService struct {
	id      uuid.UUID
	invoker *analysis.Invoker
	reports *ReportService
	logger  *zap.Logger
	now     func() time.Time
	session *session.State

	mu           sync.Mutex
	state        models.DashboardState
	epoch        uint64
	panels       map[panelKey]models.PanelState
	question     queryPanel
	scenario     queryPanel
	notification *models.Notification
	lastActive   time.Time
	updatedAt    time.Time
}

// DashboardServiceOption is a functional option for DashboardService
type DashboardServiceOption func(*DashboardService)

// DashboardWithInvoker sets the analysis invoker
func DashboardWithInvoker(inv *analysis.Invoker) DashboardServiceOption {
	return func(s *DashboardService) {
		s.invoker = inv
	}
}

// DashboardWithReportService sets the report exporter
func DashboardWithReportService(r *ReportService) DashboardServiceOption {
	return func(s *DashboardService) {
		s.reports = r
	}
}

// DashboardWithLogger sets the logger
func DashboardWithLogger(logger *zap.Logger) DashboardServiceOption {
	return func(s *DashboardService) {
		s.logger = logger
	}
}

// DashboardWithID sets the session id
func DashboardWithID(id uuid.UUID) DashboardServiceOption {
	return func(s *DashboardService) {
		s.id = id
	}
}

// DashboardWithClock overrides time.Now
func DashboardWithClock(now func() time.Time) DashboardServiceOption {
	return func(s *DashboardService) {
		s.now = now
	}
}

// NewDashboardService creates a dashboard in the idle state
func NewDashboardService(opts ...DashboardServiceOption) *DashboardService {
	s := &DashboardService{
		id:     uuid.New(),
		logger: zap.NewNop(),
		now:    time.Now,
		state:  models.StateIdle,
		panels: make(map[panelKey]models.PanelState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id.String()))
	s.session = session.New(s.logger)
	s.lastActive = s.now()
	s.updatedAt = s.lastActive
	s.question.state = models.PanelState{Status: models.PanelIdle, UpdatedAt: s.updatedAt}
	s.scenario.state = models.PanelState{Status: models.PanelIdle, UpdatedAt: s.updatedAt}
	return s
}

// ID returns the session id
func (s *DashboardService) ID() uuid.UUID {
	return s.id
}

// LastActive returns the time of the last user intent
func (s *DashboardService) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// State returns the current dashboard state
func (s *DashboardService) State() models.DashboardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit starts analysis of doc and returns immediately. Segmentation runs
// in the background; poll Snapshot for the outcome.
func (s *DashboardService) Submit(ctx context.Context, doc models.Document) error {
	epoch, err := s.begin(doc)
	if err != nil {
		return err
	}

	go func() {
		bgCtx := context.WithoutCancel(ctx)
		if err := s.analyze(bgCtx, epoch, doc); err != nil {
			s.logger.Debug("background segmentation ended", zap.Error(err))
		}
	}()
	return nil
}

// SubmitAndWait starts analysis of doc and blocks until segmentation has
// finished.
func (s *DashboardService) SubmitAndWait(ctx context.Context, doc models.Document) error {
	epoch, err := s.begin(doc)
	if err != nil {
		return err
	}
	return s.analyze(ctx, epoch, doc)
}

func (s *DashboardService) begin(doc models.Document) (uint64, error) {
	if s.invoker == nil {
		return 0, errors.New("invoker not set")
	}
	if err := doc.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state != models.StateIdle {
		return 0, fmt.Errorf("%w: cannot submit while %s", ErrInvalidState, s.state)
	}
	s.epoch++
	s.state = models.StateAnalyzing
	s.notification = nil
	s.logger.Info("analysis started",
		zap.String("document_type", string(doc.DocumentType)),
		zap.String("user_profile", string(doc.UserProfile)),
		zap.Int("chars", len(doc.Text)))
	return s.epoch, nil
}

func (s *DashboardService) analyze(ctx context.Context, epoch uint64, doc models.Document) error {
	clauses, err := s.invoker.SegmentAndFlag(ctx, doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.state != models.StateAnalyzing {
		metrics.StaleResultsDiscarded.WithLabelValues("segmentation").Inc()
		s.logger.Info("discarding segmentation for a reset session")
		return ErrSessionChanged
	}

	if err == nil {
		_, err = s.session.Start(doc, clauses)
	}
	if err != nil {
		s.state = models.StateIdle
		s.session.Reset()
		s.notification = &models.Notification{
			Code:      notificationSegmentationFailed,
			Title:     "Analysis Failed",
			Message:   "Failed to analyze the document. Please try again.",
			CreatedAt: s.now(),
		}
		s.updatedAt = s.now()
		s.logger.Warn("segmentation failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrCapabilityFailed, err)
	}

	s.state = models.StateReady
	s.panels = make(map[panelKey]models.PanelState)
	s.updatedAt = s.now()
	s.logger.Info("analysis ready", zap.Int("clauses", len(clauses)))
	return nil
}

// SelectClause moves the selection. Unknown ids are ignored.
func (s *DashboardService) SelectClause(clauseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state != models.StateReady {
		return false
	}
	if !s.session.Select(clauseID) {
		return false
	}
	s.updatedAt = s.now()
	return true
}

// LoadTab returns the content of one per-clause tab, fetching it on first
// use. The risk tab is served from the clause itself.
func (s *DashboardService) LoadTab(ctx context.Context, clauseID string, tab models.Tab) (interface{}, error) {
	clause, doc, gen, err := s.prepareTab(clauseID, tab)
	if err != nil {
		return nil, err
	}

	if tab == models.TabRisk {
		return clause.RiskAssessment, nil
	}
	capability, _ := tab.Capability()

	if cached, ok := s.session.Cached(clauseID, capability); ok {
		return cached, nil
	}

	key := panelKey{clauseID, tab}
	s.mu.Lock()
	s.panels[key] = models.PanelState{Status: models.PanelLoading, ClauseID: clauseID, UpdatedAt: s.now()}
	s.updatedAt = s.now()
	s.mu.Unlock()

	// Shared fetches must outlive the caller that started them.
	fetchCtx := context.WithoutCancel(ctx)
	result, err := s.session.GetOrFetch(fetchCtx, clauseID, capability, func(ctx context.Context) (models.AnalysisResult, error) {
		return s.fetchClauseAnalysis(ctx, capability, clause, doc)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Generation() != gen || errors.Is(err, session.ErrSessionChanged) {
		metrics.StaleResultsDiscarded.WithLabelValues("tab").Inc()
		return nil, ErrSessionChanged
	}

	selected, _ := s.session.Selected()
	switch {
	case err != nil:
		// Failures are not cached, so the panel is the only record of them.
		msg := "Failed to load analysis. Please try again."
		s.panels[key] = models.PanelState{Status: models.PanelFailed, ClauseID: clauseID, Error: &msg, UpdatedAt: s.now()}
	case selected != clauseID:
		// The result stays in the cache and the panel is rebuilt from it when
		// the clause is selected again.
		delete(s.panels, key)
		metrics.StaleResultsDiscarded.WithLabelValues("selection").Inc()
		s.logger.Debug("result arrived for a deselected clause",
			zap.String("clause_id", clauseID), zap.String("tab", string(tab)))
	default:
		s.panels[key] = models.PanelState{Status: models.PanelLoaded, ClauseID: clauseID, Result: result, UpdatedAt: s.now()}
	}
	s.updatedAt = s.now()

	if err != nil {
		s.logger.Warn("capability failed",
			zap.String("clause_id", clauseID),
			zap.String("capability", string(capability)),
			zap.String("kind", string(analysis.KindOf(err))))
		return nil, fmt.Errorf("%w: %w", ErrCapabilityFailed, err)
	}
	return result, nil
}

// RequestTab starts loading a tab in the background. The outcome shows up in
// the snapshot.
func (s *DashboardService) RequestTab(ctx context.Context, clauseID string, tab models.Tab) error {
	if _, _, _, err := s.prepareTab(clauseID, tab); err != nil {
		return err
	}
	go func() {
		bgCtx := context.WithoutCancel(ctx)
		if _, err := s.LoadTab(bgCtx, clauseID, tab); err != nil {
			s.logger.Debug("background tab load ended", zap.Error(err))
		}
	}()
	return nil
}

func (s *DashboardService) prepareTab(clauseID string, tab models.Tab) (models.Clause, models.Document, uint64, error) {
	if !tab.Valid() {
		return models.Clause{}, models.Document{}, 0, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state != models.StateReady {
		return models.Clause{}, models.Document{}, 0, ErrNoDocument
	}
	clause, ok := s.session.Clause(clauseID)
	if !ok {
		return models.Clause{}, models.Document{}, 0, fmt.Errorf("%w: %s", ErrClauseNotFound, clauseID)
	}
	if tab == models.TabRisk && clause.IsStandard() {
		return models.Clause{}, models.Document{}, 0, ErrTabUnavailable
	}
	return clause, *s.session.Document(), s.session.Generation(), nil
}

func (s *DashboardService) fetchClauseAnalysis(ctx context.Context, capability models.Capability, clause models.Clause, doc models.Document) (models.AnalysisResult, error) {
	switch capability {
	case models.CapabilitySummarize:
		return s.invoker.Invoke(ctx, analysis.SummarizeInput{ClauseText: clause.ClauseText})
	case models.CapabilityStandards:
		return s.invoker.Invoke(ctx, analysis.StandardsInput{
			ClauseText:   clause.ClauseText,
			DocumentType: doc.DocumentType,
			Jurisdiction: doc.Jurisdiction,
		})
	case models.CapabilityNegotiate:
		return s.invoker.Invoke(ctx, analysis.NegotiateInput{
			ClauseText:   clause.ClauseText,
			DocumentType: doc.DocumentType,
			UserProfile:  doc.UserProfile,
			Jurisdiction: doc.Jurisdiction,
		})
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTab, capability)
}

// Ask answers a question about the whole document
func (s *DashboardService) Ask(ctx context.Context, question string) (*models.Answer, error) {
	result, err := s.runQuery(ctx, &s.question, question, func(ctx context.Context, text, q string) (models.AnalysisResult, error) {
		return s.invoker.Invoke(ctx, analysis.AnswerInput{DocumentText: text, Question: q})
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Answer), nil
}

// Simulate predicts the outcome of a hypothetical scenario
func (s *DashboardService) Simulate(ctx context.Context, scenario string) (*models.ScenarioOutcome, error) {
	result, err := s.runQuery(ctx, &s.scenario, scenario, func(ctx context.Context, text, q string) (models.AnalysisResult, error) {
		return s.invoker.Invoke(ctx, analysis.SimulateInput{DocumentText: text, Scenario: q})
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.ScenarioOutcome), nil
}

func (s *DashboardService) runQuery(
	ctx context.Context,
	panel *queryPanel,
	query string,
	call func(ctx context.Context, documentText, query string) (models.AnalysisResult, error),
) (models.AnalysisResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	s.touch()
	if s.state != models.StateReady {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	doc := s.session.Document()
	gen := s.session.Generation()
	panel.seq++
	seq := panel.seq
	panel.state = models.PanelState{Status: models.PanelLoading, Query: query, UpdatedAt: s.now()}
	s.updatedAt = s.now()
	s.mu.Unlock()

	result, err := call(context.WithoutCancel(ctx), doc.Text, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Generation() != gen {
		metrics.StaleResultsDiscarded.WithLabelValues("query").Inc()
		return nil, ErrSessionChanged
	}
	if panel.seq == seq {
		if err != nil {
			msg := "Failed to get a response. Please try again."
			panel.state = models.PanelState{Status: models.PanelFailed, Query: query, Error: &msg, UpdatedAt: s.now()}
		} else {
			panel.state = models.PanelState{Status: models.PanelLoaded, Query: query, Result: result, UpdatedAt: s.now()}
		}
		s.updatedAt = s.now()
	} else {
		metrics.StaleResultsDiscarded.WithLabelValues("query").Inc()
	}

	if err != nil {
		s.logger.Warn("capability failed", zap.String("kind", string(analysis.KindOf(err))), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCapabilityFailed, err)
	}
	return result, nil
}

// Reset returns the dashboard to idle and drops everything. Results still
// in flight are discarded when they land.
func (s *DashboardService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.epoch++
	s.state = models.StateIdle
	s.session.Reset()
	s.panels = make(map[panelKey]models.PanelState)
	s.question = queryPanel{state: models.PanelState{Status: models.PanelIdle, UpdatedAt: s.now()}, seq: s.question.seq}
	s.scenario = queryPanel{state: models.PanelState{Status: models.PanelIdle, UpdatedAt: s.now()}, seq: s.scenario.seq}
	s.notification = nil
	s.updatedAt = s.now()
	s.logger.Info("session reset")
}

// Snapshot returns the read model of the dashboard. Tabs describe the
// selected clause. Polling counts as activity.
func (s *DashboardService) Snapshot() *models.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	snap := &models.DashboardSnapshot{
		SessionID:    s.id,
		State:        s.state,
		Document:     s.session.Document(),
		Clauses:      s.session.Clauses(),
		Tabs:         make(map[models.Tab]models.PanelState, len(models.Tabs)),
		Question:     s.question.state,
		Scenario:     s.scenario.state,
		Notification: s.notification,
		UpdatedAt:    s.updatedAt,
	}

	selected, ok := s.session.Selected()
	if !ok || s.state != models.StateReady {
		return snap
	}
	snap.SelectedClauseID = &selected
	for _, tab := range models.Tabs {
		snap.Tabs[tab] = s.panelFor(selected, tab)
	}
	return snap
}

func (s *DashboardService) panelFor(clauseID string, tab models.Tab) models.PanelState {
	if tab == models.TabRisk {
		clause, _ := s.session.Clause(clauseID)
		if clause.IsStandard() {
			return models.PanelState{Status: models.PanelIdle, ClauseID: clauseID}
		}
		return models.PanelState{Status: models.PanelLoaded, ClauseID: clauseID, Result: clause.RiskAssessment}
	}

	if panel, ok := s.panels[panelKey{clauseID, tab}]; ok {
		return panel
	}
	capability, _ := tab.Capability()
	if cached, ok := s.session.Cached(clauseID, capability); ok {
		return models.PanelState{Status: models.PanelLoaded, ClauseID: clauseID, Result: cached}
	}
	return models.PanelState{Status: models.PanelIdle, ClauseID: clauseID}
}

// ExportReport renders and stores the risk report of the current document
func (s *DashboardService) ExportReport(ctx context.Context) (*models.Report, error) {
	if s.reports == nil {
		return nil, errors.New("report service not set")
	}

	s.mu.Lock()
	s.touch()
	if s.state != models.StateReady {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	doc := s.session.Document()
	clauses := s.session.Clauses()
	s.mu.Unlock()

	result, err := s.reports.Export(ctx, ExportReportRequest{
		SessionID: s.id,
		Document:  *doc,
		Clauses:   clauses,
	})
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}

// touch records user activity; callers hold s.mu
func (s *DashboardService) touch() {
	s.lastActive = s.now()
}
