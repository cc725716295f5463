package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nomiko-backend/metrics"
	"nomiko-backend/models"
	"nomiko-backend/storage"
)

const (
	reportMimeType  = "text/markdown"
	noRisksDetected = "No significant risks were detected."
)

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrReportUploadFailed = errors.New("failed to store report")
)

// ReportService renders risk reports and keeps them in file storage
type ReportService struct {
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	reports map[uuid.UUID]*models.Report
}

// ReportServiceOption is a functional option for ReportService
type ReportServiceOption func(*ReportService)

// ReportWithStorage sets the storage backend
func ReportWithStorage(s storage.Storage) ReportServiceOption {
	return func(r *ReportService) {
		r.storage = s
	}
}

// ReportWithLogger sets the logger
func ReportWithLogger(logger *zap.Logger) ReportServiceOption {
	return func(r *ReportService) {
		r.logger = logger
	}
}

// ReportWithClock overrides time.Now
func ReportWithClock(now func() time.Time) ReportServiceOption {
	return func(r *ReportService) {
		r.now = now
	}
}

// NewReportService creates a new report service
func NewReportService(opts ...ReportServiceOption) *ReportService {
	r := &ReportService{
		logger:  zap.NewNop(),
		now:     time.Now,
		reports: make(map[uuid.UUID]*models.Report),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExportReportRequest represents a request to export a session's report
type ExportReportRequest struct {
	SessionID uuid.UUID
	Document  models.Document
	Clauses   []models.Clause
}

// ExportReportResult represents the stored report
type ExportReportResult struct {
	Report *models.Report
}

// GetReportRequest represents a request to fetch a stored report
type GetReportRequest struct {
	ReportID uuid.UUID
}

// GetReportResult carries the report metadata and an open reader on its body.
// The caller closes Body.
type GetReportResult struct {
	Report *models.Report
	Body   io.ReadCloser
}

// Export renders the report and uploads it
func (r *ReportService) Export(ctx context.Context, req ExportReportRequest) (*ExportReportResult, error) {
	if r.storage == nil {
		return nil, errors.New("storage not set")
	}

	body := RenderReport(req.Document, req.Clauses)
	report := &models.Report{
		ID:         uuid.New(),
		SessionID:  req.SessionID,
		Filename:   fmt.Sprintf("contract-analysis-%s.md", r.now().UTC().Format("20060102-150405")),
		MimeType:   reportMimeType,
		Size:       int64(len(body)),
		RiskyCount: countRisky(req.Clauses),
		CreatedAt:  r.now(),
	}

	path, err := r.storage.Upload(ctx, report.ID, report.Filename, strings.NewReader(body))
	if err != nil {
		r.logger.Error("report upload failed", zap.String("report_id", report.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReportUploadFailed, err)
	}
	report.StoragePath = path

	r.mu.Lock()
	r.reports[report.ID] = report
	r.mu.Unlock()

	metrics.ReportsExported.Inc()
	r.logger.Info("report exported",
		zap.String("report_id", report.ID.String()),
		zap.String("session_id", req.SessionID.String()),
		zap.Int("risky_clauses", report.RiskyCount))

	copied := *report
	return &ExportReportResult{Report: &copied}, nil
}

// Get opens a previously exported report
func (r *ReportService) Get(ctx context.Context, req GetReportRequest) (*GetReportResult, error) {
	r.mu.RLock()
	report, ok := r.reports[req.ReportID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrReportNotFound
	}

	body, err := r.storage.Download(ctx, report.StoragePath)
	if err != nil {
		return nil, err
	}

	copied := *report
	return &GetReportResult{Report: &copied, Body: body}, nil
}

// DeleteSession removes every report exported by a session, from storage
// and from the index. It returns how many were removed. Reports whose object
// could not be deleted stay indexed and the first error is returned.
func (r *ReportService) DeleteSession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	r.mu.RLock()
	var owned []*models.Report
	for _, report := range r.reports {
		if report.SessionID == sessionID {
			owned = append(owned, report)
		}
	}
	r.mu.RUnlock()

	var firstErr error
	removed := 0
	for _, report := range owned {
		if err := r.storage.Delete(ctx, report.StoragePath); err != nil {
			r.logger.Error("report delete failed",
				zap.String("report_id", report.ID.String()),
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.mu.Lock()
		delete(r.reports, report.ID)
		r.mu.Unlock()
		removed++
	}

	if removed > 0 {
		r.logger.Info("session reports deleted",
			zap.String("session_id", sessionID.String()),
			zap.Int("count", removed))
	}
	return removed, firstErr
}

// RenderReport renders the Markdown risk report: every risky clause with its
// level and rationale, in document order.
func RenderReport(doc models.Document, clauses []models.Clause) string {
	var b strings.Builder
	b.WriteString("# Contract Analysis Report\n\n")
	b.WriteString("Generated by Nomiko\n\n")
	fmt.Fprintf(&b, "- Document type: %s\n", doc.DocumentType.Label())
	fmt.Fprintf(&b, "- Perspective: %s\n", doc.UserProfile.Label())
	if doc.Jurisdiction != "" {
		fmt.Fprintf(&b, "- Jurisdiction: %s\n", doc.Jurisdiction)
	}
	b.WriteString("\n## Risk Summary\n\n")

	if countRisky(clauses) == 0 {
		b.WriteString(noRisksDetected + "\n")
		return b.String()
	}

	for _, c := range clauses {
		if c.IsStandard() {
			continue
		}
		ra := c.RiskAssessment
		fmt.Fprintf(&b, "### %s %s Risk\n\n", ra.RiskScore.Glyph(), ra.RiskScore)
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(c.ClauseText), "\n", "\n> "))
		fmt.Fprintf(&b, "**Rationale:** %s\n\n", ra.Rationale)
	}
	return b.String()
}

func countRisky(clauses []models.Clause) int {
	n := 0
	for _, c := range clauses {
		if !c.IsStandard() {
			n++
		}
	}
	return n
}
