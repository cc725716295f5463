package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomiko-backend/models"
	"nomiko-backend/storage"
)

func newTestReportService(t *testing.T) *ReportService {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return NewReportService(
		ReportWithStorage(local),
		ReportWithClock(func() time.Time { return fixed }),
	)
}

func TestRenderReportListsRiskyClauses(t *testing.T) {
	clauses := []models.Clause{
		{ID: "a", ClauseText: rentClause},
		{ID: "b", ClauseText: entryClause, RiskAssessment: &models.RiskAssessment{
			IsRisky: true, RiskScore: models.RiskHigh, Rationale: "No notice before entry.",
		}},
	}

	out := RenderReport(rentalDoc, clauses)

	assert.Contains(t, out, "# Contract Analysis Report")
	assert.Contains(t, out, "- Document type: Rental Agreement")
	assert.Contains(t, out, "- Jurisdiction: California, USA")
	assert.Contains(t, out, "### 🔴 High Risk")
	assert.Contains(t, out, "> "+entryClause)
	assert.Contains(t, out, "**Rationale:** No notice before entry.")
	assert.NotContains(t, out, rentClause)
	assert.NotContains(t, out, noRisksDetected)
}

func TestRenderReportWithoutRisks(t *testing.T) {
	doc := rentalDoc
	doc.Jurisdiction = ""

	out := RenderReport(doc, []models.Clause{{ID: "a", ClauseText: rentClause}})

	assert.Contains(t, out, noRisksDetected)
	assert.NotContains(t, out, "Jurisdiction")
}

func TestExportAndGetReport(t *testing.T) {
	r := newTestReportService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	result, err := r.Export(ctx, ExportReportRequest{
		SessionID: sessionID,
		Document:  rentalDoc,
		Clauses: []models.Clause{{ID: "b", ClauseText: entryClause, RiskAssessment: &models.RiskAssessment{
			IsRisky: true, RiskScore: models.RiskMedium, Rationale: "Entry terms are one-sided.",
		}}},
	})
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, sessionID, report.SessionID)
	assert.Equal(t, "contract-analysis-20260314-093000.md", report.Filename)
	assert.Equal(t, "text/markdown", report.MimeType)
	assert.Equal(t, 1, report.RiskyCount)
	assert.NotEmpty(t, report.StoragePath)

	got, err := r.Get(ctx, GetReportRequest{ReportID: report.ID})
	require.NoError(t, err)
	defer got.Body.Close()

	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, report.Size, int64(len(body)))
	assert.True(t, strings.Contains(string(body), "Entry terms are one-sided."))
}

func TestGetUnknownReport(t *testing.T) {
	r := newTestReportService(t)

	_, err := r.Get(context.Background(), GetReportRequest{ReportID: uuid.New()})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestDashboardExportReport(t *testing.T) {
	reports := newTestReportService(t)
	d := newTestDashboard(t, &scriptedTransport{respond: rentalReplies}, DashboardWithReportService(reports))

	_, err := d.ExportReport(context.Background())
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, d.SubmitAndWait(context.Background(), rentalDoc))
	report, err := d.ExportReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d.ID(), report.SessionID)
	assert.Equal(t, 1, report.RiskyCount)
}
