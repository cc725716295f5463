package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"nomiko-backend/service"
	"nomiko-backend/storage"
)

// ReportHandler serves exported reports
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetReport handles GET /api/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_REPORT_ID")
	if !ok {
		return
	}

	result, err := h.reports.Get(c.Request.Context(), service.GetReportRequest{ReportID: id})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("%w: %w", service.ErrReportNotFound, err)
		}
		respondServiceError(c, err)
		return
	}
	defer result.Body.Close()

	c.DataFromReader(http.StatusOK, result.Report.Size, result.Report.MimeType, result.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", result.Report.Filename),
	})
}
