package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nomiko-backend/models"
	"nomiko-backend/service"
)

// SessionHandler handles HTTP requests for dashboard sessions
type SessionHandler struct {
	registry          *service.SessionRegistry
	maxFileSize       int64
	allowedExtensions map[string]bool
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *service.SessionRegistry) *SessionHandler {
	return &SessionHandler{
		registry:    registry,
		maxFileSize: 1 * 1024 * 1024, // 1MB of contract text
		allowedExtensions: map[string]bool{
			".txt": true,
			".md":  true,
		},
	}
}

// SubmitDocumentRequest represents the request body for submitting a document
type SubmitDocumentRequest struct {
	Text         string `json:"text" binding:"required"`
	DocumentType string `json:"document_type" binding:"required"`
	UserProfile  string `json:"user_profile" binding:"required"`
	Jurisdiction string `json:"jurisdiction"`
}

// SelectClauseRequest represents the request body for moving the selection
type SelectClauseRequest struct {
	ClauseID string `json:"clause_id" binding:"required"`
}

// QueryRequest represents a question or scenario
type QueryRequest struct {
	Query string `json:"query"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	s := h.registry.Create()
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_SESSION_ID")
	if !ok {
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// SubmitDocument handles POST /api/sessions/:id/document
func (h *SessionHandler) SubmitDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	h.submit(c, s, models.Document{
		Text:         req.Text,
		DocumentType: models.DocumentType(req.DocumentType),
		UserProfile:  models.UserProfile(req.UserProfile),
		Jurisdiction: strings.TrimSpace(req.Jurisdiction),
	})
}

// UploadDocument handles POST /api/sessions/:id/document/file
func (h *SessionHandler) UploadDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !h.allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNSUPPORTED_FILE_TYPE",
				"message": "Only plain text files are supported",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil || int64(len(data)) > h.maxFileSize || !utf8.Valid(data) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE",
				"message": "File must be UTF-8 text within the size limit",
			},
		})
		return
	}

	h.submit(c, s, models.Document{
		Text:         string(data),
		DocumentType: models.DocumentType(c.PostForm("document_type")),
		UserProfile:  models.UserProfile(c.PostForm("user_profile")),
		Jurisdiction: strings.TrimSpace(c.PostForm("jurisdiction")),
	})
}

func (h *SessionHandler) submit(c *gin.Context, s *service.DashboardService, doc models.Document) {
	if err := s.Submit(c.Request.Context(), doc); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// ResetSession handles POST /api/sessions/:id/reset
func (h *SessionHandler) ResetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Reset()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// SelectClause handles PUT /api/sessions/:id/selection
func (h *SessionHandler) SelectClause(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectClauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	// Unknown ids leave the selection where it was.
	s.SelectClause(req.ClauseID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// LoadTab handles GET /api/sessions/:id/clauses/:clauseId/:tab
// With ?async=true the fetch runs in the background and the client polls the
// session snapshot.
func (h *SessionHandler) LoadTab(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	clauseID := c.Param("clauseId")
	tab := models.Tab(c.Param("tab"))

	if c.Query("async") == "true" {
		if err := s.RequestTab(c.Request.Context(), clauseID, tab); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"data":    s.Snapshot(),
		})
		return
	}

	result, err := s.LoadTab(c.Request.Context(), clauseID, tab)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"clause_id": clauseID,
			"tab":       tab,
			"result":    result,
		},
	})
}

// AskQuestion handles POST /api/sessions/:id/questions
func (h *SessionHandler) AskQuestion(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	query, ok := bindQuery(c)
	if !ok {
		return
	}

	answer, err := s.Ask(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

// SimulateScenario handles POST /api/sessions/:id/scenarios
func (h *SessionHandler) SimulateScenario(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	query, ok := bindQuery(c)
	if !ok {
		return
	}

	outcome, err := s.Simulate(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    outcome,
	})
}

// ExportReport handles POST /api/sessions/:id/report
func (h *SessionHandler) ExportReport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	report, err := s.ExportReport(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    report,
	})
}

func (h *SessionHandler) session(c *gin.Context) (*service.DashboardService, bool) {
	id, ok := parseID(c, "id", "INVALID_SESSION_ID")
	if !ok {
		return nil, false
	}
	s, err := h.registry.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return s, true
}

func bindQuery(c *gin.Context) (string, bool) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return "", false
	}
	return req.Query, true
}

func parseID(c *gin.Context, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": fmt.Sprintf("Invalid %s format", param),
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service errors onto the error envelope
func respondServiceError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status, code = http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, service.ErrReportNotFound):
		status, code = http.StatusNotFound, "REPORT_NOT_FOUND"
	case errors.Is(err, service.ErrInvalidDocument):
		status, code = http.StatusBadRequest, "INVALID_DOCUMENT"
	case errors.Is(err, service.ErrEmptyQuery):
		status, code = http.StatusBadRequest, "EMPTY_QUERY"
	case errors.Is(err, service.ErrUnknownTab):
		status, code = http.StatusBadRequest, "UNKNOWN_TAB"
	case errors.Is(err, service.ErrClauseNotFound):
		status, code = http.StatusNotFound, "CLAUSE_NOT_FOUND"
	case errors.Is(err, service.ErrTabUnavailable):
		status, code = http.StatusNotFound, "TAB_UNAVAILABLE"
	case errors.Is(err, service.ErrInvalidState):
		status, code = http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, service.ErrNoDocument):
		status, code = http.StatusConflict, "NO_DOCUMENT"
	case errors.Is(err, service.ErrSessionChanged):
		status, code = http.StatusConflict, "SESSION_CHANGED"
	case errors.Is(err, service.ErrCapabilityFailed):
		status, code = http.StatusBadGateway, "ANALYSIS_FAILED"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
