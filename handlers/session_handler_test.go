package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nomiko-backend/analysis"
	"nomiko-backend/llm"
	"nomiko-backend/models"
	"nomiko-backend/service"
	"nomiko-backend/storage"
)

const contractText = "Tenant pays $2000/month, due on the 1st. Landlord may enter at any time without notice."

var cannedReplies = map[string]string{
	"segment": `[
		{"id": "1", "clauseText": "Tenant pays $2000/month, due on the 1st."},
		{"id": "2", "clauseText": "Landlord may enter at any time without notice.",
		 "riskAssessment": {"isRisky": true, "riskScore": "High", "rationale": "No notice before entry."}}
	]`,
	"summarize": `{"summary": "Your landlord can come in whenever they want."}`,
	"standards": `{"comparison": "Unusual for California.", "isStandard": false, "rationale": "Notice is required by law."}`,
	"negotiate": `{"negotiationSuggestions": ["Require 24 hours written notice."], "rationale": "Matches state law."}`,
	"answer":    `{"answer": "Rent is $2000 per month."}`,
	"simulate":  `{"outcome": "A late fee may apply.", "riskLevel": "Low", "rationale": "Rent is due on the 1st."}`,
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transport := llm.TransportFunc(func(_ context.Context, req llm.Request) (string, error) {
		return cannedReplies[req.Capability], nil
	})
	inv, err := analysis.NewInvoker(analysis.WithTransport(transport))
	require.NoError(t, err)

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	reports := service.NewReportService(service.ReportWithStorage(local))
	registry := service.NewSessionRegistry(
		service.RegistryWithInvoker(inv),
		service.RegistryWithReportService(reports),
	)

	return NewRouter(NewSessionHandler(registry), NewReportHandler(reports), zap.NewNop())
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func snapshotOf(t *testing.T, env envelope) models.DashboardSnapshot {
	t.Helper()
	var snap models.DashboardSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func createReadySession(t *testing.T, r http.Handler) models.DashboardSnapshot {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	snap := snapshotOf(t, env)
	assert.Equal(t, models.StateIdle, snap.State)
	base := "/api/sessions/" + snap.SessionID.String()

	w, env = do(t, r, http.MethodPost, base+"/document", SubmitDocumentRequest{
		Text:         contractText,
		DocumentType: "rental",
		UserProfile:  "tenant",
		Jurisdiction: "California, USA",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)

	require.Eventually(t, func() bool {
		_, env := do(t, r, http.MethodGet, base, nil)
		snap = snapshotOf(t, env)
		return snap.State == models.StateReady
	}, time.Second, 5*time.Millisecond)
	return snap
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nomiko_sessions_active")
}

func TestDashboardFlow(t *testing.T) {
	r := newTestRouter(t)
	snap := createReadySession(t, r)
	base := "/api/sessions/" + snap.SessionID.String()

	require.Len(t, snap.Clauses, 2)
	require.NotNil(t, snap.SelectedClauseID)
	risky := snap.Clauses[1].ID
	assert.Equal(t, risky, *snap.SelectedClauseID)

	w, env := do(t, r, http.MethodGet, base+"/clauses/"+risky+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "whenever they want")

	w, env = do(t, r, http.MethodGet, base+"/clauses/"+snap.Clauses[0].ID+"/risk", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TAB_UNAVAILABLE", env.Error.Code)

	w, env = do(t, r, http.MethodPut, base+"/selection", SelectClauseRequest{ClauseID: snap.Clauses[0].ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snap.Clauses[0].ID, *snapshotOf(t, env).SelectedClauseID)

	w, env = do(t, r, http.MethodPut, base+"/selection", SelectClauseRequest{ClauseID: "unknown"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snap.Clauses[0].ID, *snapshotOf(t, env).SelectedClauseID)

	w, env = do(t, r, http.MethodPost, base+"/questions", QueryRequest{Query: "How much is rent?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "$2000 per month")

	w, env = do(t, r, http.MethodPost, base+"/scenarios", QueryRequest{Query: "What if I pay late?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"risk_level":"Low"`)

	w, env = do(t, r, http.MethodPost, base+"/report", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var report models.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.RiskyCount)

	w, _ = do(t, r, http.MethodGet, "/api/reports/"+report.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), report.Filename)
	assert.Contains(t, w.Body.String(), "No notice before entry.")

	w, env = do(t, r, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StateIdle, snapshotOf(t, env).State)

	w, _ = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestAsyncTabLoad(t *testing.T) {
	r := newTestRouter(t)
	snap := createReadySession(t, r)
	base := "/api/sessions/" + snap.SessionID.String()

	w, _ := do(t, r, http.MethodGet, base+"/clauses/"+*snap.SelectedClauseID+"/negotiation?async=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		_, env := do(t, r, http.MethodGet, base, nil)
		return snapshotOf(t, env).Tabs[models.TabNegotiation].Status == models.PanelLoaded
	}, time.Second, 5*time.Millisecond)
}

func TestSessionErrors(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SESSION_ID", env.Error.Code)

	w, env = do(t, r, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)

	_, env = do(t, r, http.MethodPost, "/api/sessions", nil)
	base := "/api/sessions/" + snapshotOf(t, env).SessionID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing fields", http.MethodPost, "/document", gin.H{"text": contractText}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown document type", http.MethodPost, "/document", SubmitDocumentRequest{Text: contractText, DocumentType: "lease", UserProfile: "tenant"}, http.StatusBadRequest, "INVALID_DOCUMENT"},
		{"blank question", http.MethodPost, "/questions", QueryRequest{Query: "  "}, http.StatusBadRequest, "EMPTY_QUERY"},
		{"question before analysis", http.MethodPost, "/questions", QueryRequest{Query: "Why?"}, http.StatusConflict, "NO_DOCUMENT"},
		{"unknown tab", http.MethodGet, "/clauses/abc/history", nil, http.StatusBadRequest, "UNKNOWN_TAB"},
		{"report before analysis", http.MethodPost, "/report", nil, http.StatusConflict, "NO_DOCUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, tt.method, base+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestUploadDocument(t *testing.T) {
	r := newTestRouter(t)
	_, env := do(t, r, http.MethodPost, "/api/sessions", nil)
	base := "/api/sessions/" + snapshotOf(t, env).SessionID.String()

	upload := func(filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("document_type", "rental"))
		require.NoError(t, mw.WriteField("user_profile", "tenant"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, base+"/document/file", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload("lease.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNSUPPORTED_FILE_TYPE")

	w = upload("lease.txt", contractText)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		_, env := do(t, r, http.MethodGet, base, nil)
		snap := snapshotOf(t, env)
		return snap.State == models.StateReady && snap.Document != nil && snap.Document.Text == contractText
	}, time.Second, 5*time.Millisecond)
}
