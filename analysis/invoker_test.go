package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomiko-backend/llm"
	"nomiko-backend/models"
)

// fakeTransport replies with a canned payload per capability and records calls
type fakeTransport struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	calls    []llm.Request
}

func (f *fakeTransport) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err, ok := f.failures[req.Capability]; ok {
		return "", err
	}
	return f.replies[req.Capability], nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestInvoker(t *testing.T, transport llm.Transport) *Invoker {
	t.Helper()
	inv, err := NewInvoker(WithTransport(transport), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return inv
}

var rentalDoc = models.Document{
	Text:         "Tenant pays $2000/month, due on the 1st. Landlord may enter at any time without notice.",
	DocumentType: models.DocumentTypeRental,
	UserProfile:  models.ProfileTenant,
	Jurisdiction: "California, USA",
}

func TestNewInvokerRequiresTransport(t *testing.T) {
	_, err := NewInvoker()
	assert.Error(t, err)
}

func TestSegmentAndFlag(t *testing.T) {
	transport := &fakeTransport{replies: map[string]string{
		"segment": `[
			{"id": "clause-1", "clauseText": "Tenant pays $2000/month, due on the 1st."},
			{"id": "clause-1", "clauseText": "Landlord may enter at any time without notice.",
			 "riskAssessment": {"isRisky": true, "riskScore": "High", "rationale": "No notice before entry."}}
		]`,
	}}
	inv := newTestInvoker(t, transport)

	clauses, err := inv.SegmentAndFlag(context.Background(), rentalDoc)
	require.NoError(t, err)
	require.Len(t, clauses, 2)

	assert.Equal(t, "id-1", clauses[0].ID)
	assert.Equal(t, "id-2", clauses[1].ID)
	assert.Equal(t, "Tenant pays $2000/month, due on the 1st.", clauses[0].ClauseText)
	assert.Nil(t, clauses[0].RiskAssessment)
	require.NotNil(t, clauses[1].RiskAssessment)
	assert.True(t, clauses[1].RiskAssessment.IsRisky)
	assert.Equal(t, models.RiskHigh, clauses[1].RiskAssessment.RiskScore)

	require.Len(t, transport.calls, 1)
	call := transport.calls[0]
	assert.Equal(t, "segment", call.Capability)
	assert.Contains(t, call.Prompt, rentalDoc.Text)
	assert.Contains(t, call.Prompt, "Rental Agreement")
	assert.Contains(t, call.Prompt, "California, USA")
	require.NotNil(t, call.Schema)
}

func TestSegmentAndFlagRejectsInvalidOutput(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", `Here are the clauses: [`},
		{"object instead of array", `{"clauses": []}`},
		{"empty list", `[]`},
		{"missing clause text", `[{"id": "clause-1"}]`},
		{"numeric risk score", `[{"id": "c", "clauseText": "x", "riskAssessment": {"isRisky": true, "riskScore": 3, "rationale": "r"}}]`},
		{"emoji risk score", `[{"id": "c", "clauseText": "x", "riskAssessment": {"isRisky": true, "riskScore": "🔴 High", "rationale": "r"}}]`},
		{"risk assessment not risky", `[{"id": "c", "clauseText": "x", "riskAssessment": {"isRisky": false, "riskScore": "Low", "rationale": "r"}}]`},
		{"empty rationale", `[{"id": "c", "clauseText": "x", "riskAssessment": {"isRisky": true, "riskScore": "Low", "rationale": ""}}]`},
		{"markdown fenced", "```json\n[{\"id\": \"c\", \"clauseText\": \"x\"}]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoker(t, &fakeTransport{replies: map[string]string{"segment": tt.reply}})

			clauses, err := inv.SegmentAndFlag(context.Background(), rentalDoc)
			assert.Nil(t, clauses)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestInvokeTransportFailure(t *testing.T) {
	boom := errors.New("connection refused")
	transport := &fakeTransport{failures: map[string]error{"summarize": boom}}
	inv := newTestInvoker(t, transport)

	_, err := inv.Summarize(context.Background(), "Tenant pays $2000/month.")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrValidationFailed)

	var analysisErr *Error
	require.True(t, errors.As(err, &analysisErr))
	assert.Equal(t, models.CapabilitySummarize, analysisErr.Capability)
	assert.Len(t, transport.calls, 1, "no retry")
}

func TestInvokeRejectsInvalidInputWithoutCalling(t *testing.T) {
	transport := &fakeTransport{}
	inv := newTestInvoker(t, transport)

	_, err := inv.AnswerQuestion(context.Background(), rentalDoc.Text, "   ")
	assert.ErrorIs(t, err, ErrInputInvalid)

	_, err = inv.CompareToStandards(context.Background(), StandardsInput{ClauseText: "x", DocumentType: "lease"})
	assert.ErrorIs(t, err, ErrInputInvalid)

	assert.Empty(t, transport.calls)
}

func TestPerClauseCapabilities(t *testing.T) {
	transport := &fakeTransport{replies: map[string]string{
		"summarize": `{"summary": "You pay $2000 on the first of every month."}`,
		"standards": `{"comparison": "Typical for California leases.", "isStandard": true, "rationale": "Monthly rent due on the 1st is customary."}`,
		"negotiate": `{"negotiationSuggestions": ["Ask for a 5-day grace period.", "Request online payment."], "rationale": "Reduces late-fee exposure."}`,
	}}
	inv := newTestInvoker(t, transport)
	ctx := context.Background()
	clause := "Tenant pays $2000/month, due on the 1st."

	summary, err := inv.Summarize(ctx, clause)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Summary)

	comparison, err := inv.CompareToStandards(ctx, StandardsInput{
		ClauseText:   clause,
		DocumentType: models.DocumentTypeRental,
	})
	require.NoError(t, err)
	assert.True(t, comparison.IsStandard)
	assert.NotEmpty(t, comparison.Comparison)
	assert.NotEmpty(t, comparison.Rationale)

	advice, err := inv.SuggestNegotiations(ctx, NegotiateInput{
		ClauseText:   clause,
		DocumentType: models.DocumentTypeRental,
		UserProfile:  models.ProfileTenant,
		Jurisdiction: "California, USA",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ask for a 5-day grace period.", "Request online payment."}, advice.Suggestions)

	require.Len(t, transport.calls, 3)
	assert.Contains(t, transport.calls[1].Prompt, inferJurisdiction)
	assert.Contains(t, transport.calls[2].Prompt, "Tenant")
}

func TestStandardsRequiresBoolean(t *testing.T) {
	inv := newTestInvoker(t, &fakeTransport{replies: map[string]string{
		"standards": `{"comparison": "c", "isStandard": "yes", "rationale": "r"}`,
	}})

	_, err := inv.CompareToStandards(context.Background(), StandardsInput{ClauseText: "x", DocumentType: models.DocumentTypeLoan})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestWholeDocumentCapabilities(t *testing.T) {
	transport := &fakeTransport{replies: map[string]string{
		"answer":   `{"answer": "No, rent is fixed at $2000 for the term."}`,
		"simulate": `{"outcome": "A late fee applies.", "riskLevel": "Medium", "rationale": "The lease allows late fees."}`,
	}}
	inv := newTestInvoker(t, transport)
	ctx := context.Background()

	answer, err := inv.AnswerQuestion(ctx, rentalDoc.Text, "Can my landlord raise the rent?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(answer.Answer, "No"))

	outcome, err := inv.SimulateScenario(ctx, rentalDoc.Text, "What if I pay on the 5th?")
	require.NoError(t, err)
	assert.Equal(t, models.RiskMedium, outcome.RiskLevel)

	assert.Contains(t, transport.calls[0].Prompt, "Can my landlord raise the rent?")
	assert.Contains(t, transport.calls[1].Prompt, "What if I pay on the 5th?")
}

func TestSimulateRejectsUnknownRiskLevel(t *testing.T) {
	inv := newTestInvoker(t, &fakeTransport{replies: map[string]string{
		"simulate": `{"outcome": "o", "riskLevel": "Severe", "rationale": "r"}`,
	}})

	_, err := inv.SimulateScenario(context.Background(), rentalDoc.Text, "What if I move out early?")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
