package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nomiko-backend/models"
)

func TestSegmentPromptCarriesContext(t *testing.T) {
	prompt := SegmentInput{Document: models.Document{
		Text:         "Rent is due on the first.",
		DocumentType: models.DocumentTypeRental,
		UserProfile:  models.ProfileTenant,
		Jurisdiction: "California",
	}}.Prompt()

	assert.Contains(t, prompt, "Document Type: Rental Agreement")
	assert.Contains(t, prompt, "Reviewed On Behalf Of: Tenant")
	assert.Contains(t, prompt, "Jurisdiction: California")
	assert.Contains(t, prompt, "Rent is due on the first.")
}

func TestPromptsInferMissingJurisdiction(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
	}{
		{"segment", SegmentInput{Document: models.Document{Text: "x"}}.Prompt()},
		{"standards", StandardsInput{ClauseText: "x", DocumentType: models.DocumentTypeLoan, Jurisdiction: "  "}.Prompt()},
		{"negotiate", NegotiateInput{ClauseText: "x", DocumentType: models.DocumentTypeTOS, UserProfile: models.ProfileConsumer}.Prompt()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.prompt, inferJurisdiction)
		})
	}
}

func TestNegotiatePromptUsesLabels(t *testing.T) {
	prompt := NegotiateInput{
		ClauseText:   "The contractor waives all claims.",
		DocumentType: models.DocumentTypeService,
		UserProfile:  models.ProfileBusinessOwner,
		Jurisdiction: "Ontario",
	}.Prompt()

	assert.Contains(t, prompt, "Clause Text: The contractor waives all claims.")
	assert.Contains(t, prompt, "Document Type: Service Agreement")
	assert.Contains(t, prompt, "User Profile: Small Business Owner")
	assert.NotContains(t, prompt, inferJurisdiction)
}

func TestQueryPrompts(t *testing.T) {
	answer := AnswerInput{DocumentText: "doc body", Question: "Can I sublet?"}.Prompt()
	assert.Contains(t, answer, "doc body")
	assert.Contains(t, answer, "Question: Can I sublet?")

	sim := SimulateInput{DocumentText: "doc body", Scenario: "I move out early"}.Prompt()
	assert.Contains(t, sim, "Scenario: I move out early")
}

func TestInputValidate(t *testing.T) {
	assert.Error(t, SummarizeInput{ClauseText: " "}.Validate())
	assert.Error(t, StandardsInput{ClauseText: "x", DocumentType: "lease"}.Validate())
	assert.Error(t, NegotiateInput{ClauseText: "x", DocumentType: models.DocumentTypeLoan, UserProfile: "lender"}.Validate())
	assert.Error(t, AnswerInput{DocumentText: "doc"}.Validate())
	assert.NoError(t, SimulateInput{DocumentText: "doc", Scenario: "s"}.Validate())
	assert.ErrorIs(t, SegmentInput{}.Validate(), errMissingField)
}
