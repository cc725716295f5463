package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelJSON(t *testing.T) {
	data, err := json.Marshal(RiskAssessment{IsRisky: true, RiskScore: RiskMedium, Rationale: "r"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_risky": true, "risk_score": "Medium", "rationale": "r"}`, string(data))

	var ra RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(`{"is_risky": true, "risk_score": "High", "rationale": "r"}`), &ra))
	assert.Equal(t, RiskHigh, ra.RiskScore)

	assert.Error(t, json.Unmarshal([]byte(`{"risk_score": "🔴 High"}`), &ra))
	assert.Error(t, json.Unmarshal([]byte(`{"risk_score": 3}`), &ra))

	_, err = json.Marshal(RiskLevel(0))
	assert.Error(t, err)
}

func TestReadModelUsesSnakeCase(t *testing.T) {
	snap := DashboardSnapshot{
		State:    StateReady,
		Document: &Document{Text: "t", DocumentType: DocumentTypeRental, UserProfile: ProfileTenant},
		Clauses: []Clause{{ID: "c1", ClauseText: "Rent is due monthly.", RiskAssessment: &RiskAssessment{
			IsRisky: true, RiskScore: RiskLow, Rationale: "r",
		}}},
		Tabs: map[Tab]PanelState{
			TabStandards: {Status: PanelLoaded, ClauseID: "c1", Result: &StandardsComparison{IsStandard: true}},
		},
		Scenario: PanelState{Status: PanelLoaded, Result: &ScenarioOutcome{RiskLevel: RiskHigh}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	body := string(data)

	for _, key := range []string{`"document_type"`, `"clause_text"`, `"risk_assessment"`, `"is_risky"`, `"risk_score"`, `"is_standard"`, `"risk_level"`, `"clause_id"`} {
		assert.Contains(t, body, key)
	}
	for _, key := range []string{`"clauseText"`, `"riskAssessment"`, `"isStandard"`, `"riskLevel"`} {
		assert.NotContains(t, body, key)
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	assert.Less(t, int(RiskLow), int(RiskMedium))
	assert.Less(t, int(RiskMedium), int(RiskHigh))
	assert.Equal(t, "🔴", RiskHigh.Glyph())
	assert.Equal(t, "", RiskLevel(9).Glyph())

	for _, name := range RiskLevelNames {
		level, err := ParseRiskLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, level.String())
	}
}

func TestDocumentValidate(t *testing.T) {
	valid := Document{Text: "Rent is due monthly.", DocumentType: DocumentTypeRental, UserProfile: ProfileTenant}
	assert.NoError(t, valid.Validate())

	blank := valid
	blank.Text = " \n "
	assert.Error(t, blank.Validate())

	badType := valid
	badType.DocumentType = "lease"
	assert.Error(t, badType.Validate())

	badProfile := valid
	badProfile.UserProfile = "landlord"
	assert.Error(t, badProfile.Validate())

	assert.Equal(t, "Small Business Owner", ProfileBusinessOwner.Label())
}

func TestTabCapability(t *testing.T) {
	capability, ok := TabSummary.Capability()
	assert.True(t, ok)
	assert.Equal(t, CapabilitySummarize, capability)

	_, ok = TabRisk.Capability()
	assert.False(t, ok)

	for _, tab := range Tabs {
		assert.True(t, tab.Valid())
		if c, ok := tab.Capability(); ok {
			assert.True(t, c.PerClause())
		}
	}
	assert.False(t, Tab("history").Valid())
	assert.False(t, CapabilityAnswer.PerClause())
}
