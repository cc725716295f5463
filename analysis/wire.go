package analysis

import "nomiko-backend/models"

// The model replies with the camelCase keys declared in outputProperties.
// These types decode that contract and convert it into the read model.

type wireRiskAssessment struct {
	IsRisky   bool             `json:"isRisky"`
	RiskScore models.RiskLevel `json:"riskScore"`
	Rationale string           `json:"rationale"`
}

type wireClause struct {
	ID             string              `json:"id"`
	ClauseText     string              `json:"clauseText"`
	RiskAssessment *wireRiskAssessment `json:"riskAssessment"`
}

func (w wireClause) clause(id string) models.Clause {
	c := models.Clause{ID: id, ClauseText: w.ClauseText}
	if w.RiskAssessment != nil {
		c.RiskAssessment = &models.RiskAssessment{
			IsRisky:   w.RiskAssessment.IsRisky,
			RiskScore: w.RiskAssessment.RiskScore,
			Rationale: w.RiskAssessment.Rationale,
		}
	}
	return c
}

type wireSummary struct {
	Summary string `json:"summary"`
}

type wireStandards struct {
	Comparison string `json:"comparison"`
	IsStandard bool   `json:"isStandard"`
	Rationale  string `json:"rationale"`
}

type wireNegotiation struct {
	Suggestions []string `json:"negotiationSuggestions"`
	Rationale   string   `json:"rationale"`
}

type wireAnswer struct {
	Answer string `json:"answer"`
}

type wireScenario struct {
	Outcome   string           `json:"outcome"`
	RiskLevel models.RiskLevel `json:"riskLevel"`
	Rationale string           `json:"rationale"`
}
