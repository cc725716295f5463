package models

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the ordered three-level risk classification
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskMedium
	RiskHigh
)

// RiskLevelNames lists the wire names in ascending order
var RiskLevelNames = []string{"Low", "Medium", "High"}

// ParseRiskLevel converts a wire name into a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "Low":
		return RiskLow, nil
	case "Medium":
		return RiskMedium, nil
	case "High":
		return RiskHigh, nil
	}
	return 0, fmt.Errorf("invalid risk level: %q", s)
}

func (r RiskLevel) String() string {
	if r < RiskLow || r > RiskHigh {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return RiskLevelNames[r-1]
}

// Glyph is the presentation marker for the level.
func (r RiskLevel) Glyph() string {
	switch r {
	case RiskLow:
		return "🟢"
	case RiskMedium:
		return "🟡"
	case RiskHigh:
		return "🔴"
	}
	return ""
}

// MarshalJSON implements json.Marshaler
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	if r < RiskLow || r > RiskHigh {
		return nil, fmt.Errorf("invalid risk level: %d", int(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// RiskAssessment is attached to a clause only when the model judged it
// non-standard. IsRisky is always true when present.
type RiskAssessment struct {
	IsRisky   bool      `json:"is_risky"`
	RiskScore RiskLevel `json:"risk_score"`
	Rationale string    `json:"rationale"`
}

// Clause is one model-identified segment of the document
type Clause struct {
	ID             string          `json:"id"`
	ClauseText     string          `json:"clause_text"`
	RiskAssessment *RiskAssessment `json:"risk_assessment,omitempty"`
}

// IsStandard reports whether the clause carries no risk assessment
func (c Clause) IsStandard() bool {
	return c.RiskAssessment == nil
}
