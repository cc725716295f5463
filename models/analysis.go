package models

// Capability identifies one kind of model-backed analysis
type Capability string

const (
	CapabilitySegment   Capability = "segment"
	CapabilitySummarize Capability = "summarize"
	CapabilityStandards Capability = "standards"
	CapabilityNegotiate Capability = "negotiate"
	CapabilityAnswer    Capability = "answer"
	CapabilitySimulate  Capability = "simulate"
)

// Capabilities lists every capability in declaration order
var Capabilities = []Capability{
	CapabilitySegment,
	CapabilitySummarize,
	CapabilityStandards,
	CapabilityNegotiate,
	CapabilityAnswer,
	CapabilitySimulate,
}

// PerClause reports whether results of this capability are cached per clause
func (c Capability) PerClause() bool {
	switch c {
	case CapabilitySummarize, CapabilityStandards, CapabilityNegotiate:
		return true
	}
	return false
}

// AnalysisResult is implemented by every capability output
type AnalysisResult interface {
	Capability() Capability
}

// Segmentation is the clause list returned by the segment capability
type Segmentation struct {
	Clauses []Clause `json:"clauses"`
}

// Summary is the plain-language restatement of one clause
type Summary struct {
	Summary string `json:"summary"`
}

// StandardsComparison compares a clause to regional and industry standards
type StandardsComparison struct {
	Comparison string `json:"comparison"`
	IsStandard bool   `json:"is_standard"`
	Rationale  string `json:"rationale"`
}

// NegotiationAdvice holds ordered suggestions for a more favorable term
type NegotiationAdvice struct {
	Suggestions []string `json:"negotiation_suggestions"`
	Rationale   string   `json:"rationale"`
}

// Answer is a one-shot reply to a user question about the whole document
type Answer struct {
	Answer string `json:"answer"`
}

// ScenarioOutcome is a one-shot prediction for a hypothetical situation
type ScenarioOutcome struct {
	Outcome   string    `json:"outcome"`
	RiskLevel RiskLevel `json:"risk_level"`
	Rationale string    `json:"rationale"`
}

func (*Segmentation) Capability() Capability        { return CapabilitySegment }
func (*Summary) Capability() Capability             { return CapabilitySummarize }
func (*StandardsComparison) Capability() Capability { return CapabilityStandards }
func (*NegotiationAdvice) Capability() Capability   { return CapabilityNegotiate }
func (*Answer) Capability() Capability              { return CapabilityAnswer }
func (*ScenarioOutcome) Capability() Capability     { return CapabilitySimulate }
