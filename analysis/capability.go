package analysis

import (
	"errors"
	"fmt"
	"strings"

	"nomiko-backend/models"
)

var errMissingField = errors.New("required field missing")

// Input is the validated input of one capability
type Input interface {
	Capability() models.Capability
	Validate() error
	Prompt() string
}

// SegmentInput asks for the whole document to be split into clauses and
// flagged in a single call.
type SegmentInput struct {
	Document models.Document
}

// SummarizeInput asks for a plain-language summary of one clause
type SummarizeInput struct {
	ClauseText string
}

// StandardsInput asks for a comparison of one clause to standards
type StandardsInput struct {
	ClauseText   string
	DocumentType models.DocumentType
	Jurisdiction string
}

// NegotiateInput asks for negotiation suggestions for one clause
type NegotiateInput struct {
	ClauseText   string
	DocumentType models.DocumentType
	UserProfile  models.UserProfile
	Jurisdiction string
}

// AnswerInput asks a free-form question about the whole document
type AnswerInput struct {
	DocumentText string
	Question     string
}

// SimulateInput asks what happens under a hypothetical scenario
type SimulateInput struct {
	DocumentText string
	Scenario     string
}

func (SegmentInput) Capability() models.Capability   { return models.CapabilitySegment }
func (SummarizeInput) Capability() models.Capability { return models.CapabilitySummarize }
func (StandardsInput) Capability() models.Capability { return models.CapabilityStandards }
func (NegotiateInput) Capability() models.Capability { return models.CapabilityNegotiate }
func (AnswerInput) Capability() models.Capability    { return models.CapabilityAnswer }
func (SimulateInput) Capability() models.Capability  { return models.CapabilitySimulate }

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", field, errMissingField)
	}
	return nil
}

func (in SegmentInput) Validate() error {
	return requireText("documentText", in.Document.Text)
}

func (in SummarizeInput) Validate() error {
	return requireText("clause", in.ClauseText)
}

func (in StandardsInput) Validate() error {
	if err := requireText("clause", in.ClauseText); err != nil {
		return err
	}
	if !in.DocumentType.Valid() {
		return fmt.Errorf("documentType: unsupported value %q", in.DocumentType)
	}
	return nil
}

func (in NegotiateInput) Validate() error {
	if err := requireText("clauseText", in.ClauseText); err != nil {
		return err
	}
	if !in.DocumentType.Valid() {
		return fmt.Errorf("documentType: unsupported value %q", in.DocumentType)
	}
	if !in.UserProfile.Valid() {
		return fmt.Errorf("userProfile: unsupported value %q", in.UserProfile)
	}
	return nil
}

func (in AnswerInput) Validate() error {
	if err := requireText("documentText", in.DocumentText); err != nil {
		return err
	}
	return requireText("userQuestion", in.Question)
}

func (in SimulateInput) Validate() error {
	if err := requireText("documentText", in.DocumentText); err != nil {
		return err
	}
	return requireText("scenario", in.Scenario)
}
