package models

import (
	"fmt"
	"strings"
)

// DocumentType represents the category of a submitted contract
type DocumentType string

const (
	DocumentTypeRental  DocumentType = "rental"
	DocumentTypeLoan    DocumentType = "loan"
	DocumentTypeService DocumentType = "service"
	DocumentTypeTOS     DocumentType = "tos"
)

// UserProfile represents the role of the person reviewing the contract
type UserProfile string

const (
	ProfileTenant        UserProfile = "tenant"
	ProfileFreelancer    UserProfile = "freelancer"
	ProfileBusinessOwner UserProfile = "business-owner"
	ProfileConsumer      UserProfile = "consumer"
)

var documentTypeLabels = map[DocumentType]string{
	DocumentTypeRental:  "Rental Agreement",
	DocumentTypeLoan:    "Loan Agreement",
	DocumentTypeService: "Service Agreement",
	DocumentTypeTOS:     "Terms of Service",
}

var profileLabels = map[UserProfile]string{
	ProfileTenant:        "Tenant",
	ProfileFreelancer:    "Freelancer",
	ProfileBusinessOwner: "Small Business Owner",
	ProfileConsumer:      "Consumer",
}

// Valid reports whether t is one of the supported document types
func (t DocumentType) Valid() bool {
	_, ok := documentTypeLabels[t]
	return ok
}

// Label returns the human-readable name used in prompts
func (t DocumentType) Label() string {
	if label, ok := documentTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether p is one of the supported user profiles
func (p UserProfile) Valid() bool {
	_, ok := profileLabels[p]
	return ok
}

// Label returns the human-readable name used in prompts
func (p UserProfile) Label() string {
	if label, ok := profileLabels[p]; ok {
		return label
	}
	return string(p)
}

// Document is the contract submitted for analysis. It is immutable once a
// session has started.
type Document struct {
	Text         string       `json:"text"`
	DocumentType DocumentType `json:"document_type"`
	UserProfile  UserProfile  `json:"user_profile"`
	Jurisdiction string       `json:"jurisdiction,omitempty"`
}

// Validate checks the submission form fields
func (d Document) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("document text is required")
	}
	if !d.DocumentType.Valid() {
		return fmt.Errorf("unsupported document type: %q", d.DocumentType)
	}
	if !d.UserProfile.Valid() {
		return fmt.Errorf("unsupported user profile: %q", d.UserProfile)
	}
	return nil
}
