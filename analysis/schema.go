package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xeipuuv/gojsonschema"

	"nomiko-backend/models"
)

// Property describes one node of a capability's output shape. The same tree
// is rendered as a JSON Schema for validation and as a genai.Schema for the
// model's structured output.
type Property struct {
	Type        string
	Description string
	Enum        []string
	Properties  map[string]*Property
	Required    []string
	Items       *Property
	MinLength   int
	MinItems    int
	// MustBeTrue restricts a boolean to the literal true.
	MustBeTrue bool
}

// JSONSchema renders the property as a JSON Schema document fragment
func (p *Property) JSONSchema() map[string]interface{} {
	out := map[string]interface{}{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		enum := make([]interface{}, len(p.Enum))
		for i, v := range p.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	if p.MustBeTrue {
		out["enum"] = []interface{}{true}
	}
	if p.MinLength > 0 {
		out["minLength"] = p.MinLength
	}
	if p.MinItems > 0 {
		out["minItems"] = p.MinItems
	}
	if p.Items != nil {
		out["items"] = p.Items.JSONSchema()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]interface{}, len(p.Properties))
		for name, child := range p.Properties {
			props[name] = child.JSONSchema()
		}
		out["properties"] = props
	}
	if len(p.Required) > 0 {
		required := make([]interface{}, len(p.Required))
		for i, v := range p.Required {
			required[i] = v
		}
		out["required"] = required
	}
	return out
}

// Genai renders the property as a Gemini response schema
func (p *Property) Genai() *genai.Schema {
	s := &genai.Schema{
		Type:        genaiType(p.Type),
		Description: p.Description,
		Enum:        p.Enum,
		Required:    p.Required,
	}
	if p.Items != nil {
		s.Items = p.Items.Genai()
	}
	if len(p.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(p.Properties))
		for name, child := range p.Properties {
			s.Properties[name] = child.Genai()
		}
	}
	return s
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}

// OutputSchema is a compiled output contract for one capability
type OutputSchema struct {
	root     *Property
	compiled *gojsonschema.Schema
}

// NewOutputSchema compiles root for validation
func NewOutputSchema(root *Property) (*OutputSchema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(root.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &OutputSchema{root: root, compiled: compiled}, nil
}

// Root returns the property tree
func (s *OutputSchema) Root() *Property {
	return s.root
}

// Validate checks raw model output against the schema. Malformed JSON and
// schema violations are both reported as errors.
func (s *OutputSchema) Validate(raw []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		sort.Strings(msgs)
		return fmt.Errorf("output does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func str(description string) *Property {
	return &Property{Type: "string", Description: description, MinLength: 1}
}

var riskAssessmentProperty = &Property{
	Type:        "object",
	Description: "The risk assessment for the clause. Omit entirely when the clause is standard.",
	Properties: map[string]*Property{
		"isRisky": {Type: "boolean", Description: "Always true when present.", MustBeTrue: true},
		"riskScore": {
			Type:        "string",
			Description: "Low (standard), Medium (unfavorable but negotiable), High (high risk / predatory).",
			Enum:        models.RiskLevelNames,
		},
		"rationale": str("A brief explanation of the risk."),
	},
	Required: []string{"isRisky", "riskScore", "rationale"},
}

// outputProperties declares the expected output of every capability
var outputProperties = map[models.Capability]*Property{
	models.CapabilitySegment: {
		Type:        "array",
		Description: "Every clause of the document, in document order.",
		MinItems:    1,
		Items: &Property{
			Type: "object",
			Properties: map[string]*Property{
				"id":             str("A unique identifier for the clause."),
				"clauseText":     str("The full, original text of the clause."),
				"riskAssessment": riskAssessmentProperty,
			},
			Required: []string{"id", "clauseText"},
		},
	},
	models.CapabilitySummarize: {
		Type: "object",
		Properties: map[string]*Property{
			"summary": str("The plain language summary of the clause."),
		},
		Required: []string{"summary"},
	},
	models.CapabilityStandards: {
		Type: "object",
		Properties: map[string]*Property{
			"comparison": str("A comparison of the clause to regional and industry standards."),
			"isStandard": {Type: "boolean", Description: "Whether the clause is standard for the document type and jurisdiction."},
			"rationale":  str("Why the clause is or is not considered standard."),
		},
		Required: []string{"comparison", "isStandard", "rationale"},
	},
	models.CapabilityNegotiate: {
		Type: "object",
		Properties: map[string]*Property{
			"negotiationSuggestions": {
				Type:        "array",
				Description: "Specific suggestions for negotiating a more favorable term.",
				Items:       str("One negotiation suggestion."),
			},
			"rationale": str("Why these suggestions benefit the user."),
		},
		Required: []string{"negotiationSuggestions", "rationale"},
	},
	models.CapabilityAnswer: {
		Type: "object",
		Properties: map[string]*Property{
			"answer": str("The answer to the user's question, grounded in the document."),
		},
		Required: []string{"answer"},
	},
	models.CapabilitySimulate: {
		Type: "object",
		Properties: map[string]*Property{
			"outcome": str("The predicted outcome of the scenario under the document's terms."),
			"riskLevel": {
				Type:        "string",
				Description: "How unfavorable the outcome is for the user.",
				Enum:        models.RiskLevelNames,
			},
			"rationale": str("The reasoning behind the predicted outcome."),
		},
		Required: []string{"outcome", "riskLevel", "rationale"},
	},
}

// Schemas holds the compiled output schema of every capability
type Schemas map[models.Capability]*OutputSchema

// CompileSchemas compiles the output schema of every capability
func CompileSchemas() (Schemas, error) {
	schemas := make(Schemas, len(outputProperties))
	for capability, root := range outputProperties {
		compiled, err := NewOutputSchema(root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", capability, err)
		}
		schemas[capability] = compiled
	}
	return schemas, nil
}
