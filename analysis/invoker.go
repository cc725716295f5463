package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nomiko-backend/llm"
	"nomiko-backend/metrics"
	"nomiko-backend/models"
)

// IDGenerator supplies clause identifiers that are unique within a session
type IDGenerator func() string

// Invoker sends one capability request to the model and validates the reply
type Invoker struct {
	transport llm.Transport
	schemas   Schemas
	newID     IDGenerator
	logger    *zap.Logger
}

// InvokerOption is a functional option for Invoker
type InvokerOption func(*Invoker)

// WithTransport sets the model-calling transport
func WithTransport(t llm.Transport) InvokerOption {
	return func(i *Invoker) {
		i.transport = t
	}
}

// WithIDGenerator sets the clause identifier source
func WithIDGenerator(gen IDGenerator) InvokerOption {
	return func(i *Invoker) {
		i.newID = gen
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// NewInvoker creates a new invoker with compiled output schemas
func NewInvoker(opts ...InvokerOption) (*Invoker, error) {
	schemas, err := CompileSchemas()
	if err != nil {
		return nil, err
	}

	i := &Invoker{
		schemas: schemas,
		newID:   uuid.NewString,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.transport == nil {
		return nil, errors.New("transport not set")
	}
	return i, nil
}

// Invoke performs exactly one model call for in and returns the validated
// result. Every failure is returned as *Error.
func (i *Invoker) Invoke(ctx context.Context, in Input) (models.AnalysisResult, error) {
	capability := in.Capability()
	log := i.logger.With(zap.String("capability", string(capability)))

	if err := in.Validate(); err != nil {
		metrics.CapabilityInvocations.WithLabelValues(string(capability), metrics.OutcomeInputError).Inc()
		return nil, &Error{Capability: capability, Kind: KindInput, Err: err}
	}

	schema, ok := i.schemas[capability]
	if !ok {
		return nil, &Error{Capability: capability, Kind: KindInput, Err: errors.New("unknown capability")}
	}

	start := time.Now()
	raw, err := i.transport.Generate(ctx, llm.Request{
		Capability: string(capability),
		Prompt:     in.Prompt(),
		Schema:     schema.Root().Genai(),
	})
	metrics.CapabilityDuration.WithLabelValues(string(capability)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("model call failed", zap.Error(err))
		metrics.CapabilityInvocations.WithLabelValues(string(capability), metrics.OutcomeTransportError).Inc()
		return nil, &Error{Capability: capability, Kind: KindTransport, Err: err}
	}

	result, err := i.decode(capability, schema, []byte(raw))
	if err != nil {
		log.Warn("model output rejected", zap.Error(err), zap.Int("bytes", len(raw)))
		metrics.CapabilityInvocations.WithLabelValues(string(capability), metrics.OutcomeValidationError).Inc()
		return nil, &Error{Capability: capability, Kind: KindValidation, Err: err}
	}

	metrics.CapabilityInvocations.WithLabelValues(string(capability), metrics.OutcomeSuccess).Inc()
	log.Debug("capability completed", zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (i *Invoker) decode(capability models.Capability, schema *OutputSchema, raw []byte) (models.AnalysisResult, error) {
	if err := schema.Validate(raw); err != nil {
		return nil, err
	}

	switch capability {
	case models.CapabilitySegment:
		var wire []wireClause
		if err := decodeInto(capability, raw, &wire); err != nil {
			return nil, err
		}
		// Model ids are only a labelling aid; identity comes from the generator.
		clauses := make([]models.Clause, len(wire))
		for idx, w := range wire {
			clauses[idx] = w.clause(i.newID())
		}
		return &models.Segmentation{Clauses: clauses}, nil
	case models.CapabilitySummarize:
		var w wireSummary
		if err := decodeInto(capability, raw, &w); err != nil {
			return nil, err
		}
		return &models.Summary{Summary: w.Summary}, nil
	case models.CapabilityStandards:
		var w wireStandards
		if err := decodeInto(capability, raw, &w); err != nil {
			return nil, err
		}
		return &models.StandardsComparison{Comparison: w.Comparison, IsStandard: w.IsStandard, Rationale: w.Rationale}, nil
	case models.CapabilityNegotiate:
		var w wireNegotiation
		if err := decodeInto(capability, raw, &w); err != nil {
			return nil, err
		}
		return &models.NegotiationAdvice{Suggestions: w.Suggestions, Rationale: w.Rationale}, nil
	case models.CapabilityAnswer:
		var w wireAnswer
		if err := decodeInto(capability, raw, &w); err != nil {
			return nil, err
		}
		return &models.Answer{Answer: w.Answer}, nil
	case models.CapabilitySimulate:
		var w wireScenario
		if err := decodeInto(capability, raw, &w); err != nil {
			return nil, err
		}
		return &models.ScenarioOutcome{Outcome: w.Outcome, RiskLevel: w.RiskLevel, Rationale: w.Rationale}, nil
	}
	return nil, fmt.Errorf("unknown capability %q", capability)
}

func decodeInto(capability models.Capability, raw []byte, target interface{}) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", capability, err)
	}
	return nil
}

// SegmentAndFlag splits the whole document into clauses in a single call
func (i *Invoker) SegmentAndFlag(ctx context.Context, doc models.Document) ([]models.Clause, error) {
	result, err := i.Invoke(ctx, SegmentInput{Document: doc})
	if err != nil {
		return nil, err
	}
	return result.(*models.Segmentation).Clauses, nil
}

// Summarize restates one clause in plain language
func (i *Invoker) Summarize(ctx context.Context, clauseText string) (*models.Summary, error) {
	result, err := i.Invoke(ctx, SummarizeInput{ClauseText: clauseText})
	if err != nil {
		return nil, err
	}
	return result.(*models.Summary), nil
}

// CompareToStandards compares one clause to regional and industry standards
func (i *Invoker) CompareToStandards(ctx context.Context, in StandardsInput) (*models.StandardsComparison, error) {
	result, err := i.Invoke(ctx, in)
	if err != nil {
		return nil, err
	}
	return result.(*models.StandardsComparison), nil
}

// SuggestNegotiations proposes negotiation points for one clause
func (i *Invoker) SuggestNegotiations(ctx context.Context, in NegotiateInput) (*models.NegotiationAdvice, error) {
	result, err := i.Invoke(ctx, in)
	if err != nil {
		return nil, err
	}
	return result.(*models.NegotiationAdvice), nil
}

// AnswerQuestion answers a free-form question about the whole document
func (i *Invoker) AnswerQuestion(ctx context.Context, documentText, question string) (*models.Answer, error) {
	result, err := i.Invoke(ctx, AnswerInput{DocumentText: documentText, Question: question})
	if err != nil {
		return nil, err
	}
	return result.(*models.Answer), nil
}

// SimulateScenario predicts the outcome of a hypothetical situation
func (i *Invoker) SimulateScenario(ctx context.Context, documentText, scenario string) (*models.ScenarioOutcome, error) {
	result, err := i.Invoke(ctx, SimulateInput{DocumentText: documentText, Scenario: scenario})
	if err != nil {
		return nil, err
	}
	return result.(*models.ScenarioOutcome), nil
}
