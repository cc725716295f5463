package analysis

import (
	"fmt"
	"strings"
)

const inferJurisdiction = "Not specified. Use your best judgement based on the content of the document."

func jurisdictionOrInfer(j string) string {
	if strings.TrimSpace(j) == "" {
		return inferJurisdiction
	}
	return j
}

func (in SegmentInput) Prompt() string {
	var context strings.Builder
	if in.Document.DocumentType != "" {
		context.WriteString(fmt.Sprintf("Document Type: %s\n", in.Document.DocumentType.Label()))
	}
	if in.Document.UserProfile != "" {
		context.WriteString(fmt.Sprintf("Reviewed On Behalf Of: %s\n", in.Document.UserProfile.Label()))
	}
	context.WriteString(fmt.Sprintf("Jurisdiction: %s\n", jurisdictionOrInfer(in.Document.Jurisdiction)))

	return fmt.Sprintf(`You are an expert legal analyst. Your first task is to act as an OCR/NER system. Read the following document text and split it into a structured list of every individual clause.

Once you have the list of clauses, your second task is to analyze each clause to identify if it is potentially unfavorable or poses a risk to the user.

%s
For each clause you identify from the document:
1. Generate a unique "id" for the clause (e.g., "clause-1", "clause-2").
2. Include the full, original text of the clause in the "clauseText" field.
3. If a clause is risky, add a "riskAssessment" object with:
   - "isRisky": true
   - "riskScore": "Low", "Medium", or "High"
   - "rationale": a brief explanation of the risk
4. If a clause is standard and not risky, DO NOT include the "riskAssessment" object.

Document Text:
%s

IMPORTANT: Your response MUST be a single, valid JSON array containing objects for every clause in the document, in document order. Do not include any text or formatting before or after the JSON array.`,
		context.String(),
		in.Document.Text,
	)
}

func (in SummarizeInput) Prompt() string {
	return fmt.Sprintf(`Summarize the following clause into plain language a non-lawyer can understand.

%s

Respond with a JSON object of the form {"summary": "..."}.`,
		in.ClauseText,
	)
}

func (in StandardsInput) Prompt() string {
	return fmt.Sprintf(`You are an expert legal analyst specializing in contract review.

You will compare the given clause to regional and industry standards for the specified document type and jurisdiction. If no jurisdiction is specified, use your best judgement based on the content of the clause.

Clause: %s
Document Type: %s
Jurisdiction: %s

Analyze the clause and provide a comparison to regional and industry standards, including whether it is considered standard or not, and a rationale for your analysis.

Consider factors such as deposit amounts, termination notice periods, liability limitations, and other relevant terms.

Respond with a JSON object with "comparison" (string), "isStandard" (boolean) and "rationale" (string).`,
		in.ClauseText,
		in.DocumentType.Label(),
		jurisdictionOrInfer(in.Jurisdiction),
	)
}

func (in NegotiateInput) Prompt() string {
	return fmt.Sprintf(`You are an expert contract negotiator. Based on the contract clause, document type, user profile, and jurisdiction provided, suggest specific negotiation points and explain the rationale behind them.

Clause Text: %s
Document Type: %s
User Profile: %s
Jurisdiction: %s

Provide a list of negotiation suggestions and a rationale explaining why these suggestions are beneficial for the user.
Format the output as a JSON object with "negotiationSuggestions" (an array of strings) and "rationale" (a string).`,
		in.ClauseText,
		in.DocumentType.Label(),
		in.UserProfile.Label(),
		jurisdictionOrInfer(in.Jurisdiction),
	)
}

func (in AnswerInput) Prompt() string {
	return fmt.Sprintf(`You are a helpful legal assistant. Answer the user's question using only the document below. If the document does not address the question, say so plainly.

Document Text:
%s

Question: %s

Respond with a JSON object of the form {"answer": "..."}.`,
		in.DocumentText,
		in.Question,
	)
}

func (in SimulateInput) Prompt() string {
	return fmt.Sprintf(`You are an expert legal analyst. Simulate the following "what if" scenario against the terms of the document below and predict the likely outcome for the user.

Document Text:
%s

Scenario: %s

Respond with a JSON object with "outcome" (string), "riskLevel" ("Low", "Medium", or "High") and "rationale" (string).`,
		in.DocumentText,
		in.Scenario,
	)
}
