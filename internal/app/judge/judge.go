// Package judge isolates the external code-evaluation service behind a
// small interface, so the rest of the pipeline never deals with prompt
// construction or response parsing. The current implementation asks a
// generative model to act as the executor; swapping in a real sandboxed
// runner only requires another Client implementation.
package judge

import (
	"context"

	"codearena/internal/domain/model"
)

// EvaluationRequest carries everything the judge needs to grade one
// submission. TestCases keep the order they were fetched in; the caller
// pairs results back by position.
type EvaluationRequest struct {
	ProblemTitle       string
	ProblemDescription string
	Code               string
	Language           string
	TestCases          []model.TestCase
}

// TestResult is a single per-test-case outcome as reported by the
// judge, before it is reconciled against the stored test cases.
type TestResult struct {
	ActualOutput string  `json:"actualOutput"`
	Matches      bool    `json:"matches"`
	Error        *string `json:"error"`
}

// EvaluationResult is the judge's parsed structured response.
type EvaluationResult struct {
	LanguageMatch    bool         `json:"languageMatch"`
	DetectedLanguage string       `json:"detectedLanguage"`
	Results          []TestResult `json:"results"`
	Status           string       `json:"status"`
	Suggestion       string       `json:"suggestion"`
	DetailedStatus   string       `json:"detailedStatus"`
}

type Client interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error)
}
