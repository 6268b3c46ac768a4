package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codearena/internal/common"

	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient evaluates submissions through the Gemini generateContent
// API, forcing a JSON response so every field can be extracted without
// ambiguity.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(url, "/") }
}

func NewGeminiClient(apiKey, model string, timeout time.Duration, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request/response shapes for the generateContent endpoint.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

func (c *GeminiClient) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	prompt := buildPrompt(req)

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.ResponseMimeType = "application/json"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal judge request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Timeouts, DNS failures, refused connections: the judge is
		// unreachable, never a grading outcome.
		log.WithField("model", c.model).Errorf("Judge call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", common.ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", common.ErrJudgeUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{"model": c.model, "status": resp.StatusCode}).
			Error("Judge returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", common.ErrJudgeUnavailable, resp.StatusCode)
	}

	var genResp geminiResponse
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", common.ErrJudgeMalformed, err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty candidates", common.ErrJudgeMalformed)
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	var result EvaluationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		log.WithField("model", c.model).Errorf("Failed to parse judge verdict: %v", err)
		return nil, fmt.Errorf("%w: decoding verdict: %v", common.ErrJudgeMalformed, err)
	}
	return &result, nil
}

// buildPrompt renders the evaluation instructions deterministically:
// identical requests yield byte-identical prompts, which is what makes
// the fingerprint cache sound.
func buildPrompt(req EvaluationRequest) string {
	var b strings.Builder

	b.WriteString("You are a code execution and validation system. Analyze the following code for the given problem and execute it against every test case, comparing actual outputs to expected outputs.\n\n")
	fmt.Fprintf(&b, "Problem Title: %s\n", req.ProblemTitle)
	fmt.Fprintf(&b, "Problem Description: %s\n\n", req.ProblemDescription)
	fmt.Fprintf(&b, "Declared Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Code:\n%s\n\n", req.Code)

	b.WriteString("Test Cases:\n")
	for i, tc := range req.TestCases {
		fmt.Fprintf(&b, "Test Case %d:\nInput: %s\nExpected Output: %s\n\n", i+1, tc.Input, tc.ExpectedOutput)
	}

	b.WriteString(`First, verify that the code is actually written in the declared language. If it is not, set "languageMatch" to false, set "detectedLanguage" to the language the code is really written in, and leave "results" empty.

If the language matches, for each test case in order report:
1. the actual output produced by the code,
2. whether it exactly matches the expected output (true/false),
3. any execution error, or null if none.

Also report an aggregate "status" ("Accepted" if every test case matches, otherwise "Failed"), a short "suggestion" for improving the code, and a human-readable "detailedStatus" describing the outcome.

Respond with JSON only, in exactly this shape:
{
  "languageMatch": true,
  "detectedLanguage": "the detected language",
  "results": [
    {"actualOutput": "output produced by the code", "matches": true, "error": null}
  ],
  "status": "Accepted",
  "suggestion": "a short improvement suggestion",
  "detailedStatus": "a detailed human-readable status"
}
`)
	return b.String()
}
