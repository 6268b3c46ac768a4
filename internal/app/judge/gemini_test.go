package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() EvaluationRequest {
	return EvaluationRequest{
		ProblemTitle:       "Two Sum",
		ProblemDescription: "Return indices of the two numbers that add up to the target.",
		Code:               "def two_sum(nums, target): ...",
		Language:           "python",
		TestCases: []model.TestCase{
			{ID: "tc1", Input: "[2,7,11,15], target=9", ExpectedOutput: "[0,1]"},
			{ID: "tc2", Input: "[3,2,4], target=6", ExpectedOutput: "[1,2]"},
		},
	}
}

func verdictEnvelope(t *testing.T, verdict EvaluationResult) []byte {
	t.Helper()
	text, err := json.Marshal(verdict)
	require.NoError(t, err)

	resp := geminiResponse{Candidates: []geminiCandidate{
		{Content: geminiContent{Parts: []geminiPart{{Text: string(text)}}}},
	}}

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return body
}

func TestGeminiEvaluateParsesVerdict(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		gotPrompt = req.Contents[0].Parts[0].Text
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		w.Write(verdictEnvelope(t, EvaluationResult{
			LanguageMatch:    true,
			DetectedLanguage: "python",
			Results: []TestResult{
				{ActualOutput: "[0,1]", Matches: true},
				{ActualOutput: "[1,2]", Matches: true},
			},
			Status:         "Accepted",
			Suggestion:     "Looks good.",
			DetailedStatus: "All test cases passed.",
		}))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-1.5-flash", time.Second, WithBaseURL(server.URL))
	result, err := client.Evaluate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.True(t, result.LanguageMatch)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Matches)
	assert.Equal(t, "Accepted", result.Status)

	// The prompt must carry everything the judge needs.
	assert.Contains(t, gotPrompt, "Two Sum")
	assert.Contains(t, gotPrompt, "Declared Language: python")
	assert.Contains(t, gotPrompt, "def two_sum")
	assert.Contains(t, gotPrompt, "Test Case 1:")
	assert.Contains(t, gotPrompt, "Test Case 2:")
	assert.Contains(t, gotPrompt, "[2,7,11,15], target=9")
	assert.Contains(t, gotPrompt, "Expected Output: [1,2]")
}

func TestGeminiPromptDeterministic(t *testing.T) {
	req := sampleRequest()
	assert.Equal(t, buildPrompt(req), buildPrompt(req))
}

func TestGeminiEvaluateMalformedVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{Candidates: []geminiCandidate{
			{Content: geminiContent{Parts: []geminiPart{{Text: "this is not json"}}}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-1.5-flash", time.Second, WithBaseURL(server.URL))
	_, err := client.Evaluate(context.Background(), sampleRequest())
	require.ErrorIs(t, err, common.ErrJudgeMalformed)
}

func TestGeminiEvaluateEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-1.5-flash", time.Second, WithBaseURL(server.URL))
	_, err := client.Evaluate(context.Background(), sampleRequest())
	require.ErrorIs(t, err, common.ErrJudgeMalformed)
}

func TestGeminiEvaluateNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-1.5-flash", time.Second, WithBaseURL(server.URL))
	_, err := client.Evaluate(context.Background(), sampleRequest())
	require.ErrorIs(t, err, common.ErrJudgeUnavailable)
}

func TestGeminiEvaluateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "gemini-1.5-flash", 20*time.Millisecond, WithBaseURL(server.URL))
	_, err := client.Evaluate(context.Background(), sampleRequest())
	require.ErrorIs(t, err, common.ErrJudgeUnavailable)
}
