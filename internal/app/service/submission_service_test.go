package service

import (
	"context"
	"testing"
	"time"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProblemRepo struct {
	repository.ProblemRepository
	problem   *model.Problem
	testCases []model.TestCase
}

func (f *fakeProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	if f.problem == nil || f.problem.ID != id {
		return nil, common.ErrNotFound
	}
	return f.problem, nil
}

func (f *fakeProblemRepo) GetTestCases(_ context.Context, _ string) ([]model.TestCase, error) {
	return f.testCases, nil
}

type fakeSubmissionRepo struct {
	repository.SubmissionRepository
	created []*model.Submission
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, sub *model.Submission) error {
	sub.CreatedAt = time.Now()
	f.created = append(f.created, sub)
	return nil
}

type fakeJudge struct {
	result *judge.EvaluationResult
	err    error
	calls  int
}

func (f *fakeJudge) Evaluate(_ context.Context, _ judge.EvaluationRequest) (*judge.EvaluationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func twoSumProblem() (*model.Problem, []model.TestCase) {
	problem := &model.Problem{
		ID:          "p1",
		Title:       "Two Sum",
		Description: "Given an array of integers and a target, return indices of the two numbers that add up to the target.",
	}
	testCases := []model.TestCase{
		{ID: "tc1", ProblemID: "p1", Input: "[2,7,11,15], target=9", ExpectedOutput: "[0,1]", IsPublic: true, SortOrder: 1},
	}
	return problem, testCases
}

func newTestService(t *testing.T, j judge.Client, ttl time.Duration) (*SubmissionService, *fakeSubmissionRepo, *cache.MemoryVerdictCache) {
	t.Helper()
	problem, testCases := twoSumProblem()
	probRepo := &fakeProblemRepo{problem: problem, testCases: testCases}
	subRepo := &fakeSubmissionRepo{}
	verdictCache := cache.NewMemoryVerdictCache(ttl, time.Minute)
	t.Cleanup(verdictCache.Stop)
	return NewSubmissionService(subRepo, probRepo, j, verdictCache), subRepo, verdictCache
}

func acceptedResult() *judge.EvaluationResult {
	return &judge.EvaluationResult{
		LanguageMatch:    true,
		DetectedLanguage: "python",
		Results:          []judge.TestResult{{ActualOutput: "[0,1]", Matches: true, Error: nil}},
		Status:           "Accepted",
		Suggestion:       "Consider using a hash map for O(n) time.",
		DetailedStatus:   "All test cases passed.",
	}
}

func TestEvaluateEmptyCode(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	for _, code := range []string{"", "   ", "\n\t  \n"} {
		outcome, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
			ProblemID: "p1", Code: code, Language: "python",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeEmptyCode, outcome.Kind)
	}

	assert.Zero(t, j.calls, "empty code must never reach the judge")
	assert.Empty(t, subRepo.created, "empty code must not be persisted")
}

func TestEvaluateMissingIdentity(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	_, err := svc.Evaluate(context.Background(), "", EvaluateRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Zero(t, j.calls)
	assert.Empty(t, subRepo.created)
}

func TestEvaluateProblemNotFound(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	_, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "missing", Code: "print(1)", Language: "python",
	})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, j.calls)
	assert.Empty(t, subRepo.created)
}

func TestEvaluateAccepted(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	outcome, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "def two_sum(nums, target): ...", Language: "python",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeGraded, outcome.Kind)
	require.NotNil(t, outcome.Verdict)
	assert.Equal(t, model.StatusAccepted, outcome.Verdict.Status)
	require.Len(t, outcome.Verdict.Results, 1)
	assert.True(t, outcome.Verdict.Results[0].Matches)
	assert.Equal(t, "[0,1]", outcome.Verdict.Results[0].ActualOutput)
	assert.Equal(t, "tc1", outcome.Verdict.Results[0].TestCaseID)

	require.Len(t, subRepo.created, 1)
	assert.Equal(t, model.StatusAccepted, subRepo.created[0].Status)
	assert.Equal(t, outcome.SubmissionID, subRepo.created[0].ID)
}

func TestEvaluateFailedWhenAnyMismatch(t *testing.T) {
	problem := &model.Problem{ID: "p1", Title: "Two Sum", Description: "desc"}
	testCases := []model.TestCase{
		{ID: "tc1", Input: "a", ExpectedOutput: "1", SortOrder: 1},
		{ID: "tc2", Input: "b", ExpectedOutput: "2", SortOrder: 2},
		{ID: "tc3", Input: "c", ExpectedOutput: "3", SortOrder: 3},
	}
	j := &fakeJudge{result: &judge.EvaluationResult{
		LanguageMatch: true,
		Results: []judge.TestResult{
			{ActualOutput: "1", Matches: true},
			{ActualOutput: "99", Matches: false},
			{ActualOutput: "3", Matches: true},
		},
		Status:         "Failed",
		Suggestion:     "Check the second case.",
		DetailedStatus: "1 of 3 test cases failed.",
	}}
	probRepo := &fakeProblemRepo{problem: problem, testCases: testCases}
	subRepo := &fakeSubmissionRepo{}
	verdictCache := cache.NewMemoryVerdictCache(time.Minute, time.Minute)
	t.Cleanup(verdictCache.Stop)
	svc := NewSubmissionService(subRepo, probRepo, j, verdictCache)

	outcome, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "code", Language: "python",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, outcome.Verdict.Status)

	// Results are paired to stored test cases strictly by position.
	require.Len(t, outcome.Verdict.Results, 3)
	for i, want := range []string{"tc1", "tc2", "tc3"} {
		assert.Equal(t, want, outcome.Verdict.Results[i].TestCaseID)
		assert.Equal(t, testCases[i].Input, outcome.Verdict.Results[i].Input)
		assert.Equal(t, testCases[i].ExpectedOutput, outcome.Verdict.Results[i].ExpectedOutput)
	}
	assert.False(t, outcome.Verdict.Results[1].Matches)

	require.Len(t, subRepo.created, 1)
	assert.Equal(t, model.StatusFailed, subRepo.created[0].Status)
}

func TestEvaluateLanguageMismatch(t *testing.T) {
	j := &fakeJudge{result: &judge.EvaluationResult{
		LanguageMatch:    false,
		DetectedLanguage: "javascript",
	}}
	svc, subRepo, verdictCache := newTestService(t, j, time.Minute)

	outcome, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "const x = 1;", Language: "python",
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLanguageMismatch, outcome.Kind)
	assert.Equal(t, "python", outcome.SpecifiedLanguage)
	assert.Equal(t, "javascript", outcome.ActualLanguage)
	assert.Nil(t, outcome.Verdict, "mismatch must not return graded results")

	require.Len(t, subRepo.created, 1)
	assert.Equal(t, model.StatusRejected, subRepo.created[0].Status)

	key := cache.Fingerprint("p1", "python", "const x = 1;")
	_, hit, err := verdictCache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, hit, "mismatch outcomes are not cached")
}

func TestEvaluateCacheHit(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	req := EvaluateRequest{ProblemID: "p1", Code: "print(1)", Language: "python"}
	for i := 0; i < 2; i++ {
		outcome, err := svc.Evaluate(context.Background(), "u1", req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAccepted, outcome.Verdict.Status)
		assert.Equal(t, "Consider using a hash map for O(n) time.", outcome.Verdict.Suggestion)
	}

	assert.Equal(t, 1, j.calls, "identical resubmission within TTL must not re-invoke the judge")
	// Each evaluation still persists its own submission row.
	assert.Len(t, subRepo.created, 2)
}

func TestEvaluateCacheExpiry(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, _, _ := newTestService(t, j, 30*time.Millisecond)

	req := EvaluateRequest{ProblemID: "p1", Code: "print(1)", Language: "python"}

	_, err := svc.Evaluate(context.Background(), "u1", req)
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, 1, j.calls)

	time.Sleep(50 * time.Millisecond)

	_, err = svc.Evaluate(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, 2, j.calls, "expired entry must be recomputed")
}

func TestEvaluateCodeChangeIsCacheMiss(t *testing.T) {
	j := &fakeJudge{result: acceptedResult()}
	svc, _, _ := newTestService(t, j, time.Minute)

	_, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "print(2)", Language: "python",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, j.calls)
}

func TestEvaluateJudgeUnavailable(t *testing.T) {
	j := &fakeJudge{err: common.Errorf("%w: connection timed out", common.ErrJudgeUnavailable)}
	svc, subRepo, verdictCache := newTestService(t, j, time.Minute)

	_, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	require.ErrorIs(t, err, common.ErrJudgeUnavailable)

	assert.Empty(t, subRepo.created, "judge failure must not persist a submission")
	key := cache.Fingerprint("p1", "python", "print(1)")
	_, hit, cacheErr := verdictCache.Get(context.Background(), key)
	require.NoError(t, cacheErr)
	assert.False(t, hit, "judge failure must not write to the cache")
}

func TestEvaluateResultCountMismatch(t *testing.T) {
	result := acceptedResult()
	result.Results = append(result.Results, judge.TestResult{ActualOutput: "extra", Matches: true})
	j := &fakeJudge{result: result}
	svc, subRepo, _ := newTestService(t, j, time.Minute)

	_, err := svc.Evaluate(context.Background(), "u1", EvaluateRequest{
		ProblemID: "p1", Code: "print(1)", Language: "python",
	})
	require.ErrorIs(t, err, common.ErrJudgeMalformed)
	assert.Empty(t, subRepo.created)
}
