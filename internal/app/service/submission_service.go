package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/app/judge"
	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/cache"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SubmissionService orchestrates evaluation: validate the submission,
// consult the verdict cache, call the judge on a miss, reconcile the
// judge's results against the stored test cases, persist the graded
// submission and hand the verdict back to the caller.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	judgeClient    judge.Client
	verdictCache   cache.VerdictCache
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	judgeClient judge.Client,
	verdictCache cache.VerdictCache,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		judgeClient:    judgeClient,
		verdictCache:   verdictCache,
	}
}

type OutcomeKind string

const (
	OutcomeGraded           OutcomeKind = "graded"
	OutcomeLanguageMismatch OutcomeKind = "language_mismatch"
	OutcomeEmptyCode        OutcomeKind = "empty_code"
)

// EvaluationOutcome is what a completed evaluation hands back to the
// HTTP boundary. LanguageMismatch and a failed grading are successful
// pipeline completions, not errors.
type EvaluationOutcome struct {
	Kind         OutcomeKind
	SubmissionID string
	Verdict      *model.Verdict

	// Set only for OutcomeLanguageMismatch.
	SpecifiedLanguage string
	ActualLanguage    string
}

type EvaluateRequest struct {
	ProblemID string `json:"problem_id" validate:"required"`
	Code      string `json:"code"`
	Language  string `json:"language" validate:"required"`
}

// Evaluate runs one submission through the full pipeline. Empty code
// and a missing user identity are rejected before any external call
// and before persistence; a judge failure surfaces as an error with no
// cache write and no submission row.
func (s *SubmissionService) Evaluate(ctx context.Context, userID string, req EvaluateRequest) (*EvaluationOutcome, error) {
	if userID == "" {
		return nil, common.Errorf("missing user identity: %w", common.ErrForbidden)
	}
	if strings.TrimSpace(req.Code) == "" {
		// Must never reach the judge.
		return &EvaluationOutcome{Kind: OutcomeEmptyCode}, nil
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("problem not found: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch problem: %w", err)
	}

	testCases, err := s.problemRepo.GetTestCases(ctx, problem.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch test cases: %w", err)
	}
	if len(testCases) == 0 {
		return nil, common.Errorf("problem has no test cases: %w", common.ErrInternalServer)
	}

	key := cache.Fingerprint(problem.ID, req.Language, req.Code)

	verdict, hit, err := s.verdictCache.Get(ctx, key)
	if err != nil {
		// A broken cache must not take evaluation down with it.
		log.WithFields(log.Fields{"problem_id": problem.ID, "language": req.Language}).
			Warnf("Verdict cache lookup failed: %v", err)
		hit = false
	}

	if !hit {
		log.WithFields(log.Fields{"problem_id": problem.ID, "language": req.Language}).
			Info("Cache miss, invoking judge")

		result, err := s.judgeClient.Evaluate(ctx, judge.EvaluationRequest{
			ProblemTitle:       problem.Title,
			ProblemDescription: problem.Description,
			Code:               req.Code,
			Language:           req.Language,
			TestCases:          testCases,
		})
		if err != nil {
			// No verdict is fabricated, nothing is cached or persisted.
			return nil, err
		}

		if !result.LanguageMatch {
			return s.recordLanguageMismatch(ctx, userID, problem.ID, req, result)
		}

		verdict, err = reconcile(result, testCases)
		if err != nil {
			return nil, err
		}

		if cacheErr := s.verdictCache.Set(ctx, key, verdict); cacheErr != nil {
			log.WithField("problem_id", problem.ID).
				Warnf("Failed to cache verdict: %v", cacheErr)
		}
	} else {
		log.WithFields(log.Fields{"problem_id": problem.ID, "language": req.Language}).
			Info("Cache hit, reusing verdict")
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problem.ID,
		Code:      req.Code,
		Language:  req.Language,
		Status:    verdict.Status,
	}
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	log.WithFields(log.Fields{"submission_id": submission.ID, "status": submission.Status}).
		Info("Submission graded")

	return &EvaluationOutcome{
		Kind:         OutcomeGraded,
		SubmissionID: submission.ID,
		Verdict:      verdict,
	}, nil
}

// recordLanguageMismatch persists the submission as Rejected and
// reports the mismatch without any graded results. Mismatch verdicts
// are never cached: they carry no per-test-case result list.
func (s *SubmissionService) recordLanguageMismatch(ctx context.Context, userID, problemID string, req EvaluateRequest, result *judge.EvaluationResult) (*EvaluationOutcome, error) {
	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problemID,
		Code:      req.Code,
		Language:  req.Language,
		Status:    model.StatusRejected,
	}
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	log.WithFields(log.Fields{
		"submission_id": submission.ID,
		"specified":     req.Language,
		"detected":      result.DetectedLanguage,
	}).Info("Language mismatch")

	return &EvaluationOutcome{
		Kind:              OutcomeLanguageMismatch,
		SubmissionID:      submission.ID,
		SpecifiedLanguage: req.Language,
		ActualLanguage:    result.DetectedLanguage,
	}, nil
}

// reconcile pairs the judge's per-test-case results against the stored
// test cases strictly by position and recomputes the aggregate status
// from the match flags rather than trusting the judge's own aggregate.
func reconcile(result *judge.EvaluationResult, testCases []model.TestCase) (*model.Verdict, error) {
	if len(result.Results) != len(testCases) {
		return nil, fmt.Errorf("%w: judge returned %d results for %d test cases",
			common.ErrJudgeMalformed, len(result.Results), len(testCases))
	}

	verdict := &model.Verdict{
		Suggestion:     result.Suggestion,
		DetailedStatus: result.DetailedStatus,
		Results:        make([]model.TestCaseResult, 0, len(testCases)),
	}
	for i, tc := range testCases {
		jr := result.Results[i]
		verdict.Results = append(verdict.Results, model.TestCaseResult{
			TestCaseID:     tc.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   jr.ActualOutput,
			Matches:        jr.Matches,
			Error:          jr.Error,
		})
	}

	verdict.Status = model.StatusFailed
	if verdict.Passed() {
		verdict.Status = model.StatusAccepted
	}
	return verdict, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID, userID, userRole string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && userRole != model.RoleAdmin {
		return nil, common.Errorf("not the submission owner: %w", common.ErrForbidden)
	}
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, page, limit int) ([]model.Submission, int, error) {
	offset := (page - 1) * limit
	return s.submissionRepo.ListByUser(ctx, userID, limit, offset)
}

// GetDashboard returns the user's full submission history with problem
// titles, oldest first.
func (s *SubmissionService) GetDashboard(ctx context.Context, userID string) ([]model.Submission, error) {
	return s.submissionRepo.ListDashboard(ctx, userID)
}
