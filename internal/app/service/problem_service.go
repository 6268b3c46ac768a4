package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	db          *sql.DB // For transactions
}

func NewProblemService(problemRepo repository.ProblemRepository, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, db: db}
}

type TestCaseInput struct {
	Input          string `json:"input" validate:"required"`
	ExpectedOutput string `json:"expected_output" validate:"required"`
	IsPublic       bool   `json:"is_public"`
}

type CreateProblemRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Difficulty  string          `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	TestCases   []TestCaseInput `json:"test_cases" validate:"required,min=1,dive"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, creatorID string, req CreateProblemRequest) (*model.Problem, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  model.ProblemDifficulty(req.Difficulty),
		CreatorID:   &creatorID,
	}

	testCases := make([]model.TestCase, 0, len(req.TestCases))
	for _, tc := range req.TestCases {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problem.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			IsPublic:       tc.IsPublic,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddTestCases(ctx, tx, problem.ID, testCases); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{"problem_id": problem.ID, "creator_id": creatorID}).
		Info("Problem created")
	problem.TestCases = testCases
	return problem, nil
}

type UpdateProblemRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Difficulty  string          `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	TestCases   []TestCaseInput `json:"test_cases" validate:"omitempty,min=1,dive"`
}

// UpdateProblem rewrites the problem row and, when test cases are
// supplied, replaces the whole test case set. Only the owning creator
// or an admin may update.
func (s *ProblemService) UpdateProblem(ctx context.Context, problemID, userID, userRole string, req UpdateProblemRequest) (*model.Problem, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !canMutateProblem(problem, userID, userRole) {
		return nil, common.Errorf("not the problem owner: %w", common.ErrForbidden)
	}

	problem.Title = req.Title
	problem.Slug = slug.Make(req.Title)
	problem.Description = req.Description
	problem.Difficulty = model.ProblemDifficulty(req.Difficulty)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.UpdateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}

	if len(req.TestCases) > 0 {
		if err := s.problemRepo.DeleteTestCases(ctx, tx, problem.ID); err != nil {
			return nil, err
		}
		testCases := make([]model.TestCase, 0, len(req.TestCases))
		for _, tc := range req.TestCases {
			testCases = append(testCases, model.TestCase{
				ID:             uuid.NewString(),
				ProblemID:      problem.ID,
				Input:          tc.Input,
				ExpectedOutput: tc.ExpectedOutput,
				IsPublic:       tc.IsPublic,
			})
		}
		if err := s.problemRepo.AddTestCases(ctx, tx, problem.ID, testCases); err != nil {
			return nil, err
		}
		problem.TestCases = testCases
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("problem_id", problem.ID).Info("Problem updated")
	return problem, nil
}

func (s *ProblemService) DeleteProblem(ctx context.Context, problemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Test cases go first; they reference the problem row.
	if err := s.problemRepo.DeleteTestCases(ctx, tx, problemID); err != nil {
		return err
	}
	if err := s.problemRepo.DeleteProblem(ctx, tx, problemID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}
	log.WithField("problem_id", problemID).Info("Problem deleted")
	return nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, limit int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error) {
	offset := (page - 1) * limit
	return s.problemRepo.ListProblems(ctx, limit, offset, difficulty)
}

func (s *ProblemService) SearchProblems(ctx context.Context, term string) ([]model.Problem, error) {
	if term == "" {
		return nil, common.Errorf("empty search query: %w", common.ErrBadRequest)
	}
	return s.problemRepo.SearchProblems(ctx, term, 20)
}

// GetProblemDetails resolves a problem by slug (falling back to id) and
// attaches test cases: the full set for an admin or the owning creator,
// public ones only for everyone else.
func (s *ProblemService) GetProblemDetails(ctx context.Context, slugOrID, userID, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, slugOrID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		problem, err = s.problemRepo.FindProblemByID(ctx, slugOrID)
		if err != nil {
			return nil, err
		}
	}

	if canMutateProblem(problem, userID, userRole) {
		problem.TestCases, err = s.problemRepo.GetTestCases(ctx, problem.ID)
	} else {
		problem.TestCases, err = s.problemRepo.GetPublicTestCases(ctx, problem.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch test cases: %w", err)
	}
	return problem, nil
}

func canMutateProblem(problem *model.Problem, userID, userRole string) bool {
	if userRole == model.RoleAdmin {
		return true
	}
	return problem.CreatorID != nil && *problem.CreatorID == userID && userID != ""
}
