package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"
)

type Problem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Difficulty  ProblemDifficulty `json:"difficulty,omitempty"`
	CreatorID   *string           `json:"creator_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Populated on detail views: public cases only for solvers, the
	// full ordered set for the owning creator or an admin.
	TestCases []TestCase `json:"test_cases,omitempty"`

	CreatorName *string `json:"creator_name,omitempty"` // For display
}

type TestCase struct {
	ID             string `json:"id"`
	ProblemID      string `json:"problem_id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsPublic       bool   `json:"is_public"`
	SortOrder      int    `json:"sort_order"`
}
