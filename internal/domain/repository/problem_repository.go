package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error)
	SearchProblems(ctx context.Context, term string, limit int) ([]model.Problem, error)

	AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	// GetTestCases returns every test case, public and private, in
	// sort order. That order is the authoritative pairing for judging.
	GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error)
	GetPublicTestCases(ctx context.Context, problemID string) ([]model.TestCase, error)
	DeleteTestCases(ctx context.Context, tx *sql.Tx, problemID string) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// execer lets the same query run inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *pgProblemRepository) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, creator_id)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.exec(tx).ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.CreatorID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `UPDATE problems SET
	            title = $1, slug = $2, description = $3, difficulty = $4, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $5`
	res, err := r.exec(tx).ExecContext(ctx, query, p.Title, p.Slug, p.Description, p.Difficulty, p.ID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.exec(tx).ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const problemSelect = `
        SELECT p.id, p.title, p.slug, p.description, p.difficulty,
               p.creator_id, u.name as creator_name,
               p.created_at, p.updated_at
        FROM problems p
        LEFT JOIN users u ON p.creator_id = u.id`

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findOne(ctx, problemSelect+` WHERE p.id = $1`, id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findOne(ctx, problemSelect+` WHERE p.slug = $1`, slug)
}

func (r *pgProblemRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Problem, error) {
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description, &problem.Difficulty,
		&problem.CreatorID, &problem.CreatorName,
		&problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findOne: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty) ([]model.Problem, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, difficulty)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM problems p` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := problemSelect + whereClause +
		fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems, err := scanProblems(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) SearchProblems(ctx context.Context, term string, limit int) ([]model.Problem, error) {
	query := problemSelect + ` WHERE p.title ILIKE $1 OR p.description ILIKE $1
	          ORDER BY p.created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.SearchProblems query: %w", err)
	}
	defer rows.Close()

	problems, err := scanProblems(rows)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.SearchProblems: %w", err)
	}
	return problems, nil
}

func scanProblems(rows *sql.Rows) ([]model.Problem, error) {
	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
			&p.CreatorID, &p.CreatorName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	query := `INSERT INTO test_cases (id, problem_id, input, expected_output, is_public, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	for i, tc := range testCases {
		tc.SortOrder = i + 1 // Auto-assign sort order
		_, err := r.exec(tx).ExecContext(ctx, query, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.IsPublic, tc.SortOrder)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCases exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error) {
	return r.getTestCases(ctx, problemID, false)
}

func (r *pgProblemRepository) GetPublicTestCases(ctx context.Context, problemID string) ([]model.TestCase, error) {
	return r.getTestCases(ctx, problemID, true)
}

func (r *pgProblemRepository) getTestCases(ctx context.Context, problemID string, publicOnly bool) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, is_public, sort_order
	          FROM test_cases WHERE problem_id = $1`
	if publicOnly {
		query += ` AND is_public = TRUE`
	}
	query += ` ORDER BY sort_order ASC`

	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.getTestCases query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsPublic, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.getTestCases scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.getTestCases rows.Err: %w", err)
	}
	return testCases, nil
}

func (r *pgProblemRepository) DeleteTestCases(ctx context.Context, tx *sql.Tx, problemID string) error {
	_, err := r.exec(tx).ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteTestCases: %w", err)
	}
	return nil
}
