package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)
	// ListDashboard joins problem titles for the user's dashboard view,
	// ordered by submission time.
	ListDashboard(ctx context.Context, userID string) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, code, language, status)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Code, sub.Language, sub.Status,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.code, s.language, s.status, s.created_at, p.title
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Code, &sub.Language, &sub.Status, &sub.CreatedAt, &sub.ProblemTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser count: %w", err)
	}

	query := `SELECT s.id, s.user_id, s.problem_id, s.code, s.language, s.status, s.created_at, p.title
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.user_id = $1
	          ORDER BY s.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListByUser: %w", err)
	}
	return subs, total, nil
}

func (r *pgSubmissionRepository) ListDashboard(ctx context.Context, userID string) ([]model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.code, s.language, s.status, s.created_at, p.title
	          FROM submissions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.user_id = $1
	          ORDER BY s.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListDashboard query: %w", err)
	}
	defer rows.Close()

	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListDashboard: %w", err)
	}
	return subs, nil
}

func scanSubmissions(rows *sql.Rows) ([]model.Submission, error) {
	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Code, &s.Language, &s.Status, &s.CreatedAt, &s.ProblemTitle); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return subs, nil
}
