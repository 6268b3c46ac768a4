package model

import "time"

type SubmissionStatus string

const (
	StatusAccepted SubmissionStatus = "Accepted"
	StatusFailed   SubmissionStatus = "Failed"
	// Rejected covers submissions that never reached grading, e.g. a
	// declared-language mismatch.
	StatusRejected SubmissionStatus = "Rejected"
)

type Submission struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	ProblemID string           `json:"problem_id"`
	Code      string           `json:"code"`
	Language  string           `json:"language"`
	Status    SubmissionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`

	ProblemTitle *string `json:"problem_title,omitempty"` // For display
}
