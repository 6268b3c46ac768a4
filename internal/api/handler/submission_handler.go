package handler

import (
	"encoding/json"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/", h.createSubmission)
	r.Get("/me", h.listMySubmissions)
	r.Get("/{submissionID}", h.getSubmission)
}

type createSubmissionRequest struct {
	ProblemID string `json:"problemId"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

type gradedResponse struct {
	Message        string                 `json:"message"`
	SubmissionID   string                 `json:"submissionId"`
	Status         model.SubmissionStatus `json:"status"`
	Results        []model.TestCaseResult `json:"results"`
	Suggestion     string                 `json:"suggestion"`
	DetailedStatus string                 `json:"detailedStatus"`
}

type languageMismatchResponse struct {
	Error             string `json:"error"`
	SubmissionID      string `json:"submissionId"`
	SpecifiedLanguage string `json:"specifiedLanguage"`
	ActualLanguage    string `json:"actualLanguage"`
}

type emptyCodeResponse struct {
	Status         string `json:"status"`
	Error          string `json:"error"`
	Suggestion     string `json:"suggestion"`
	DetailedStatus string `json:"detailedStatus"`
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		common.RespondWithError(w, http.StatusForbidden, "Unauthorized submission")
		return
	}

	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	outcome, err := h.submissionService.Evaluate(r.Context(), userID, service.EvaluateRequest{
		ProblemID: req.ProblemID,
		Code:      req.Code,
		Language:  req.Language,
	})
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	switch outcome.Kind {
	case service.OutcomeEmptyCode:
		common.RespondWithJSON(w, http.StatusBadRequest, emptyCodeResponse{
			Status:         "Empty Code",
			Error:          "Empty Code Submitted",
			Suggestion:     "Please write some code before submitting.",
			DetailedStatus: "Submission failed due to empty code.",
		})
	case service.OutcomeLanguageMismatch:
		common.RespondWithJSON(w, http.StatusCreated, languageMismatchResponse{
			Error:             "Language mismatch",
			SubmissionID:      outcome.SubmissionID,
			SpecifiedLanguage: outcome.SpecifiedLanguage,
			ActualLanguage:    outcome.ActualLanguage,
		})
	default:
		common.RespondWithJSON(w, http.StatusCreated, gradedResponse{
			Message:        "Submission processed",
			SubmissionID:   outcome.SubmissionID,
			Status:         outcome.Verdict.Status,
			Results:        outcome.Verdict.Results,
			Suggestion:     outcome.Verdict.Suggestion,
			DetailedStatus: outcome.Verdict.DetailedStatus,
		})
	}
}

func (h *SubmissionHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	p := common.ParsePagination(r)

	subs, total, err := h.submissionService.ListMySubmissions(r.Context(), userID, p.Page, p.Limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedSubmissionsResponse struct {
		Submissions []model.Submission `json:"submissions"`
		Total       int                `json:"total"`
		Page        int                `json:"page"`
		Limit       int                `json:"limit"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedSubmissionsResponse{
		Submissions: subs,
		Total:       total,
		Page:        p.Page,
		Limit:       p.Limit,
	})
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	submissionID := chi.URLParam(r, "submissionID")

	sub, err := h.submissionService.GetSubmission(r.Context(), submissionID, userID, userRole)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

// Dashboard is registered outside the /submissions subtree.
func (h *SubmissionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	subs, err := h.submissionService.GetDashboard(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
