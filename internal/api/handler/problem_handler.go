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

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)
	r.Get("/search", h.searchProblems)
	r.Get("/{problemSlug}", h.getProblem)

	r.Group(func(creator chi.Router) {
		creator.Use(middleware.Authenticator)
		creator.Use(middleware.RequireRole(model.RoleCreator))
		creator.Post("/", h.createProblem)
		creator.Put("/{problemID}", h.updateProblem)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Delete("/{problemID}", h.deleteProblem)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.CreateProblem(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	problemID := chi.URLParam(r, "problemID")

	var req service.UpdateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.UpdateProblem(r.Context(), problemID, userID, userRole, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")
	if err := h.problemService.DeleteProblem(r.Context(), problemID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Problem deleted successfully"})
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r)
	difficulty := model.ProblemDifficulty(r.URL.Query().Get("difficulty"))

	problems, total, err := h.problemService.ListProblems(r.Context(), p.Page, p.Limit, difficulty)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedProblemsResponse struct {
		Problems []model.Problem `json:"problems"`
		Total    int             `json:"total"`
		Page     int             `json:"page"`
		Limit    int             `json:"limit"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedProblemsResponse{
		Problems: problems,
		Total:    total,
		Page:     p.Page,
		Limit:    p.Limit,
	})
}

func (h *ProblemHandler) searchProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid search query")
		return
	}
	problems, err := h.problemService.SearchProblems(r.Context(), q)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problemSlug := chi.URLParam(r, "problemSlug")
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())

	problem, err := h.problemService.GetProblemDetails(r.Context(), problemSlug, userID, userRole)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
