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

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)
	r.Get("/", h.listUsers)
	r.Put("/{userID}/role", h.updateRole)
	r.Delete("/{userID}", h.deleteUser)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r)
	users, total, err := h.userService.ListUsers(r.Context(), p.Page, p.Limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedUsersResponse struct {
		Users []model.User `json:"users"`
		Total int          `json:"total"`
		Page  int          `json:"page"`
		Limit int          `json:"limit"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedUsersResponse{
		Users: users,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	})
}

func (h *UserHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req service.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.userService.UpdateRole(r.Context(), userID, req); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Role updated successfully"})
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actingUserID, _ := middleware.GetUserIDFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	if err := h.userService.DeleteUser(r.Context(), userID, actingUserID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
