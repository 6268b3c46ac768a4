package service

import (
	"context"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	log "github.com/sirupsen/logrus"
)

// UserService backs the admin panel: listing accounts, changing roles,
// removing users.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]model.User, int, error) {
	offset := (page - 1) * limit
	return s.userRepo.List(ctx, limit, offset)
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=solver creator admin"`
}

func (s *UserService) UpdateRole(ctx context.Context, userID string, req UpdateRoleRequest) error {
	if err := validateInput(req); err != nil {
		return err
	}
	if err := s.userRepo.UpdateRole(ctx, userID, req.Role); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "role": req.Role}).Info("User role updated")
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID, actingUserID string) error {
	if userID == actingUserID {
		return common.Errorf("cannot delete own account: %w", common.ErrBadRequest)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	log.WithField("user_id", userID).Info("User deleted")
	return nil
}
