package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/pkg/hash"
	"docctl-server/pkg/sanitize"

	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	user.Password = ""
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// Create adds an account. Accounts are provisioned by managers or the admin
// CLI; there is no self-registration.
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	sanitize.Fields(&req.Username, &req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	emailExists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailExists {
		return nil, ErrEmailTaken
	}

	usernameExists, err := s.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if usernameExists {
		return nil, ErrUsernameTaken
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return nil, &ValidationError{Messages: []string{err.Error()}}
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  hashedPassword,
		Roles:     req.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Password = ""
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	user.FullName = sanitize.Text(req.FullName)
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	user.Password = ""
	return user, nil
}

// Edit updates the roles and profile of any account. A manager cannot drop
// their own manager role.
func (s *UserService) Edit(ctx context.Context, actor domain.Actor, id string, req *domain.EditUserRequest) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		taken, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email existence: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	roles := append([]string(nil), req.Roles...)
	slices.Sort(roles)
	roles = slices.Compact(roles)
	if user.ID == actor.UserID && user.HasRole(domain.RoleManager) && !slices.Contains(roles, domain.RoleManager) {
		return nil, &ValidationError{Messages: []string{"you cannot remove your own manager role"}}
	}

	user.Email = email
	user.FullName = sanitize.Text(req.FullName)
	user.Roles = roles
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	user.Password = ""
	return user, nil
}

// ResetPassword replaces an account's password without knowing the old one.
func (s *UserService) ResetPassword(ctx context.Context, id string, req *domain.ResetPasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}

	hashed, err := hash.Hash(req.NewPassword)
	if err != nil {
		return &ValidationError{Messages: []string{err.Error()}}
	}

	user.Password = hashed
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
