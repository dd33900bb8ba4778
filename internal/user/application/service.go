package application

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/watchstore/internal/user/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.User, error)
	List(ctx context.Context, search string, page pagination.Request) ([]domain.User, int64, error)
	UpdateProfile(ctx context.Context, u domain.User) (domain.User, error)
}

type Service struct {
	repo UserRepository
}

func NewService(repo UserRepository) *Service {
	return &Service{repo: repo}
}

type UserPage struct {
	Users      []domain.User   `json:"users"`
	Pagination pagination.Meta `json:"pagination"`
}

func (s *Service) List(ctx context.Context, search string, page pagination.Request) (UserPage, error) {
	users, total, err := s.repo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return UserPage{}, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return UserPage{Users: users, Pagination: pagination.NewMeta(page, total)}, nil
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return s.repo.Get(ctx, id)
}

// UpdateProfile changes the caller's first name, last name and phone.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, p domain.ProfileUpdate) (domain.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := u.ApplyProfile(p); err != nil {
		return domain.User{}, err
	}
	return s.repo.UpdateProfile(ctx, u)
}

// CheckActive rejects tokens whose user was removed or deactivated, and admin
// tokens for accounts that no longer hold an admin role.
func (s *Service) CheckActive(ctx context.Context, p auth.Principal) error {
	u, err := s.repo.Get(ctx, p.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return auth.ErrInactive
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return auth.ErrInactive
	}
	if p.IsAdmin() && !(auth.Principal{Role: u.Role}).IsAdmin() {
		return apperr.New(apperr.KindUnauthorized, "Invalid token.")
	}
	return nil
}
