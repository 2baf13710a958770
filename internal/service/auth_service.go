package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/job-scheduling/internal/auth"
	"github.com/fieldops/job-scheduling/internal/config"
	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/repository"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

// AuthService coordinates staff login flows.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, *domain.Token, string, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, "", apperrors.MapError(err)
	}
	if !staff.Active {
		return nil, nil, "", apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, nil, "", apperrors.NewUnauthorized("invalid credentials")
	}
	token, signed, err := s.tokenMgr.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, nil, "", apperrors.NewInternalError(err)
	}
	return staff, token, signed, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.StaffMember, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("staff authentication required")
	}
	staff, err := s.staff.GetByID(ctx, actor.ID)
	if err != nil {
		return mapLookupError(err, "staff_member", map[string]any{"staff_id": actor.ID})
	}
	if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	staff.PasswordHash = hash
	staff.UpdatedAt = time.Now().UTC()
	return apperrors.MapError(s.staff.Update(ctx, staff))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
