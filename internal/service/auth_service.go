package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/config"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/repository"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// AuthService manages staff accounts: registration, login, password
// resets and profile maintenance.
type AuthService struct {
	profiles repository.ProfileRepository
	resets   repository.PasswordResetRepository
	tokens   *auth.TokenManager
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	ProfileRepo repository.ProfileRepository
	ResetRepo   repository.PasswordResetRepository
	Tokens      *auth.TokenManager
	Config      config.AuthConfig
	Logger      *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		profiles: deps.ProfileRepo,
		resets:   deps.ResetRepo,
		tokens:   deps.Tokens,
		cfg:      deps.Config,
		logger:   logger,
	}
}

// RegisterInput describes a new staff account.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.Role
}

// AuthResult carries an issued access token and its owner.
type AuthResult struct {
	Profile   *domain.Profile
	Token     string
	ExpiresAt time.Time
}

// ProfilePatch carries self-service profile edits.
type ProfilePatch struct {
	FullName  *string
	AvatarURL *string
}

// Register creates a staff profile. Only admins may register accounts.
// An unauthenticated call is accepted solely to bootstrap the very first
// account on an empty installation.
func (s *AuthService) Register(ctx context.Context, actor *domain.Profile, input RegisterInput) (*domain.Profile, error) {
	if actor == nil {
		existing, err := s.profiles.List(ctx, repository.ProfileFilter{Limit: 1})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(existing) > 0 {
			return nil, apperrors.NewUnauthorized("authentication required")
		}
	} else if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewPermissionError("only admins may register accounts")
	}

	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if fullName == "" || email == "" {
		return nil, apperrors.NewValidationError("full_name and email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if input.Role == "" {
		input.Role = domain.RoleAgent
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	if existing, err := s.profiles.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	profile := &domain.Profile{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("registered staff profile",
		zap.String("profile_id", profile.ID), zap.String("role", string(profile.Role)))
	return profile, nil
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(profile.ID, profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Profile: profile, Token: token, ExpiresAt: expiresAt}, nil
}

// RequestPasswordReset mints a reset token for the account. The result is
// the same whether or not the email exists, to avoid account probing.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.NewValidationError("email required", nil)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.MapError(err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	token := &repository.PasswordResetToken{
		ProfileID: profile.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.PasswordResetTTLMinutes) * time.Minute),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", apperrors.MapError(err)
	}
	s.logger.Info("password reset requested", zap.String("profile_id", profile.ID))
	return token.Token, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}

	profile, err := s.profiles.GetByID(ctx, token.ProfileID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	profile.PasswordHash = hash
	if err := s.profiles.Update(ctx, profile); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ChangePassword rotates the actor's own password after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Profile, current, next string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if err := auth.ComparePassword(actor.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password does not match")
	}

	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	actor.PasswordHash = hash
	if err := s.profiles.Update(ctx, actor); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// UpdateProfile applies self-service edits to the actor's own profile.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.Profile, patch ProfilePatch) (*domain.Profile, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full_name cannot be empty", nil)
		}
		actor.FullName = name
	}
	if patch.AvatarURL != nil {
		if *patch.AvatarURL == "" {
			actor.AvatarURL = nil
		} else {
			actor.AvatarURL = patch.AvatarURL
		}
	}
	if err := s.profiles.Update(ctx, actor); err != nil {
		return nil, apperrors.MapError(err)
	}
	return actor, nil
}

// ListProfiles returns staff profiles, optionally filtered by role. Used
// to populate assignment dropdowns; any authenticated actor may call it.
func (s *AuthService) ListProfiles(ctx context.Context, actor *domain.Profile, role *domain.Role, limit, offset int) ([]domain.Profile, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if role != nil && !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *role})
	}
	profiles, err := s.profiles.List(ctx, repository.ProfileFilter{Role: role, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profiles, nil
}
