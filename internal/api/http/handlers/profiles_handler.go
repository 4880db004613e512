package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/visahub/crm-service/internal/api/dto"
	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/service"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// ProfilesHandler manages authentication and staff profile endpoints.
type ProfilesHandler struct {
	auth *service.AuthService
}

// NewProfilesHandler constructs handler.
func NewProfilesHandler(authService *service.AuthService) *ProfilesHandler {
	return &ProfilesHandler{auth: authService}
}

// Register POST /auth/register. Admin only once accounts exist.
func (h *ProfilesHandler) Register(c *fiber.Ctx) error {
	actor, _ := auth.ProfileFromContext(c)
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.auth.Register(c.Context(), actor, service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// Login POST /auth/login.
func (h *ProfilesHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Profile:   dto.NewProfileResponse(result.Profile),
	}})
}

// ForgotPassword POST /auth/password/reset/request. Always returns 202 so
// the endpoint cannot be used to probe for accounts.
func (h *ProfilesHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if _, err := h.auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "accepted"}})
}

// ResetPassword POST /auth/password/reset/confirm.
func (h *ProfilesHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password reset"}})
}

// ChangePassword POST /auth/password/change.
func (h *ProfilesHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.ChangePassword(c.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password changed"}})
}

// Me GET /profiles/me.
func (h *ProfilesHandler) Me(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(actor)})
}

// UpdateMe PATCH /profiles/me.
func (h *ProfilesHandler) UpdateMe(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.auth.UpdateProfile(c.Context(), actor, service.ProfilePatch{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// ListProfiles GET /profiles. Populates assignment dropdowns.
func (h *ProfilesHandler) ListProfiles(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var role *domain.Role
	if roleStr := c.Query("role"); roleStr != "" {
		parsed := domain.Role(roleStr)
		role = &parsed
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	profiles, err := h.auth.ListProfiles(c.Context(), actor, role, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileListResponse(profiles)})
}
