package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/triage-service/internal/api/dto"
	"github.com/ticketops/triage-service/internal/auth"
	"github.com/ticketops/triage-service/internal/domain"
	"github.com/ticketops/triage-service/internal/service"
	apperrors "github.com/ticketops/triage-service/pkg/util"
)

// UsersHandler manages account endpoints.
type UsersHandler struct {
	service *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{service: authService}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Register(c.Context(), req.Name, req.Email, req.Password, req.Skills)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": authResponse(result)})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(result)})
}

// UpdateUser POST /users/update (admin only).
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	user, err := h.service.UpdateUser(c.Context(), actor, req.Email, req.Role, req.Skills)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ListHandlers GET /users/handlers (handler/admin only).
func (h *UsersHandler) ListHandlers(c *fiber.Ctx) error {
	handlers, err := h.service.ListHandlers(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(handlers))
	for i := range handlers {
		items = append(items, userResponse(&handlers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Me GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(actor)})
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userResponse(result.User),
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Skills:    user.Skills,
		CreatedAt: user.CreatedAt,
	}
}
