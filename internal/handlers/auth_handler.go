package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/roadwatch-kerala/backend/internal/dto"
	"github.com/roadwatch-kerala/backend/internal/middleware"
	"github.com/roadwatch-kerala/backend/internal/models"
	"github.com/roadwatch-kerala/backend/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	reports  *services.ReportService
}

func NewAuthHandler(accounts *services.AccountService, reports *services.ReportService) *AuthHandler {
	return &AuthHandler{accounts: accounts, reports: reports}
}

// Register upserts the caller's account from their verified identity.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	user, created, err := h.accounts.Register(middleware.Identity(c))
	if err != nil {
		slog.Error("user registration failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to register user",
		})
	}

	status := fiber.StatusOK
	message := "User updated"
	if created {
		status = fiber.StatusCreated
		message = "User registered successfully"
	}
	return c.Status(status).JSON(dto.RegisterResponse{
		Message: message,
		User:    dto.NewUserResponse(user),
	})
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// MyReports returns the caller's full submission history.
func (h *AuthHandler) MyReports(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userError(c, err)
	}

	reports, err := h.reports.ListByUser(user.ID)
	if err != nil {
		slog.Error("failed to list user reports", "error", err, "user_id", user.ID.String())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	return c.JSON(dto.UserReportsResponse{
		User:    dto.NewUserResponse(user),
		Reports: reports,
	})
}

func (h *AuthHandler) currentUser(c *fiber.Ctx) (*models.User, error) {
	claims := middleware.Identity(c)
	if claims == nil {
		return nil, services.ErrInvalidToken
	}
	return h.accounts.GetByFirebaseUID(claims.SubjectID)
}

func (h *AuthHandler) userError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "User not found",
		})
	}
	if errors.Is(err, services.ErrInvalidToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	slog.Error("failed to load user", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
