package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/roadwatch-kerala/backend/internal/dto"
	"github.com/roadwatch-kerala/backend/internal/services"
)

const identityLocal = "identity"

// OptionalAuth resolves a bearer credential when one is present. An absent
// header means the caller is anonymous and the request proceeds; a present
// but invalid credential is rejected outright.
func OptionalAuth(verifier services.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		return verifyBearer(c, verifier, header)
	}
}

// RequireAuth rejects requests without a valid bearer credential.
func RequireAuth(verifier services.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Missing authorization header",
			})
		}
		return verifyBearer(c, verifier, header)
	}
}

func verifyBearer(c *fiber.Ctx, verifier services.TokenVerifier, header string) error {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Invalid authorization header",
		})
	}

	claims, err := verifier.Verify(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Invalid or expired token",
		})
	}

	c.Locals(identityLocal, claims)
	return c.Next()
}

// Identity returns the verified claims set by the auth middleware, or nil
// for anonymous callers.
func Identity(c *fiber.Ctx) *services.IdentityClaims {
	claims, _ := c.Locals(identityLocal).(*services.IdentityClaims)
	return claims
}
