package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func currentPrincipal(c *fiber.Ctx) (domain.TokenPayload, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.UserID == "" {
		return domain.TokenPayload{}, apperrors.NewAuthentication(apperrors.CodeUnauthorized, "authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError(apperrors.CodeInvalidParameter, "invalid payload", "body")
	}
	return nil
}

func sendData(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func sendCreated(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}
