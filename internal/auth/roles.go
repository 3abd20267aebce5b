package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// RequireRole admits only callers whose token role is exactly role.
func RequireRole(role domain.Role) fiber.Handler {
	return RequireAnyRole(role)
}

// RequireAnyRole admits callers holding one of the listed roles.
func RequireAnyRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewAuthentication(apperrors.CodeUnauthorized, "authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewAuthorization("Insufficient permissions")
		}
		return c.Next()
	}
}
