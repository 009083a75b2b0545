package middleware

import (
	"log"

	"llmgate/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies the operator JWT on protected routes.
func AuthMiddleware(jwtAuth *auth.LocalJWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtAuth == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Authentication is not configured",
			})
		}

		authHeader := c.Get("Authorization")
		token, err := auth.ExtractToken(authHeader)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		operator, err := jwtAuth.VerifyToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("operator", operator.Username)
		c.Locals("operator_role", operator.Role)

		return c.Next()
	}
}

// OperatorFromContext returns the authenticated operator name, if any.
func OperatorFromContext(c *fiber.Ctx) (string, bool) {
	operator, ok := c.Locals("operator").(string)
	return operator, ok && operator != ""
}
