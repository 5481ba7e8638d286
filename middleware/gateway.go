// middleware/gateway.go
package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("TOURNAMENT_SERVICE_TOKEN")
	if expectedToken == "" {
		zap.L().Fatal("TOURNAMENT_SERVICE_TOKEN is not set, service cannot authenticate gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			zap.L().Warn("missing gateway authorization header", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Parse "Bearer <token>"; TrimPrefix leaves the raw value when the
		// gateway sends the token without a scheme
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token != expectedToken {
			zap.L().Warn("invalid gateway token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
