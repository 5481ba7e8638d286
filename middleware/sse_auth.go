// middleware/sse_auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tournament-rewards-system/services"
)

// SSEAuthMiddleware validates `token` and `device_id` query params against
// the auth service. EventSource clients cannot set headers, so the reward
// stream authenticates through the query string instead of the gateway
// header contract.
//
// Usage:
//
//	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		deviceID := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("device_id")))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token or device_id in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken, deviceID)
		if err != nil {
			zap.L().Warn("sse auth validation failed",
				zap.String("device_id", deviceID), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		// Same locals contract as UserContextMiddleware, sourced from the
		// auth service instead of gateway headers
		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)
		c.Locals("device_id", resp.DeviceID)

		return c.Next()
	}
}
