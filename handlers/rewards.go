// handlers/rewards.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tournament-rewards-system/middleware"
	"tournament-rewards-system/services"
)

// SetupRewardRoutes wires the reward read surface, the distribution
// endpoints and the SSE stream. The stream authenticates via query token
// because EventSource cannot send the gateway headers.
func SetupRewardRoutes(
	app *fiber.App,
	rewardService *services.RewardService,
	badgeService *services.BadgeService,
	userService *services.UserService,
	authClient *services.AuthServiceClient,
) {
	// Public reads, gateway auth only
	app.Get("/users/search", userService.SearchUsers)
	app.Get("/users/:id/profile", userService.GetProfile)
	app.Get("/users/:user_id/badges", badgeService.ListUserBadges)
	app.Get("/tournaments/:id/badges", badgeService.ListTournamentBadges)
	app.Get("/tournaments/:id/participations", rewardService.ListParticipations)

	// SSE stream, query-token auth
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)

	// Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Get("/me", userService.Me)

	// Admin-only distribution triggers; finalize drives these in the normal
	// flow, the endpoints exist for replays and corrections
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/tournaments/:id/rewards", rewardService.DistributeTournament)
	admin.Post("/tournaments/:id/rewards/:user_id", rewardService.DistributeUser)
}
