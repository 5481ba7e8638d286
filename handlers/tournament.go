package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tournament-rewards-system/middleware"
	"tournament-rewards-system/services"
)

// SetupTournamentRoutes wires the tournament lifecycle: creation, status,
// enrollment, scheduling, results and finalization. Public reads carry only
// gateway auth; everything under /s additionally requires a user context,
// and /s/admin requires the admin role.
func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	scheduleService *services.ScheduleService,
	sessionService *services.SessionService,
	finalizeService *services.FinalizeService,
	archiveService *services.ArchiveService,
) {
	// Public reads, gateway auth only
	app.Get("/tournaments", tournamentService.ListTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournament)
	app.Get("/tournaments/:id/sessions", scheduleService.ListSessions)
	app.Get("/tournaments/:id/rankings", finalizeService.ListRankings)
	app.Get("/sessions/:id", sessionService.GetSession)

	// Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Patch("/tournaments/:id/status", tournamentService.UpdateStatus)
	secured.Patch("/tournaments/:id/instructor", tournamentService.AssignInstructor)

	// Enrollment
	secured.Post("/tournaments/:id/enroll", tournamentService.Enroll)
	secured.Get("/tournaments/:id/enrollments", tournamentService.ListEnrollments)
	secured.Patch("/tournaments/:id/enrollments/:user_id", tournamentService.ReviewEnrollment)

	// Schedule and results
	secured.Post("/tournaments/:id/schedule", scheduleService.Generate)
	secured.Post("/sessions/:id/result", sessionService.SubmitResult)

	// Admin-only routes
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/tournaments/:id/finalize", finalizeService.Run)
	admin.Post("/tournaments/:id/archive", archiveService.Export)
}
