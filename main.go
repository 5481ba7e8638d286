package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tournament-rewards-system/handlers"
	"tournament-rewards-system/middleware"
	"tournament-rewards-system/models"
	"tournament-rewards-system/services"
	"tournament-rewards-system/utils"
	"tournament-rewards-system/workers"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := godotenv.Load(); err != nil {
		zap.L().Warn("no .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // results and policies are small JSON
	})

	// Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-Device-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		zap.L().Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		zap.L().Fatal("failed to initialize R2 client", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Enrollment{},
		&models.Session{},
		&models.Ranking{},
		&models.Participation{},
		&models.Badge{},
		&models.User{},
		&models.SpecializationLicense{},
	); err != nil {
		zap.L().Fatal("failed to migrate database", zap.Error(err))
	}

	tournamentService := services.NewTournamentService(db)
	scheduleService := services.NewScheduleService(db)
	sessionService := services.NewSessionService(db)
	badgeService := services.NewBadgeService(db)
	rewardService := services.NewRewardService(db, badgeService)
	finalizeService := services.NewFinalizeService(db, rewardService)
	userService := services.NewUserService(db)
	archiveService := services.NewArchiveService(db)
	finalizeService.Archive = archiveService

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		zap.L().Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("TOURNAMENT_SERVICE_TOKEN")
	if serviceToken == "" {
		zap.L().Fatal("TOURNAMENT_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		zap.L().Fatal("SYNC_SERVICE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	enrollmentWorker := workers.NewEnrollmentSyncWorker(db, syncServiceURL, "/api/v1/public/enrollments", serviceToken)
	enrollmentWorker.Start(ctx)

	licenseSyncClient := workers.NewLicenseSyncClient(db)
	go workers.PollAssessments(ctx, licenseSyncClient, 30*time.Second)

	finalizeService.StartRewardScheduler()

	handlers.SetupTournamentRoutes(app, tournamentService, scheduleService, sessionService, finalizeService, archiveService)
	handlers.SetupRewardRoutes(app, rewardService, badgeService, userService, authClient)

	go func() {
		if err := app.Listen(":5200"); err != nil {
			zap.L().Error("server error", zap.Error(err))
		}
	}()

	zap.L().Info("server running", zap.String("addr", "http://localhost:5200"))
	zap.L().Info("cors configured", zap.String("origins", allowedOriginsString))

	<-ctx.Done()
	zap.L().Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zap.L().Error("shutdown error", zap.Error(err))
	}
}
