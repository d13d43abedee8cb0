package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialdesk/configs"
	"github.com/maheshrc27/socialdesk/internal/api/handlers"
	"github.com/maheshrc27/socialdesk/internal/api/middleware"
	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	job "github.com/maheshrc27/socialdesk/internal/jobs"
	"github.com/maheshrc27/socialdesk/internal/logging"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/queue"
	"github.com/maheshrc27/socialdesk/internal/repository"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/pkg/utils"
	"github.com/robfig/cron"
)

const (
	sweepGrace    = time.Minute
	refreshWindow = 7 * 24 * time.Hour
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded", "error", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(logging.New(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		slog.Error("Database is unreachable", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		cancel()
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	cancel()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	tokenCipher, err := utils.NewTokenCipher([]byte(cfg.SecretKey))
	if err != nil {
		slog.Error("Invalid secret key", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(db)
	platformRepo := repository.NewPlatformRepository(db, tokenCipher)
	postRepo := repository.NewPostRepository(db)
	postPlatformRepo := repository.NewPostPlatformRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	mentionRepo := repository.NewMentionRepository(db)
	transactor := repository.NewTransactor(db)

	graphConfig := graph.Config{
		AppID:     cfg.FacebookAppID,
		AppSecret: cfg.FacebookAppSecret,
		Version:   cfg.FacebookGraphVersion,
	}

	var invoker functions.Invoker
	if cfg.FunctionsURL != "" {
		invoker = functions.NewHTTPInvoker(cfg.FunctionsURL, cfg.FunctionsAPIKey, 60*time.Second)
		slog.Info("Using hosted functions", "url", cfg.FunctionsURL)
	} else {
		invoker = functions.NewLocal(
			functions.FacebookConfig{
				AppID:     cfg.FacebookAppID,
				AppSecret: cfg.FacebookAppSecret,
				Graph:     graphConfig,
			},
			functions.InstagramConfig{
				ClientID:     cfg.InstagramClientID,
				ClientSecret: cfg.InstagramClientSecret,
			},
			functions.WordPressConfig{
				ClientID:     cfg.WordPressClientID,
				ClientSecret: cfg.WordPressClientSecret,
			},
		)
	}

	authService := service.NewAuthService(service.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	}, userRepo)
	userService := service.NewUserService(userRepo)
	platformService := service.NewPlatformService(platformRepo, invoker)
	oauthService := service.NewOAuthService(service.OAuthConfig{
		AppURL:    cfg.AppURL,
		SecretKey: cfg.SecretKey,
		ClientIDs: map[string]string{
			platforms.Facebook:  cfg.FacebookAppID,
			platforms.Instagram: cfg.InstagramClientID,
		},
	}, invoker, platformService)
	graphLoader := graph.NewLoader(graph.NewClient(graphConfig), cfg.SDKLoadTimeout, cfg.SDKPollInterval)
	sdkService := service.NewSDKService(service.NewGraphLoader(graphLoader), platformService, oauthService.RedirectURI)
	r2Service := service.NewR2Service(cfg.R2)
	mediaService := service.NewMediaService(r2Service, mediaAssetRepo, postMediaRepo, cfg.R2.PublicURL)
	publisher := service.NewPublisher(invoker, platformRepo, postRepo, postPlatformRepo, mediaService)
	postQueue := queue.NewQueue(client, inspector, publisher)
	postService := service.NewPostService(transactor, postRepo, postPlatformRepo, postMediaRepo, platformRepo, mediaService, publisher, postQueue)
	mentionService := service.NewMentionService(platformRepo, mentionRepo)
	dashboardService := service.NewDashboardService(platformService, mentionService, postService, oauthService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    service.MaxUploadSize + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error(err.Error(), "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName)
	app.Use(authMiddleware.Session())

	handlers.NewAuthHandler(*cfg, authService).Mount(app)

	dashboard := handlers.NewDashboardHandler(dashboardService, cfg.FrontendURL)
	dashboard.Mount(app)

	api := app.Group("/api")
	dashboard.MountAPI(api)

	api.Use(authMiddleware.RequireSession())
	handlers.NewUserHandler(userService).Mount(api)
	handlers.NewPlatformHandler(platformService, oauthService, sdkService).Mount(api)
	handlers.NewPostHandler(postService).Mount(api)
	handlers.NewMentionHandler(mentionService).Mount(api)
	handlers.NewMediaHandler(mediaService).Mount(api)

	// cron jobs
	sweeperJob := job.NewSweeperJob(postRepo, publisher, sweepGrace)
	refreshTokenJob := job.NewTokenRefreshJob(platformRepo, invoker, refreshWindow)

	c := cron.New()
	if err := c.AddFunc(cfg.SweepSchedule, sweeperJob.DispatchOverdue); err != nil {
		slog.Error("Invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}
	if err := c.AddFunc("@every 6h", refreshTokenJob.RefreshTokens); err != nil {
		slog.Error("Failed to register token refresh", "error", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// queue
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.QueueConcurrency,
		Queues:      map[string]int{queue.QueueName: 1},
	})
	slog.Info("Starting the Asynq server...")
	if err := server.Start(postQueue.Mux()); err != nil {
		slog.Error("Could not start Asynq server", "error", err)
		os.Exit(1)
	}
	defer server.Shutdown()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info(fmt.Sprintf("Server is running on %s", cfg.AppURL))

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
		return
	}
	slog.Info("Database connection closed")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}

	closeDB(db)
	slog.Info("Server shutdown complete.")
}
