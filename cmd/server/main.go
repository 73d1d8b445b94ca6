package main

import (
	"database/sql"
	"fmt"
	"log"
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
	config "github.com/publora/publora/configs"
	"github.com/publora/publora/internal/api/handlers"
	"github.com/publora/publora/internal/api/middleware"
	"github.com/publora/publora/internal/comments"
	job "github.com/publora/publora/internal/jobs"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/queue"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	secretKey := []byte(cfg.SecretKey)

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    10 * 1024 * 1024, // uploads go straight to storage, not through the API
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	publishJobRepo := repository.NewPublishJobRepository(db)
	scheduleRepo := repository.NewPostingScheduleRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	commentAuthorRepo := repository.NewCommentAuthorRepository(db)
	metricRepo := repository.NewMetricSnapshotRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	registry := platforms.NewDefaultRegistry()

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	storageService := service.NewStorageService(*cfg)
	postService := service.NewPostService(postRepo, publishJobRepo, connectionRepo, storageService, registry, secretKey)
	publishService := service.NewPublishService(*cfg, publishJobRepo, postRepo, connectionRepo, scheduleRepo, registry, client)
	platformService := service.NewPlatformService(*cfg, connectionRepo)
	scheduleService := service.NewScheduleService(scheduleRepo, connectionRepo)
	commentService := service.NewCommentService(*cfg, commentRepo, postRepo, connectionRepo, registry, client)
	analyticsService := service.NewAnalyticsService(metricRepo, publishJobRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(*cfg, platformService)
	app.Get("/auth/:platform", platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/upload", post.RequestUpload)
	api.Post("/posts/confirm", post.ConfirmUpload)
	api.Post("/posts/text", post.CreateTextPost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/update", post.UpdatePost)
	api.Post("/posts/remove", post.RemovePost)

	publish := handlers.NewPublishHandler(publishService)
	api.Post("/publish/create", publish.CreateJobs)
	api.Get("/publish", publish.ListJobs)
	api.Post("/publish/retry", publish.RetryJob)
	api.Post("/publish/reschedule", publish.RescheduleJob)
	api.Post("/publish/cancel", publish.CancelJob)
	api.Get("/publish/next_slot", publish.NextSlot)

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Get("/schedule", schedule.GetSchedule)
	api.Post("/schedule/update", schedule.UpdateSchedule)

	comment := handlers.NewCommentHandler(commentService)
	api.Get("/comments", comment.ListComments)
	api.Post("/comments/reply", comment.ReplyComment)
	api.Post("/comments/resolve", comment.ResolveComment)
	api.Post("/comments/hide", comment.HideComment)
	api.Post("/comments/remove", comment.RemoveComment)
	api.Post("/comments/sync", comment.SyncComments)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Get("/analytics", analytics.LatestMetrics)
	api.Get("/analytics/history", analytics.MetricsHistory)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DisconnectSocialAccount)

	// queue worker and cron jobs
	syncer := comments.NewSyncer(connectionRepo, publishJobRepo, commentRepo, commentAuthorRepo, registry, secretKey)
	queueW := queue.NewQueue(publishJobRepo, postRepo, connectionRepo, registry, storageService, syncer, client, secretKey)

	sweepJob := job.NewScheduledSweepJob(publishJobRepo, client)
	commentSyncJob := job.NewCommentSyncJob(connectionRepo, registry, client)
	analyticsJob := job.NewAnalyticsJob(publishJobRepo, connectionRepo, metricRepo, registry, secretKey)
	tokenRefreshJob := job.NewTokenRefreshJob(connectionRepo, platformService)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", sweepJob.Sweep)
	c.AddFunc("@every 00h15m00s", commentSyncJob.EnqueueSyncs)
	c.AddFunc("@every 24h00m00s", analyticsJob.CaptureMetrics)
	c.AddFunc("@every 00h10m00s", tokenRefreshJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeTiktokStatus, queueW.HandleTiktokStatusTask)
		mux.HandleFunc(queue.TaskTypeCommentSync, queueW.HandleCommentSyncTask)
		mux.HandleFunc(queue.TaskPrefixPublish, queueW.HandlePublishTask)
		mux.HandleFunc(queue.TaskPrefixUpdate, queueW.HandlePublishTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
