package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/voxsplit/api/internal/analysis"
	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/encode"
	"github.com/voxsplit/api/internal/handler"
	"github.com/voxsplit/api/internal/middleware"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/internal/store"
	"github.com/voxsplit/api/internal/worker"
	ws "github.com/voxsplit/api/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	// Shared plumbing
	jobStore := store.NewRedisStore(redisClient, store.DefaultRetention)
	ffmpeg := audio.NewFFmpeg(cfg.Audio.FFmpegBin)
	encoder := encode.NewEncoder(ffmpeg)

	// Services
	jobService := service.NewJobService(jobStore, service.NewAsynqEnqueuer(asynqClient))
	uploadService := service.NewUploadService(jobService, ffmpeg, cfg)
	renderService := service.NewRenderService(jobStore, encoder)

	// Handlers
	uploadHandler := handler.NewUploadHandler(uploadService)
	jobHandler := handler.NewJobHandler(jobService)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Audio.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rendered previews and exports are served straight from disk.
	app.Static("/audio", cfg.Storage.OutputDir)

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Upload)

	jobs := api.Group("/jobs")
	jobs.Post("/:jobId/analyze", rateLimiter.AnalyzeLimit(cfg.RateLimit.AnalyzePerHour), jobHandler.Analyze)
	jobs.Get("/:jobId/status", jobHandler.Status)
	jobs.Get("/:jobId/tracks", jobHandler.Tracks)
	jobs.Get("/:jobId/tracks/:trackId/audio", jobHandler.TrackAudio)
	jobs.Delete("/:jobId", jobHandler.Delete)

	render := api.Group("/render", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerMin))
	render.Post("/preview", renderHandler.Preview)
	render.Post("/export", renderHandler.Export)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	go startWorkerServer(cfg, jobService, hub)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, jobService *service.JobService, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				service.QueueAnalysis: 1,
			},
		},
	)

	separator := analysis.NewDemucsSeparator(cfg.Separation)

	var diarizer analysis.Diarizer
	if client := analysis.NewDiarizerClient(cfg.Diarization); client.IsConfigured() {
		diarizer = client
	} else {
		log.Printf("Warning: diarization service not configured, jobs will produce unsplit voice tracks")
	}

	analysisWorker := worker.NewAnalysisWorker(jobService, separator, diarizer, hub, cfg.Worker)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeAnalysis, analysisWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
