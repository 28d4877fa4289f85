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
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/viddown/api/internal/config"
	"github.com/viddown/api/internal/downloader"
	"github.com/viddown/api/internal/handler"
	"github.com/viddown/api/internal/history"
	"github.com/viddown/api/internal/metadata"
	"github.com/viddown/api/internal/middleware"
	"github.com/viddown/api/internal/store"
	ws "github.com/viddown/api/internal/websocket"
	"github.com/viddown/api/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Downloads.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create downloads directory: %v", err)
	}

	// Redis is optional; without it rate limiting is disabled.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	jobStore := store.NewMemoryStore()
	janitor := downloader.NewJanitor(cfg.Downloads.Dir, jobStore)
	supervisor := downloader.NewSupervisor(
		jobStore, hub,
		cfg.Downloads.Dir,
		cfg.Tools.YtdlpPath,
		cfg.Tools.FfmpegPath,
		cfg.Tools.UserAgent,
		cfg.Downloads.JobTimeout,
	)
	metadataService := metadata.NewService(cfg.Tools.YtdlpPath, cfg.Tools.UserAgent)

	historyStore, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer historyStore.Close()

	processHandler := handler.NewProcessHandler(jobStore, supervisor, janitor, validate)
	historyHandler := handler.NewHistoryHandler(historyStore, validate)
	metadataHandler := handler.NewMetadataHandler(metadataService, validate)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Reclaim anything left over from a previous run.
	if err := janitor.Sweep(); err != nil {
		log.Printf("Warning: startup sweep failed: %v", err)
	}

	// Periodic sweeps catch jobs that were served-side abandoned.
	var sched *cron.Cron
	if cfg.Downloads.CleanupSchedule != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(cfg.Downloads.CleanupSchedule, func() {
			if err := janitor.Sweep(); err != nil {
				log.Printf("Warning: scheduled sweep failed: %v", err)
			}
		}); err != nil {
			log.Printf("Warning: invalid cleanup schedule %q: %v", cfg.Downloads.CleanupSchedule, err)
		} else {
			sched.Start()
			defer sched.Stop()
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		version, err := metadataService.Version(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "yt-dlp not found or failed",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ok",
			"ytdlp":  version,
		})
	})

	api := app.Group("/api")

	api.Post("/metadata", rateLimiter.MetadataLimit(cfg.RateLimit.MetadataPerMin), metadataHandler.Fetch)

	api.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerHour), processHandler.Start)
	api.Get("/process/:jobId", processHandler.Status)
	api.Get("/serve/:jobId", processHandler.Serve)

	api.Get("/history", historyHandler.List)
	api.Post("/history", historyHandler.Upsert)
	api.Delete("/history", historyHandler.DeleteByStatus)
	api.Delete("/history/:id", historyHandler.Delete)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

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

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
