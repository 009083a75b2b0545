package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"llmgate/internal/config"
	"llmgate/internal/database"
	"llmgate/internal/handlers"
	"llmgate/internal/jobs"
	"llmgate/internal/logging"
	"llmgate/internal/middleware"
	"llmgate/internal/services"
	"llmgate/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting LLM Gate Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s)", cfg.Port, cfg.DatabasePath)

	// Initialize SQLite database
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." && cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("❌ Failed to create data directory: %v", err)
		}
	}
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize Prometheus metrics
	metrics := services.InitMetrics()

	// Initialize services
	configService := services.NewConfigService(db, cfg.ConfigCacheTTL)
	callLogger := services.NewCallLogger(db)
	metricsService := services.NewMetricsService(db)
	llmService := services.NewLLMService(configService, callLogger, metricsService, metrics, cfg.GenerateTimeout, cfg.HealthTimeout)
	monitorService := services.NewMonitorService(configService, metrics, cfg.HealthTimeout)

	// Seed execution config from backends.yaml when present
	if cfg.BackendsFile != "" {
		if err := seedBackends(cfg.BackendsFile, configService); err != nil {
			log.Printf("⚠️  Backend seed skipped: %v", err)
		} else {
			// Hot-reload: re-apply the file when it changes
			go startBackendsFileWatcher(cfg.BackendsFile, configService)
		}
	}

	// Initialize JWT auth
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret == "" {
		if os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ JWT_SECRET is required in production")
		}
		log.Println("⚠️  JWT_SECRET not set, protected routes will reject all requests")
	} else {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ JWT auth initialized")
	}

	// Background jobs: backend health probe + audit log retention
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := scheduler.Register(jobs.NewBackendProbeJob(monitorService, cfg.ProbeInterval)); err != nil {
		log.Printf("⚠️  Failed to register probe job: %v", err)
	}
	if err := scheduler.Register(jobs.NewLogRetentionJob(callLogger, 30*24*time.Hour, 24*time.Hour)); err != nil {
		log.Printf("⚠️  Failed to register retention job: %v", err)
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LLM Gate v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // local models can be slow to first token
		IdleTimeout:  120 * time.Second,
		BodyLimit:    2 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("llmgate")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Global API rate limiter, first line of defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(200, 1*time.Minute))

	promptLimiter := middleware.NewPromptRateLimiter(cfg.PromptRatePerMinute, cfg.PromptBurst)
	log.Printf("🛡️  [RATE-LIMIT] Prompt limiter: %d/min (burst %d)", cfg.PromptRatePerMinute, cfg.PromptBurst)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(jwtAuth, cfg.AdminUsername, cfg.AdminPasswordHash)
	llmHandler := handlers.NewLLMHandler(llmService, callLogger)
	systemHandler := handlers.NewSystemHandler(configService, llmService, monitorService)
	metricsHandler := handlers.NewMetricsHandler(metricsService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/auth/login", authHandler.Login)

	requireAuth := middleware.AuthMiddleware(jwtAuth)

	llm := api.Group("/llm", requireAuth)
	llm.Post("/prompt", promptLimiter.Handler(), llmHandler.Prompt)
	llm.Get("/logs", llmHandler.Logs)

	system := api.Group("/system", requireAuth)
	system.Get("/config", systemHandler.GetConfig)
	system.Patch("/config", systemHandler.UpdateConfig)
	system.Post("/mode/switch", systemHandler.SwitchMode)
	system.Post("/test-connection", systemHandler.TestConnection)
	system.Get("/status", systemHandler.Status)

	metricsAPI := api.Group("/metrics", requireAuth)
	metricsAPI.Get("/today", metricsHandler.Today)
	metricsAPI.Get("/daily", metricsHandler.Daily)

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		scheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// seedBackends applies backends.yaml defaults to the execution config
func seedBackends(filePath string, configService *services.ConfigService) error {
	bf, err := config.LoadBackends(filePath)
	if err != nil {
		return err
	}

	if err := configService.Seed(context.Background(), bf); err != nil {
		return err
	}

	log.Printf("✅ Backend defaults applied from %s", filePath)
	return nil
}

// startBackendsFileWatcher watches backends.yaml for changes and re-applies it
func startBackendsFileWatcher(filePath string, configService *services.ConfigService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, re-applying backend defaults...", filePath)

					if err := seedBackends(filePath, configService); err != nil {
						log.Printf("❌ Failed to re-apply backends file: %v", err)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
