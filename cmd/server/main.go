package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/config"
	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/handlers"
	"github.com/pulseworks/pulse-tasks/internal/lock"
	"github.com/pulseworks/pulse-tasks/internal/middleware"
	"github.com/pulseworks/pulse-tasks/internal/queue"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/services"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("pulse_session", store))

	// Initialize services
	db := database.GetDB()
	registry := taskable.DefaultRegistry()
	locker := lock.NewKeyedLocker()
	dispatcher := queue.NewAsyncDispatcher()

	authService := services.NewAuthService(repository.NewUserRepository(db))
	pulseService := services.NewPulseService(db)
	taskService := services.NewTaskService(db, registry)
	statusUpdateService := services.NewStatusUpdateService(db, taskService, locker)
	statusService := services.NewStatusService(db)
	orderingService := services.NewOrderingService(db, dispatcher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	pulseHandler := handlers.NewPulseHandler(pulseService)
	taskHandler := handlers.NewTaskHandler(taskService, statusUpdateService, orderingService)
	statusHandler := handlers.NewStatusHandler(statusService, orderingService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Pulse Tasks API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Pulse routes (protected)
		pulses := api.Group("/pulses")
		pulses.Use(middleware.RequireAuth())
		{
			pulses.POST("", pulseHandler.CreatePulse)
			pulses.GET("", pulseHandler.ListPulses)
			pulses.POST("/join", pulseHandler.JoinPulse)
			pulses.GET("/:id", middleware.RequirePulseAccess(), pulseHandler.GetPulse)
			pulses.PUT("/:id", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), pulseHandler.UpdatePulse)
			pulses.DELETE("/:id", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), pulseHandler.DeletePulse)
			pulses.PATCH("/:id/status-option", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), pulseHandler.UpdateStatusOption)
			pulses.POST("/:id/regenerate-code", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), pulseHandler.RegenerateInviteCode)
			pulses.DELETE("/:id/members/:user_id", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), pulseHandler.RemoveMember)

			// Custom statuses
			pulses.GET("/:id/statuses", middleware.RequirePulseAccess(), statusHandler.ListStatuses)
			pulses.POST("/:id/statuses", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), statusHandler.CreateStatus)
			pulses.PATCH("/:id/statuses/:status_id", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), statusHandler.UpdateStatus)
			pulses.DELETE("/:id/statuses/:status_id", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), statusHandler.DeleteStatus)
			pulses.POST("/:id/statuses/reorder", middleware.RequirePulseAccess(), middleware.RequirePulseOwner(), statusHandler.ReorderStatuses)

			// Task ordering
			pulses.POST("/:id/tasks/reorder", middleware.RequirePulseAccess(), taskHandler.ReorderTasks)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.PATCH("/:id/status", middleware.RequireTaskAccess(), taskHandler.UpdateTaskStatus)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.POST("/:id/assign", middleware.RequireTaskAccess(), taskHandler.AssignTask)
			tasks.POST("/:id/unassign", middleware.RequireTaskAccess(), taskHandler.UnassignTask)
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
