// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/handlers"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/api/middleware"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/config"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/cron"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/db"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/directory"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/email"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/seed"
	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	_ = godotenv.Load()

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	pg, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("connected to postgres")

	repos := repository.NewPgRepositories(pg.Pool)

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisDB = nil
		} else {
			defer redisDB.Close()
			logger.Info("redis cache enabled")
		}
	}

	// ============================================
	// Directory + Mailer
	// ============================================
	dir := directory.NewStubDirectory()
	if redisDB != nil {
		dir = directory.NewCachedDirectory(dir, redisDB)
	}
	mailer := email.NewLogMailer(logger)

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.Environment != "production" {
		seed.SeedData(repos, logger)
	}

	// ============================================
	// Services / Handlers
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:    cfg,
		Repos:     repos,
		Directory: dir,
		Mailer:    mailer,
		Logger:    logger,
	})
	h := handlers.NewHandlers(services, logger)

	// ============================================
	// Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(repos.ProjectRepo, cfg.ProgressRecomputeSpec, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("cron scheduler failed to start", zap.Error(err))
	}
	defer scheduler.Stop()

	// ============================================
	// Router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"cache":     cacheStatus(redisDB),
		})
	})

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(services.Auth, logger))
	{
		// Organization routes. The tenant middleware resolves membership
		// before any handler runs; Create and List have no organization yet.
		orgs := protected.Group("/orgs")
		{
			orgs.POST("", h.Organization.Create)
			orgs.GET("", h.Organization.List)

			tenant := orgs.Group("/:orgID")
			tenant.Use(middleware.TenantContext(services.Access))
			{
				tenant.GET("", h.Organization.Get)
				tenant.PUT("", h.Organization.Update)
				tenant.PUT("/settings", h.Organization.UpdateSettings)
				tenant.DELETE("", h.Organization.Delete)

				// Members
				tenant.POST("/members", h.Member.Add)
				tenant.POST("/members/invite", h.Member.Invite)
				tenant.GET("/members", h.Member.List)
				tenant.GET("/members/:userID", h.Member.Get)
				tenant.PUT("/members/:userID/role", h.Member.UpdateRole)
				tenant.PUT("/members/:userID/permissions", h.Member.UpdatePermissions)
				tenant.DELETE("/members/:userID", h.Member.Remove)

				// Org-scoped project and task surfaces
				tenant.POST("/projects", h.Project.Create)
				tenant.GET("/projects", h.Project.ListByOrganization)
				tenant.GET("/projects/search", h.Project.Search)
				tenant.GET("/tasks/search", h.Task.Search)
			}
		}

		// Project routes resolve the organization from the project itself.
		projects := protected.Group("/projects")
		{
			projects.GET("/:id", h.Project.Get)
			projects.PUT("/:id", h.Project.Update)
			projects.DELETE("/:id", h.Project.Delete)

			projects.GET("/:id/tasks", h.Task.ListByProject)
			projects.POST("/:id/tasks", h.Task.Create)
		}

		// Task routes resolve the organization from the task's denormalized
		// organization id.
		tasks := protected.Group("/tasks")
		{
			tasks.GET("/:id", h.Task.Get)
			tasks.PUT("/:id", h.Task.Update)
			tasks.PUT("/:id/position", h.Task.Move)
			tasks.PUT("/:id/assignee", h.Task.Assign)
			tasks.DELETE("/:id", h.Task.Delete)
		}
	}

	// ============================================
	// Start server with graceful shutdown
	// ============================================
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func cacheStatus(r *db.RedisDB) string {
	if r == nil {
		return "disabled"
	}
	return "enabled"
}
