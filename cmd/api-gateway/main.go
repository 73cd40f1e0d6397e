package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/clinicore/clinicore-api/api/swagger"
	"github.com/clinicore/clinicore-api/internal/handler"
	"github.com/clinicore/clinicore-api/internal/middleware"
	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/repository"
	"github.com/clinicore/clinicore-api/internal/service"
	"github.com/clinicore/clinicore-api/internal/validation"
	"github.com/clinicore/clinicore-api/pkg/cache"
	"github.com/clinicore/clinicore-api/pkg/config"
	"github.com/clinicore/clinicore-api/pkg/database"
	"github.com/clinicore/clinicore-api/pkg/logger"
	corsmiddleware "github.com/clinicore/clinicore-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clinicore/clinicore-api/pkg/middleware/requestid"
	"github.com/clinicore/clinicore-api/pkg/storage"
)

// @title CliniCore API
// @version 1.0.0
// @description Therapy scheduling and constraint validation service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, session snapshot cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cacheRepo != nil {
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Validation.SnapshotCacheTTL, logr, true)
	}

	auditService := service.NewAuditService(userRepo, service.AuditOptions{
		Enabled:    cfg.Audit.Enabled,
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	auditService.Start(ctx)
	defer auditService.Stop()

	engine := validation.NewEngine(validation.Config{
		MaxConsecutive: cfg.Validation.MaxConsecutiveSessions,
		GapMinutes:     cfg.Validation.ConsecutiveGapMinutes,
	})

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clinicore-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, validate, logr, cacheService, auditService)
	sessionService := service.NewSessionService(sessionRepo, scheduleRepo, employeeRepo, roomRepo, activityRepo, patientRepo,
		engine, validate, logr, cacheService, metricsService, auditService)
	employeeService := service.NewEmployeeService(employeeRepo, validate, logr)
	roomService := service.NewRoomService(roomRepo, validate, logr)
	activityService := service.NewActivityService(activityRepo, validate, logr)
	patientService := service.NewPatientService(patientRepo, validate, logr)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		var archive *storage.LocalStorage
		if cfg.Exports.ArchiveDir != "" {
			if archive, err = storage.NewLocalStorage(cfg.Exports.ArchiveDir); err != nil {
				logr.Sugar().Warnw("export archive unavailable", "dir", cfg.Exports.ArchiveDir, "error", err)
				archive = nil
			}
		}
		if archive != nil {
			linkSecret := cfg.Exports.LinkSecret
			if linkSecret == "" {
				linkSecret = cfg.JWT.Secret
			}
			signer := storage.NewSignedURLSigner(linkSecret, cfg.Exports.LinkTTL)
			exportService = service.NewExportService(scheduleRepo, sessionRepo, employeeRepo, roomRepo, patientRepo,
				archive, signer, cfg.Exports.Title, logr)
		} else {
			exportService = service.NewExportService(scheduleRepo, sessionRepo, employeeRepo, roomRepo, patientRepo,
				nil, nil, cfg.Exports.Title, logr)
		}
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, exportService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	employeeHandler := handler.NewEmployeeHandler(employeeService)
	roomHandler := handler.NewRoomHandler(roomService)
	activityHandler := handler.NewActivityHandler(activityService)
	patientHandler := handler.NewPatientHandler(patientService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authService))

	adminOnly := middleware.RBAC(string(models.RoleAdmin))
	planners := middleware.RBAC(string(models.RoleAdmin), string(models.RoleTherapist))

	users := protected.Group("/users", adminOnly)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	employees := protected.Group("/employees")
	{
		employees.GET("", employeeHandler.List)
		employees.GET("/:id", employeeHandler.Get)
		employees.POST("", adminOnly, employeeHandler.Create)
		employees.PUT("/:id", adminOnly, employeeHandler.Update)
		employees.DELETE("/:id", adminOnly, employeeHandler.Deactivate)
	}

	rooms := protected.Group("/rooms")
	{
		rooms.GET("", roomHandler.List)
		rooms.GET("/:id", roomHandler.Get)
		rooms.POST("", adminOnly, roomHandler.Create)
		rooms.PUT("/:id", adminOnly, roomHandler.Update)
		rooms.DELETE("/:id", adminOnly, roomHandler.Deactivate)
	}

	activities := protected.Group("/activities")
	{
		activities.GET("", activityHandler.List)
		activities.GET("/:id", activityHandler.Get)
		activities.POST("", adminOnly, activityHandler.Create)
		activities.PUT("/:id", adminOnly, activityHandler.Update)
		activities.DELETE("/:id", adminOnly, activityHandler.Delete)
	}

	patients := protected.Group("/patients")
	{
		patients.GET("", patientHandler.List)
		patients.GET("/:id", patientHandler.Get)
		patients.POST("", adminOnly, patientHandler.Create)
		patients.PUT("/:id", adminOnly, patientHandler.Update)
		patients.DELETE("/:id", adminOnly, patientHandler.Deactivate)
	}

	schedules := protected.Group("/schedules")
	{
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/active", scheduleHandler.GetActive)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.POST("", planners, scheduleHandler.Create)
		schedules.PUT("/:id/activate", planners, scheduleHandler.Activate)
		schedules.DELETE("/:id", adminOnly, scheduleHandler.Delete)

		schedules.GET("/:id/sessions", sessionHandler.ListBySchedule)
		schedules.POST("/:id/sessions", planners, sessionHandler.Create)
		if exportService != nil {
			schedules.GET("/:id/export", scheduleHandler.Export)
			schedules.GET("/:id/export/link", scheduleHandler.ExportLink)
		}
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("/:id", sessionHandler.Get)
		sessions.PUT("/:id", planners, sessionHandler.Update)
		sessions.PUT("/:id/patients", planners, sessionHandler.UpdatePatients)
		sessions.POST("/:id/patients/:patientId", planners, sessionHandler.AssignPatient)
		sessions.DELETE("/:id", planners, sessionHandler.Delete)
	}

	// the signed token is the authorization, so downloads stay outside the JWT group
	if exportService != nil {
		api.GET("/exports/:token", scheduleHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
