package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/blocklearn/blocklearn-api/api/swagger"
	"github.com/blocklearn/blocklearn-api/internal/handler"
	"github.com/blocklearn/blocklearn-api/internal/middleware"
	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/repository"
	"github.com/blocklearn/blocklearn-api/internal/service"
	"github.com/blocklearn/blocklearn-api/pkg/cache"
	"github.com/blocklearn/blocklearn-api/pkg/config"
	"github.com/blocklearn/blocklearn-api/pkg/database"
	"github.com/blocklearn/blocklearn-api/pkg/logger"
	corsmiddleware "github.com/blocklearn/blocklearn-api/pkg/middleware/cors"
	reqidmiddleware "github.com/blocklearn/blocklearn-api/pkg/middleware/requestid"
)

// @title BlockLearn API
// @version 1.0.0
// @description Blockchain education marketplace: instructor sessions, courses, community and careers
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	forumRepo := repository.NewForumRepository(db)
	hackathonRepo := repository.NewHackathonRepository(db)
	jobRepo := repository.NewJobRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, 5*time.Minute, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "blocklearn-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, cacheSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(instructorRepo, bookingRepo, cacheSvc, metricsSvc, logr,
		cfg.Booking.HorizonWeeks, time.Minute)
	bookingSvc := service.NewBookingService(bookingRepo, instructorRepo, transactionRepo, availabilitySvc,
		validate, metricsSvc, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, transactionRepo, cacheSvc,
		validate, logr, cfg.Catalog.CacheTTL)
	forumSvc := service.NewForumService(forumRepo, validate, logr)
	hackathonSvc := service.NewHackathonService(hackathonRepo, validate, logr)
	jobSvc := service.NewJobService(jobRepo, validate, logr)
	paymentSvc := service.NewPaymentService(transactionRepo, cacheSvc, logr, cfg.Payments.CacheTTL)

	var reminderSvc *service.ReminderService
	if cfg.Reminders.Enabled {
		reminderSvc = service.NewReminderService(bookingRepo, userRepo, logr,
			cfg.Reminders.LeadTime, cfg.Reminders.WorkerConcurrency, cfg.Reminders.WorkerRetries)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc, availabilitySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	forumHandler := handler.NewForumHandler(forumSvc)
	hackathonHandler := handler.NewHackathonHandler(hackathonSvc)
	jobHandler := handler.NewJobHandler(jobSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateProfile)
		users.GET("/:id", userHandler.Get)
		users.DELETE("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Deactivate)
	}

	instructors := api.Group("/instructors")
	{
		instructors.GET("", instructorHandler.List)
		instructors.GET("/:id", instructorHandler.Get)
		instructors.GET("/:id/availability", instructorHandler.Availability)
		instructors.GET("/:id/availability/times", instructorHandler.AvailableTimes)
		instructors.GET("/:id/availability/selectable", instructorHandler.DateSelectable)

		me := instructors.Group("/me", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor))
		{
			me.PUT("", instructorHandler.UpsertProfile)
			me.GET("/availability-template", instructorHandler.GetTemplate)
			me.PUT("/availability-template", instructorHandler.UpdateTemplate)
		}
	}

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	{
		bookings.GET("", bookingHandler.List)
		bookings.POST("", middleware.RequireRoles(models.RoleStudent), bookingHandler.Create)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("/:id/accept", middleware.RequireRoles(models.RoleInstructor), bookingHandler.Accept)
		bookings.POST("/:id/decline", middleware.RequireRoles(models.RoleInstructor), bookingHandler.Decline)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
		bookings.POST("/:id/complete", middleware.RequireRoles(models.RoleInstructor), bookingHandler.Complete)
		bookings.POST("/:id/review", middleware.RequireRoles(models.RoleStudent), bookingHandler.Review)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/enrollments", middleware.JWT(authSvc), courseHandler.MyEnrollments)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Update)
		courses.POST("/:id/lessons", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.AddLesson)
		courses.POST("/:id/enroll", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), courseHandler.Enroll)
		courses.GET("/:id/progress", middleware.JWT(authSvc), courseHandler.Progress)
	}
	api.PUT("/lessons/:id/progress", middleware.JWT(authSvc), courseHandler.RecordProgress)

	forum := api.Group("/forum/posts")
	{
		forum.GET("", forumHandler.ListPosts)
		forum.GET("/:id", forumHandler.GetPost)

		secured := forum.Group("", middleware.JWT(authSvc))
		secured.POST("", forumHandler.CreatePost)
		secured.POST("/:id/comments", forumHandler.AddComment)
		secured.POST("/:id/like", forumHandler.Like)
		secured.DELETE("/:id/like", forumHandler.Unlike)
	}

	hackathons := api.Group("/hackathons")
	{
		hackathons.GET("", hackathonHandler.List)
		hackathons.GET("/:id", hackathonHandler.Get)
		hackathons.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), hackathonHandler.Create)
		hackathons.POST("/:id/register", middleware.JWT(authSvc), hackathonHandler.Register)
	}

	jobsGroup := api.Group("/jobs")
	{
		jobsGroup.GET("", jobHandler.List)
		jobsGroup.GET("/:id", jobHandler.Get)
		jobsGroup.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), jobHandler.Create)
		jobsGroup.POST("/:id/apply", middleware.JWT(authSvc), jobHandler.Apply)
		jobsGroup.GET("/:id/applications", middleware.JWT(authSvc), jobHandler.Applications)
	}

	payments := api.Group("/payments", middleware.JWT(authSvc))
	{
		payments.GET("", paymentHandler.History)
		payments.GET("/earnings", middleware.RequireRoles(models.RoleInstructor), paymentHandler.Earnings)
		payments.GET("/earnings/export", middleware.RequireRoles(models.RoleInstructor), paymentHandler.ExportEarnings)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reminderSvc != nil {
		reminderSvc.Start(rootCtx)
		defer reminderSvc.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
