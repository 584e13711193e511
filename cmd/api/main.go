package main

import (
	"context"
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

	_ "github.com/noah-isme/campus-admin-api/api/swagger"
	"github.com/noah-isme/campus-admin-api/internal/handler"
	"github.com/noah-isme/campus-admin-api/internal/middleware"
	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/repository"
	"github.com/noah-isme/campus-admin-api/internal/service"
	"github.com/noah-isme/campus-admin-api/pkg/cache"
	"github.com/noah-isme/campus-admin-api/pkg/config"
	"github.com/noah-isme/campus-admin-api/pkg/database"
	"github.com/noah-isme/campus-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-admin-api/pkg/middleware/requestid"
)

// @title Campus Admin API
// @version 1.0.0
// @description Multi-tenant academic administration portal
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, seat cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Enrollment.SeatCacheTTL, logr, cfg.Enrollment.SeatCacheEnabled)
	authSvc := service.NewAuthService(userRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, studentRepo, userRepo, cacheSvc, metricsSvc, validate, logr)
	querySvc := service.NewQueryService(courseRepo, enrollmentRepo, cacheSvc, cfg.Enrollment.SeatCacheTTL, cfg.Enrollment.PendingPageSize, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, cacheSvc, validate, logr)
	collegeSvc := service.NewCollegeService(collegeRepo, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, collegeRepo, userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, querySvc)
	courseHandler := handler.NewCourseHandler(courseSvc, querySvc)
	collegeHandler := handler.NewCollegeHandler(collegeSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	api.GET("/colleges", collegeHandler.List)
	api.GET("/courses", courseHandler.Browse)
	api.GET("/courses/:id/seats", courseHandler.Seats)

	api.POST("/student/register", studentHandler.Register)
	api.POST("/college/register", collegeHandler.Register)

	student := api.Group("/student", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	{
		student.POST("/enroll",
			middleware.Audit(userRepo, models.AuditActionEnrollmentRequest, "enrollment"),
			enrollmentHandler.Request)
		student.GET("/enrollments", enrollmentHandler.MyEnrollments)
		student.GET("/profile", studentHandler.Profile)
		student.PUT("/profile", studentHandler.UpdateProfile)
	}

	college := api.Group("/college", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCollegeAdmin))
	{
		college.GET("/courses", courseHandler.ListOwn)
		college.POST("/courses", courseHandler.Create)
		college.PUT("/courses/:id", courseHandler.Update)
		college.DELETE("/courses/:id", courseHandler.Delete)

		college.GET("/enrollments/pending", enrollmentHandler.PendingQueue)
		college.POST("/enrollments/:id/approve",
			middleware.Audit(userRepo, models.AuditActionEnrollmentDecide, "enrollment"),
			enrollmentHandler.Approve)
		college.POST("/enrollments/:id/reject",
			middleware.Audit(userRepo, models.AuditActionEnrollmentDecide, "enrollment"),
			enrollmentHandler.Reject)
	}

	superadmin := api.Group("/superadmin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSuperAdmin))
	{
		superadmin.GET("/requests", collegeHandler.ListRequests)
		superadmin.POST("/requests/:id/approve",
			middleware.Audit(userRepo, models.AuditActionCollegeDecide, "college_request"),
			collegeHandler.ApproveRequest)
		superadmin.POST("/requests/:id/reject",
			middleware.Audit(userRepo, models.AuditActionCollegeDecide, "college_request"),
			collegeHandler.RejectRequest)
		superadmin.GET("/colleges", collegeHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
