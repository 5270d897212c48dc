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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edulog/attendance-api/api/swagger"
	"github.com/edulog/attendance-api/internal/handler"
	"github.com/edulog/attendance-api/internal/middleware"
	"github.com/edulog/attendance-api/internal/repository"
	"github.com/edulog/attendance-api/internal/service"
	"github.com/edulog/attendance-api/pkg/cache"
	"github.com/edulog/attendance-api/pkg/config"
	"github.com/edulog/attendance-api/pkg/database"
	"github.com/edulog/attendance-api/pkg/logger"
	corsmiddleware "github.com/edulog/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edulog/attendance-api/pkg/middleware/requestid"
)

// @title Group Attendance Journal API
// @version 1.0.0
// @description Per-student hourly attendance with daily and period aggregations
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
		}
	}

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	studentSvc := service.NewStudentService(studentRepo, cacheSvc, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, cacheSvc, nil, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "attendance-api",
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(attendanceSvc, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	var attendanceHandler *handler.AttendanceHandler
	if exportSvc != nil {
		attendanceHandler = handler.NewAttendanceHandler(attendanceSvc, exportSvc)
	} else {
		attendanceHandler = handler.NewAttendanceHandler(attendanceSvc, nil)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/students", studentHandler.List)
	api.GET("/attendance", attendanceHandler.List)
	api.GET("/attendance/period", attendanceHandler.Period)
	api.GET("/attendance/period/export", attendanceHandler.ExportPeriod)
	api.GET("/attendance/stats", attendanceHandler.DailyStats)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.POST("/students", studentHandler.Create)
	protected.DELETE("/students/:id", studentHandler.Delete)
	protected.POST("/students/batch", studentHandler.BatchRegister)
	protected.POST("/attendance", attendanceHandler.Record)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
