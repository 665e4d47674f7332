package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/database"
	"github.com/damoang/image-organizer/internal/handler"
	"github.com/damoang/image-organizer/internal/middleware"
	"github.com/damoang/image-organizer/internal/migration"
	"github.com/damoang/image-organizer/internal/render"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/internal/routes"
	"github.com/damoang/image-organizer/internal/service"
	pkgcache "github.com/damoang/image-organizer/pkg/cache"
	pkges "github.com/damoang/image-organizer/pkg/elasticsearch"
	"github.com/damoang/image-organizer/pkg/i18n"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/damoang/image-organizer/pkg/nonce"
	pkgredis "github.com/damoang/image-organizer/pkg/redis"
	pkgstorage "github.com/damoang/image-organizer/pkg/storage"
	"github.com/redis/go-redis/v9"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Image Organizer API
// @version         1.0
// @description     Gallery rendering, load-more, search and public uploads
//
// @license.name    MIT
//
// @host            localhost:8080
// @BasePath        /
//
// @securityDefinitions.apikey AdminAPIKey
// @in header
// @name X-API-Key

const ajaxPath = "/gallery/ajax"

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := config.ConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("failed to load config")
	}
	config.LogResolved(cfg)

	// DB 연결
	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	if err := migration.Run(db); err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("migration failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedDemo(db); err != nil {
			pkglogger.Warn("demo seed failed: %v", err)
		}
	}

	// Redis 연결 (캐시, 업로드 키, rate limit)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing with in-memory fallbacks)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}

	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
	}

	// Elasticsearch 연결
	var index service.MediaIndex
	if cfg.Elasticsearch.Enabled && len(cfg.Elasticsearch.Addresses) > 0 {
		esClient, esErr := pkges.NewClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password, cfg.Elasticsearch.Index)
		if esErr != nil {
			pkglogger.Warn("Elasticsearch connection failed: %v (continuing with database search)", esErr)
		} else if err := esClient.EnsureMediaIndex(context.Background()); err != nil {
			pkglogger.Warn("Elasticsearch index setup failed: %v (continuing with database search)", err)
		} else {
			index = esClient
		}
	}

	// 업로드 저장소
	var store pkgstorage.Storage
	var localRoot string
	if cfg.Storage.UseS3() {
		store, err = pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
	} else {
		var local *pkgstorage.LocalStorage
		local, err = pkgstorage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.LocalURL)
		if err == nil {
			store, localRoot = local, local.Root()
		}
	}
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("storage init failed")
	}

	// i18n Bundle
	i18nBundle := i18n.NewDefaultBundle()
	if _, err := os.Stat("i18n"); err == nil {
		if err := i18nBundle.LoadDir("i18n"); err != nil {
			pkglogger.Warn("i18n LoadDir failed: %v", err)
		}
	}

	builder, err := render.NewBuilder(i18nBundle)
	if err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("template parse failed")
	}
	nonces := nonce.NewManager(cfg.Nonce.Secret, cfg.Nonce.TTL)

	// Repositories / Services / Handlers
	mediaRepo := repository.NewMediaRepository(db)
	termRepo := repository.NewTermRepository(db)
	keyStore := repository.NewUploadKeyStore(redisClient)

	gallerySvc := service.NewGalleryService(mediaRepo, builder, cacheService, index, nonces, cfg.Gallery, ajaxPath)
	uploadSvc := service.NewUploadService(mediaRepo, termRepo, keyStore, store, builder, cacheService, index, cfg.Gallery)

	galleryHandler := handler.NewGalleryHandler(gallerySvc, uploadSvc, builder, i18nBundle, cfg.Gallery)
	adminHandler := handler.NewAdminHandler(uploadSvc)

	uploadLimit := middleware.DefaultUploadRateLimitConfig()
	if cfg.Gallery.UploadRateLimit > 0 {
		uploadLimit.Requests = cfg.Gallery.UploadRateLimit
	}
	if cfg.Gallery.UploadRateWindow > 0 {
		uploadLimit.Window = cfg.Gallery.UploadRateWindow
	}
	uploadLimiter := middleware.NewRateLimiter(redisClient, uploadLimit)

	// Gin 라우터 생성
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = 8 << 20

	// CORS 설정
	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "X-API-Key", "X-IO-Nonce", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "image-organizer",
			"time":    time.Now().Unix(),
		})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 로컬 저장소 업로드 파일 서빙
	if localRoot != "" {
		router.Static(cfg.Storage.LocalURL, localRoot)
	}

	routes.Setup(router, galleryHandler, adminHandler, nonces, uploadLimiter, i18nBundle, cfg)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// 서버 시작
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkglogger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkglogger.GetLogger().Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	pkglogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		pkglogger.Warn("graceful shutdown failed: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// splitAndTrim splits a string by delimiter and drops empty parts
func splitAndTrim(s string, delimiter string) []string {
	parts := []string{}
	for _, part := range strings.Split(s, delimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
