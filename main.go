package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"weather-dashboard-backend/cache"
	"weather-dashboard-backend/config"
	"weather-dashboard-backend/controllers"
	"weather-dashboard-backend/database"
	"weather-dashboard-backend/jobs"
	"weather-dashboard-backend/middlewares"
	"weather-dashboard-backend/openweather"
	"weather-dashboard-backend/routes"
	"weather-dashboard-backend/tasks"
	"weather-dashboard-backend/weatherdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Level = parseLogLevel(os.Getenv("LOG_LEVEL"))
	return zcfg.Build()
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// ---- Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	// ---- Cache backend
	var store cache.Cache
	if cfg.Cache.MemcachedAddrs != "" {
		store = cache.NewMemcached(cfg.Cache.MemcachedAddrs, logger)
		logger.Info("using memcached cache", zap.String("addrs", cfg.Cache.MemcachedAddrs))
	} else {
		store = cache.NewMemory()
	}

	// ---- Weather pipeline
	client := openweather.NewClient(cfg.Weather, logger)
	directory := weatherdata.NewDirectory(db, client, cfg.Weather, logger)
	samples := weatherdata.NewStore(db)
	queue := tasks.NewQueue(64, logger)

	refresher := jobs.NewRefresher(db, directory, samples, client, cfg.Weather, logger)
	scheduler := jobs.NewScheduler(refresher, cfg.Weather.UpdateInterval, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("failed to start refresh scheduler", zap.Error(err))
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.NewErrorHandler(logger),
		BodyLimit:    cfg.HTTP.BodyLimitBytes,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.HTTP.RateLimitMax,
		Expiration: cfg.HTTP.RateLimitWindow,
	}))

	routes.Register(app, db, cfg.Auth.JWTSecret, routes.Controllers{
		Auth: &controllers.AuthController{
			DB:  db,
			Cfg: cfg.Auth,
			Log: logger,
		},
		Weather: &controllers.WeatherController{
			DB:        db,
			Cache:     store,
			Client:    client,
			Directory: directory,
			Store:     samples,
			Tasks:     queue,
			Cfg:       cfg.Weather,
			Log:       logger,
		},
		City: &controllers.CityController{
			DB:        db,
			Client:    client,
			Directory: directory,
			Store:     samples,
			Cfg:       cfg.Weather,
			Log:       logger,
		},
	})

	// ---- Start with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.HTTP.Port); err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	}()
	logger.Info("API server started", zap.String("port", cfg.HTTP.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}

	scheduler.Stop()
	queue.Close()
}
