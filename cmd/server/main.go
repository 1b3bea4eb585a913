package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/agerestore/internal/backend"
	"github.com/jo-hoe/agerestore/internal/common"
	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/jo-hoe/agerestore/internal/mail"
	"github.com/jo-hoe/agerestore/internal/uploadguard"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func getConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

// loadDotEnv reads secrets from .env when present; real environment variables win
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("failed to load .env: %v", err)
		}
		return
	}
	log.Printf("loaded environment from .env")
}

func main() {
	loadDotEnv()

	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		log.Printf("failed to load config from %s: %v", configPath, err)
		panic(err)
	}

	options := []core.Option{core.WithMailer(mail.NewLogMailer(slog.Default()))}
	redisClient := newRedisClient(config.Redis)
	if redisClient != nil {
		options = append(options, core.WithUploadGuard(uploadguard.NewRedisGuard(redisClient, config.Redis.LockTTL)))
	}

	coreService, err := core.NewCoreService(config, options...)
	if err != nil {
		log.Printf("failed to create core service: %v", err)
		panic(err)
	}
	server := defineServer()

	apiService := backend.NewAPIService(config, coreService)
	apiService.SetRoutes(server)

	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())
	go apiService.RunMaintenance(maintenanceCtx, 5*time.Minute)

	portString := fmt.Sprintf(":%d", config.Port)

	go func() {
		log.Printf("starting server on port %d", config.Port)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")
	stopMaintenance()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := coreService.Close(); err != nil {
		log.Printf("core service close error: %v", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}
}

// newRedisClient returns nil when no address is configured; uploads then rely
// on the database constraint alone
func newRedisClient(cfg core.Redis) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis at %s not reachable yet: %v", cfg.Addr, err)
	} else {
		log.Printf("upload guard using redis at %s", cfg.Addr)
	}
	return client
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// probes are too noisy to log
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRoutePath: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remoteIP", v.RemoteIP,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request handled", attrs...)
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = common.NewGenericEchoValidator()

	return e
}
