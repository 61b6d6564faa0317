package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hospitalhub/accessgate/internal/config"
	"github.com/hospitalhub/accessgate/internal/database"
	"github.com/hospitalhub/accessgate/internal/handler"
	"github.com/hospitalhub/accessgate/internal/jobs"
	"github.com/hospitalhub/accessgate/internal/metrics"
	"github.com/hospitalhub/accessgate/internal/middleware"
	"github.com/hospitalhub/accessgate/internal/redis"
	"github.com/hospitalhub/accessgate/internal/repository"
	"github.com/hospitalhub/accessgate/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction()
	if isProduction {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}
	cancel()
	log.Info().Bool("migrated", cfg.MigrateOnStart).Msg("database connected")

	var (
		limiter     service.Limiter
		redisClient *redis.Client
	)
	if cfg.UsesRedis() {
		ctx, cancel := context.WithTimeout(context.Background(), config.RedisDialTimeout)
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiter = service.NewRedisRateLimiter(redisClient.Client)
		log.Info().Msg("redis connected")
	} else {
		limiter = service.NewMemoryRateLimiter()
		log.Info().Msg("REDIS_URL not set, using in-process rate limits")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	accessCodeRepo := repository.NewAccessCodeRepository(db.DB)
	adminSessionRepo := repository.NewAdminSessionRepository(db.DB)

	accessCodeService := service.NewAccessCodeService(
		accessCodeRepo, limiter, cfg.CodeGenerationLimit, cfg.CodeGenerationWindow(), m,
	)
	adminService := service.NewAdminService(
		adminSessionRepo, cfg.AdminUsers, cfg.AdminSessionSecret, cfg.SessionTTL(),
	)

	adminSessionMiddleware := middleware.NewAdminSessionMiddleware(adminService, len(cfg.AdminUsers) > 0)
	loginRateLimit := middleware.NewIPRateLimitMiddleware(
		limiter, cfg.LoginLimitPerMinute, config.LoginLimitWindow, "admin_login",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	accessCodeHandler := handler.NewAccessCodeHandler(accessCodeService, adminSessionMiddleware.Handler)
	adminHandler := handler.NewAdminHandler(
		adminService, adminSessionMiddleware.Handler, loginRateLimit.Handler, isProduction,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(m.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if redisClient != nil && !redisClient.Healthy(ctx) {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/access-codes", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Mount("/", accessCodeHandler.Routes())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	var sweeper jobs.CodeSweeper
	if cfg.ExpiredCodeSweep {
		sweeper = accessCodeService
	}
	cleanupJob := jobs.NewCleanupJob(adminSessionRepo, sweeper, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
