package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pulse-analytics/config"
	"pulse-analytics/internal/controller"
	"pulse-analytics/internal/db"
	"pulse-analytics/internal/domain"
	mongorepo "pulse-analytics/internal/repository/mongo"
	"pulse-analytics/internal/service/analytics"
	"pulse-analytics/internal/service/export"
	"pulse-analytics/internal/service/ingest"
	"pulse-analytics/internal/service/session"
	"pulse-analytics/internal/usecase"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()

	mongoDB, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoDB.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB")
		}
	}()

	cache := db.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if cache != nil {
		defer cache.Close()
	}

	// Stores
	eventRepo := mongorepo.NewEventRepository(mongoDB)
	sessionRepo := mongorepo.NewSessionRepository(mongoDB)
	userRepo := mongorepo.NewUserRepository(mongoDB)

	// Services
	clock := domain.SystemClock{}
	ids := domain.UUIDGenerator{}
	ingestSvc := ingest.NewService(eventRepo, sessionRepo, userRepo, clock, ids)
	sessionSvc := session.NewService(sessionRepo, clock, cfg.SessionInactivity)
	analyticsSvc := analytics.NewService(eventRepo, sessionRepo, userRepo, clock, cache)
	exportJob := export.NewJob(analyticsSvc, &export.FileSink{Path: cfg.ExportPath}, clock)

	// Scheduled jobs: expiry sweep, retention sweep, report export
	scheduler := cron.New()
	_, _ = scheduler.AddFunc("* * * * *", func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := sessionSvc.ExpireInactive(sweepCtx); err != nil {
			log.Error().Err(err).Msg("session expiry sweep failed")
		}
	})
	if cfg.RetentionDays > 0 {
		_, _ = scheduler.AddFunc("30 0 * * *", func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			cutoff := clock.Now().AddDate(0, 0, -cfg.RetentionDays)
			if _, err := ingestSvc.DeleteOlderThan(sweepCtx, cutoff); err != nil {
				log.Error().Err(err).Msg("retention sweep failed")
			}
		})
	}
	_, _ = scheduler.AddFunc(cfg.ExportSchedule, func() {
		exportCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := exportJob.Run(exportCtx, export.Daily); err != nil {
			log.Error().Err(err).Msg("daily export failed")
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	handlers := usecase.NewHandlers(ingestSvc, sessionSvc, analyticsSvc, userRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	controller.RegisterRoutes(r, handlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("analytics API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Let in-flight counter updates settle before the stores go away.
	ingestSvc.Wait()

	log.Info().Msg("server exiting")
}
