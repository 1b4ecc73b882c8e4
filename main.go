package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"weddingplanners/api/internal/api"
	"weddingplanners/api/internal/cache"
	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/email"
	"weddingplanners/api/internal/logging"
	"weddingplanners/api/internal/services"
	"weddingplanners/api/internal/tasks"
)

const shutdownTimeout = 15 * time.Second

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logging.New(cfg)

	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		log.Fatal().Str("mode", cfg.RunMode).Msg("invalid run mode")
	}

	// Redis backs notifications, the worker and the mock email sender. It is optional.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.ConnectRedis(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, inquiry notifications disabled")
		}
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Error().Err(err).Msg("error disconnecting from Redis")
		}
	}()

	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)

	// Start Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan, log),
	}
	startHTTPServer(&wg, serviceSrv, "service API", log)

	log.Info().Str("mode", cfg.RunMode).Msg("starting application")

	var mainApiSrv *http.Server
	var mongoClient *mongo.Client
	var taskClient *asynq.Client
	var backgroundTaskSrv *asynq.Server

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		var store db.Store
		var mongoDb *mongo.Database
		mongoClient, mongoDb, err = db.ConnectDB(cfg.DatabaseURL, cfg.DatabaseName, cfg.ConnectTimeout)
		switch {
		case errors.Is(err, db.ErrNotConfigured):
			log.Warn().Msg("DATABASE_URL not set, serving fallback planners and demo inquiries")
			store = db.Unavailable(err)
		case errors.Is(err, db.ErrUnreachable):
			log.Error().Err(err).Msg("database unreachable, serving fallback until it recovers")
			store = db.NewMongoStore(mongoDb)
		case err != nil:
			log.Error().Err(err).Msg("invalid database settings, serving fallback planners and demo inquiries")
			store = db.Unavailable(err)
		default:
			log.Info().Str("database", cfg.DatabaseName).Msg("connected to MongoDB")
			store = db.NewMongoStore(mongoDb)
		}

		var notifier services.InquiryNotifier
		if cfg.NotificationsEnabled() && redisClient != nil {
			taskClient = tasks.NewClient(cfg)
			notifier = tasks.NewInquiryNotifier(taskClient, cfg.InquiryNotifyTo, log)
			log.Info().Str("to", cfg.InquiryNotifyTo).Msg("inquiry notifications enabled")
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, store, notifier, registry, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		startHTTPServer(&wg, mainApiSrv, "main API", log)
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		if redisClient == nil {
			log.Warn().Msg("Redis not available, background worker not started")
		} else {
			backgroundTaskSrv = tasks.NewServer(cfg, log)
			processor := tasks.NewTaskProcessor(cfg, newEmailSender(cfg, redisClient, log), log)
			if err := backgroundTaskSrv.Start(tasks.NewServeMux(processor)); err != nil {
				log.Fatal().Err(err).Msg("could not start background task server")
			}
			log.Info().Msg("background task server started")
		}
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case <-shutdownChan:
		log.Info().Msg("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("service API shutdown error")
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("main API shutdown error")
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}
	if taskClient != nil {
		if err := taskClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing task client")
		}
	}

	wg.Wait()

	if err := db.DisconnectDB(mongoClient); err != nil {
		log.Error().Err(err).Msg("error disconnecting from MongoDB")
	}
	log.Info().Msg("server gracefully stopped")
}

func startHTTPServer(wg *sync.WaitGroup, srv *http.Server, name string, log zerolog.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", srv.Addr).Msgf("%s listening", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msgf("%s ListenAndServe error", name)
		}
		log.Info().Msgf("%s stopped", name)
	}()
}

// newEmailSender picks the delivery chain for the worker. With MOCK_SERVICES
// emails land in Redis for the service API to read back.
func newEmailSender(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) email.Sender {
	if cfg.MockServices {
		log.Info().Msg("MOCK_SERVICES enabled, using Redis email sender")
		return email.NewCompositeEmailSender(
			email.NewLoggingSender(log.With().Str("component", "email").Logger()),
			email.NewRedisSender(rdb, log),
		)
	}
	return email.NewCompositeEmailSender(email.NewSMTPSender(cfg, log))
}
