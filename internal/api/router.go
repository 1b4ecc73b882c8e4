package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"weddingplanners/api/internal/api/handlers"
	"weddingplanners/api/internal/api/middleware"
	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/email"
	"weddingplanners/api/internal/metrics"
	"weddingplanners/api/internal/services"
	"weddingplanners/api/internal/tasks"
)

const (
	testEmailPollAttempts = 10
	testEmailPollInterval = 200 * time.Millisecond
)

// SetupRouter configures and returns the main Gin engine. notifier may be nil.
func SetupRouter(cfg *config.Config, store db.Store, notifier services.InquiryNotifier, registry *prometheus.Registry, log zerolog.Logger) *gin.Engine {
	rec := metrics.NewRecorder(registry)

	plannerService := services.NewPlannerService(store, cfg, rec, log)
	inquiryService := services.NewInquiryService(store, cfg, notifier, rec, log)
	diagnosticsService := services.NewDiagnosticsService(store, cfg)

	r := gin.New()
	// Client IPs come from X-Forwarded-For only when the peer is a configured proxy.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	// Apply global middleware first (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger(), rec))
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, log)

	// Initialize handlers
	restStatusHandler := handlers.NewRestStatusHandler(diagnosticsService)
	restPlannerHandler := handlers.NewRestPlannerHandler(plannerService, cfg.PlannersDefaultLimit)
	restInquiryHandler := handlers.NewRestInquiryHandler(inquiryService)

	r.GET("/", restStatusHandler.Root)
	r.GET("/test", restStatusHandler.Diagnostics)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/planners", restPlannerHandler.ListPlanners)
		apiGroup.POST("/inquiries", rateLimiter.Limit(), restInquiryHandler.SubmitInquiry)
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// rdb may be nil, in which case getTestEmail reports Redis as unavailable.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}, log zerolog.Logger) *gin.Engine {
	log = log.With().Str("component", "service-api").Logger()

	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info().Msg("received shutdown command")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn().Msg("shutdown already signaled")
			}

		case "getTestEmail":
			// Expect [email] or [kind, email]
			var args []string
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) < 1 || len(args) > 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email] or [kind, email]"})
				return
			}
			kind, emailAddr := tasks.MailKindInquiryNotify, args[0]
			if len(args) == 2 {
				kind, emailAddr = args[0], args[1]
			}
			if rdb == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis not configured"})
				return
			}

			emailData, err := pollTestEmail(c.Request.Context(), rdb, email.MockEmailKey(emailAddr, kind))
			switch {
			case errors.Is(err, redis.Nil):
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for %s (%s)", emailAddr, kind)})
			case err != nil:
				log.Error().Err(err).Msg("failed to read test email")
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			default:
				c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
			}

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollTestEmail waits briefly for a mock email to appear, then consumes it.
func pollTestEmail(ctx context.Context, rdb *redis.Client, key string) (*email.StoredEmail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for i := 0; i < testEmailPollAttempts; i++ {
		data, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			var stored email.StoredEmail
			if err := json.Unmarshal([]byte(data), &stored); err != nil {
				return nil, fmt.Errorf("failed to parse stored email data: %w", err)
			}
			return &stored, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, redis.Nil
		case <-time.After(testEmailPollInterval):
		}
	}
	return nil, redis.Nil
}
