// File: luxride/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luxride/config"
	"luxride/cron"
	"luxride/database"
	sessionRepo "luxride/database/repository/session"
	"luxride/handlers"
	"luxride/middleware"
	"luxride/routes"
	"luxride/services/booking"
	"luxride/services/gateway"
	ai "luxride/services/intelligence"
	"luxride/services/notification"
	"luxride/services/router"
	"luxride/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()
	if err := utils.InitCloudinary(); err != nil {
		logger.Sugar().Warnf("main: cloudinary unavailable, media archiving disabled: %v", err)
	}
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.ErrorHandler())
	engine.Use(gin.Logger())
	engine.Use(middleware.RateLimitMiddleware())

	// Repositories.
	repo := sessionRepo.NewMongoSessionRepo()

	// Core booking services.
	store := booking.NewSessionStore(repo, logger)
	if err := store.LoadActive(context.Background()); err != nil {
		logger.Sugar().Warnf("main: failed to warm session store: %v", err)
	}

	notifier, err := notification.NewDefaultDispatchNotificationService(config.AppConfig.DispatchTopic)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize dispatch notifications: %v", err)
	}

	cleanup := cron.NewAsynqCleanupScheduler()

	flow := &booking.DefaultBookingFlowService{
		Store:    store,
		Oracle:   booking.NewGoogleOracle(config.AppConfig.GoogleAPIKey),
		Payments: &booking.StripePaymentLinker{
			SuccessURL: config.AppConfig.PaymentBaseURL + "/success",
			CancelURL:  config.AppConfig.PaymentBaseURL + "/cancelled",
		},
		Cleanup:  cleanup,
		Notifier: notifier,
		Currency: config.AppConfig.Currency,
		Logger:   logger,
	}

	// Language inference and messaging.
	intelligence := ai.NewDefaultIntelligenceService(
		ai.NewGeminiClient(config.AppConfig.GeminiAPIKey),
		mustSpeechTranscriber(logger),
	)
	waGateway := gateway.NewWhatsAppGateway(
		config.AppConfig.GatewayBaseURL,
		config.AppConfig.GatewayToken,
		config.AppConfig.GatewayPhoneID,
	)

	convRouter := &router.ConversationRouter{
		Flow:    flow,
		Gateway: waGateway,
		AI:      intelligence,
		Dedup:   router.NewEventDeduper(utils.GetDedupClient()),
		Logger:  logger,
	}

	// Handlers and routes.
	webhookHandler := handlers.NewWebhookHandler(convRouter, config.AppConfig.GatewayVerifyToken, logger)
	opsHandler := handlers.NewBookingOpsHandler(flow, store, repo)
	routes.RegisterRoutes(engine, webhookHandler, opsHandler)

	// Background cleanup worker.
	cron.InitCleanupWorker(flow, store)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: engine,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

func mustSpeechTranscriber(logger *zap.Logger) *ai.SpeechTranscriber {
	stt, err := ai.NewSpeechTranscriber(config.AppConfig.FirebaseCredentials)
	if err != nil {
		logger.Sugar().Warnf("main: speech transcription unavailable: %v", err)
		return nil
	}
	return stt
}
