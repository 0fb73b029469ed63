package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/swifttransit/booking-backend/internal/config"
	"github.com/swifttransit/booking-backend/internal/database"
	"github.com/swifttransit/booking-backend/internal/handlers"
	"github.com/swifttransit/booking-backend/internal/middleware"
	"github.com/swifttransit/booking-backend/internal/models"
	"github.com/swifttransit/booking-backend/internal/services"
	"github.com/swifttransit/booking-backend/pkg/sms"
	"github.com/swifttransit/booking-backend/pkg/ticket"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SwiftTransit Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Connect to the document store
	logger.Info("Connecting to MongoDB...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := database.Connect(ctx, cfg.Mongo)
	cancel()
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.WithError(err).Error("Failed to disconnect from MongoDB")
		}
	}()
	db := client.Database(cfg.Mongo.Database)
	logger.Info("MongoDB connection established")

	// Initialize repositories
	tripRepo := database.NewTripRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	routeRepo := database.NewRouteRepository(db)
	fareMatrixRepo := database.NewFareMatrixRepository(db)
	ticketRepo := database.NewTicketRepository(db)

	// Ensure indexes (unique booking code, payment reference lookups)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := bookingRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("Failed to ensure booking indexes: %v", err)
		}
		cancel()
	}

	// Revenue ledger is optional; without it entries are dropped with a log line
	var ledger services.LedgerRecorder
	if cfg.Ledger.URL != "" {
		logger.Info("Connecting to ledger database...")
		ledgerDB, err := database.ConnectLedger(cfg.Ledger)
		if err != nil {
			logger.Fatalf("Failed to connect to ledger database: %v", err)
		}
		defer ledgerDB.Close()
		ledger = database.NewLedgerRepository(ledgerDB)
		logger.Info("Ledger database connection established")
	} else {
		logger.Warn("No ledger database configured, revenue entries will only be logged")
		ledger = &logOnlyLedger{logger: logger}
	}

	// SMS gateway
	var gateway sms.Gateway
	if cfg.SMS.Mode == "production" {
		gateway = sms.NewHTTPGateway(sms.HTTPConfig{
			APIURL:   cfg.SMS.APIURL,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
		})
	} else {
		gateway = sms.NewConsoleGateway(logger)
	}
	logger.Infof("SMS gateway: %s", gateway.GetName())

	// Initialize services
	logger.Info("Initializing services...")
	signer := ticket.NewSigner(cfg.Ticket.Secret, cfg.Ticket.Grace)
	ticketService := services.NewTicketService(signer, ticketRepo, logger)
	pricingService := services.NewPricingService(routeRepo, fareMatrixRepo, logger)
	notificationService := services.NewNotificationService(gateway, logger)
	txnRunner := database.NewSessionRunner(client, logger)

	bookingService := services.NewBookingService(
		tripRepo,
		bookingRepo,
		pricingService,
		ticketService,
		ledger,
		notificationService,
		txnRunner,
		services.BookingServiceConfig{
			Currency:      cfg.Booking.Currency,
			TaxRate:       cfg.Booking.TaxRate,
			CodePrefix:    cfg.Booking.CodePrefix,
			CodeAttempts:  5,
			RefundCutoff:  cfg.Booking.RefundCutoff,
			FullRefundPct: cfg.Booking.FullRefundPct,
			LateRefundPct: cfg.Booking.LateRefundPct,
		},
		logger,
	)

	// Start the expiry sweep so abandoned bookings release their seats
	expiryService := services.NewBookingExpiryService(bookingRepo, tripRepo, cfg.Booking.HoldTTL, logger)
	if err := expiryService.Start(); err != nil {
		logger.Fatalf("Failed to start booking expiry service: %v", err)
	}
	defer expiryService.Stop()

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	tripHandler := handlers.NewTripHandler(tripRepo, logger)
	ticketHandler := handlers.NewTicketHandler(ticketService, logger)
	webhookHandler := handlers.NewWebhookHandler(bookingService, cfg.Payment, logger)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Channel())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/pay", bookingHandler.PayBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/check-in", bookingHandler.CheckInBooking)
		}

		v1.GET("/trips/:id/seats", tripHandler.GetTripSeats)
		v1.POST("/tickets/validate", ticketHandler.ValidateTicket)
		v1.POST("/payments/webhook", webhookHandler.HandlePaymentWebhook)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// logOnlyLedger stands in for the Postgres ledger when none is configured.
type logOnlyLedger struct {
	logger *logrus.Logger
}

func (l *logOnlyLedger) RecordEntry(_ context.Context, entry models.LedgerEntry) error {
	l.logger.WithFields(logrus.Fields{
		"debit":        entry.DebitAccount,
		"credit":       entry.CreditAccount,
		"amount":       entry.Amount,
		"booking_code": entry.BookingCode,
	}).Info("Ledger entry (no ledger database configured)")
	return nil
}
