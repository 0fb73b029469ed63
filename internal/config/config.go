package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Ledger  LedgerConfig
	Booking BookingConfig
	Ticket  TicketConfig
	Payment PaymentConfig
	SMS     SMSConfig
	CORS    CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// MongoConfig holds document-store configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// LedgerConfig holds the revenue-ledger Postgres configuration. The ledger
// is an optional collaborator; with an empty URL, entries are logged only.
type LedgerConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// BookingConfig holds booking business parameters
type BookingConfig struct {
	Currency      string        // ISO currency code, amounts stored in minor units
	TaxRate       float64       // applied to base fare, default 0.05
	CodePrefix    string        // human-readable booking code prefix
	HoldTTL       time.Duration // how long an unpaid PENDING booking keeps its seat
	RefundCutoff  time.Duration // full-refund-window boundary before departure
	FullRefundPct int           // refund % when cancelled before RefundCutoff
	LateRefundPct int           // refund % when cancelled inside RefundCutoff
}

// TicketConfig holds travel-credential signing configuration
type TicketConfig struct {
	Secret string
	Grace  time.Duration // validity past scheduled departure
}

// PaymentConfig holds payment-gateway credentials. The merchant token is
// never sent over the wire; it only feeds webhook check-value verification.
type PaymentConfig struct {
	MerchantKey   string
	MerchantToken string
}

// SMSConfig holds the notification gateway configuration
type SMSConfig struct {
	Mode     string // "dev" logs instead of sending
	APIURL   string
	APIKey   string
	SenderID string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", ""),
			Database:       getEnv("MONGO_DATABASE", "swifttransit"),
			ConnectTimeout: time.Duration(getEnvAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Ledger: LedgerConfig{
			URL:                getEnv("LEDGER_DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("LEDGER_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("LEDGER_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("LEDGER_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Booking: BookingConfig{
			Currency:      getEnv("BOOKING_CURRENCY", "GHS"),
			TaxRate:       getEnvAsFloat("TAX_RATE", 0.05),
			CodePrefix:    getEnv("BOOKING_CODE_PREFIX", "BK"),
			HoldTTL:       time.Duration(getEnvAsInt("BOOKING_HOLD_TTL_MINUTES", 30)) * time.Minute,
			RefundCutoff:  time.Duration(getEnvAsInt("REFUND_CUTOFF_MINUTES", 120)) * time.Minute,
			FullRefundPct: getEnvAsInt("REFUND_FULL_PCT", 90),
			LateRefundPct: getEnvAsInt("REFUND_LATE_PCT", 50),
		},
		Ticket: TicketConfig{
			Secret: getEnv("TICKET_SECRET", ""),
			Grace:  time.Duration(getEnvAsInt("TICKET_GRACE_HOURS", 6)) * time.Hour,
		},
		Payment: PaymentConfig{
			MerchantKey:   getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantToken: getEnv("PAYMENT_MERCHANT_TOKEN", ""),
		},
		SMS: SMSConfig{
			Mode:     getEnv("SMS_MODE", "dev"),
			APIURL:   getEnv("SMS_API_URL", ""),
			APIKey:   getEnv("SMS_API_KEY", ""),
			SenderID: getEnv("SMS_SENDER_ID", "SwiftTransit"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.Ticket.Secret == "" {
		return fmt.Errorf("TICKET_SECRET is required")
	}

	if c.Booking.TaxRate < 0 || c.Booking.TaxRate >= 1 {
		return fmt.Errorf("TAX_RATE must be in [0, 1), got %v", c.Booking.TaxRate)
	}

	if c.SMS.Mode == "production" && c.SMS.APIURL == "" {
		return fmt.Errorf("SMS_API_URL is required in production SMS mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
