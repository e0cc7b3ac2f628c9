package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDedupDB  int    `mapstructure:"REDIS_DEDUP_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// WhatsApp Cloud API gateway.
	GatewayBaseURL     string `mapstructure:"GATEWAY_BASE_URL"`
	GatewayToken       string `mapstructure:"GATEWAY_TOKEN"`
	GatewayPhoneID     string `mapstructure:"GATEWAY_PHONE_ID"`
	GatewayVerifyToken string `mapstructure:"GATEWAY_VERIFY_TOKEN"`

	// Google APIs (Distance Matrix, Gemini, Speech-to-Text).
	GoogleAPIKey string `mapstructure:"GOOGLE_API_KEY"`
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Stripe payment links.
	StripeKey      string `mapstructure:"STRIPE_KEY"`
	PaymentBaseURL string `mapstructure:"PAYMENT_BASE_URL"`

	// Ops dashboard credentials (password stored as bcrypt hash).
	AdminUser         string `mapstructure:"ADMIN_USER"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	// Firebase service account for dispatch-team pushes.
	FirebaseCredentials string `mapstructure:"FIREBASE_CREDENTIALS"`
	DispatchTopic       string `mapstructure:"DISPATCH_TOPIC"`

	Currency string `mapstructure:"CURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DEDUP_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GATEWAY_BASE_URL", "https://graph.facebook.com/v19.0")
	viper.SetDefault("DISPATCH_TOPIC", "dispatch")
	viper.SetDefault("CURRENCY", "AED")

	// Read configuration file if available.
	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// GetEnv returns the application environment.
func GetEnv() string {
	return AppConfig.Env
}

// IsProduction checks if the environment is production.
func IsProduction() bool {
	return GetEnv() == "production"
}
