// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Payment     PaymentConfig
	Commission  CommissionConfig
	Kafka       KafkaConfig
	Cart        CartConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// PaymentConfig carries everything the payment gateways need. Providers
// receive this struct at construction time and never read the environment
// themselves.
type PaymentConfig struct {
	DemoMode bool
	Currency string
	// CreditsRateUGX is the published exchange rate: UGX per one platform
	// credit. Used as the fallback when a product has no credit price.
	// Zero disables the fallback.
	CreditsRateUGX float64
	MTN            MTNConfig
	Airtel         AirtelConfig
	Stripe         StripeConfig
}

type MTNConfig struct {
	BaseURL           string
	SubscriptionKey   string
	APIUser           string
	APIKey            string
	TargetEnvironment string
	CallbackURL       string
}

type AirtelConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Country      string
	Currency     string
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
}

// CommissionTier maps a store subscription tier to the platform cut.
type CommissionTier struct {
	Percent    float64
	MinimumFee float64
}

type CommissionConfig struct {
	Tiers map[string]CommissionTier
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	OrderTopic string
}

type CartConfig struct {
	TTLHours int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: splitNonEmpty(getEnv("SERVER_ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "tunesoko"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Payment: PaymentConfig{
			DemoMode:       getEnvAsBool("PAYMENT_DEMO_MODE", true),
			Currency:       getEnv("PAYMENT_CURRENCY", "UGX"),
			CreditsRateUGX: getEnvAsFloat("CREDITS_RATE_UGX", 100.0),
			MTN: MTNConfig{
				BaseURL:           getEnv("MTN_MOMO_BASE_URL", "https://sandbox.momodeveloper.mtn.com"),
				SubscriptionKey:   getEnv("MTN_MOMO_SUBSCRIPTION_KEY", ""),
				APIUser:           getEnv("MTN_MOMO_API_USER", ""),
				APIKey:            getEnv("MTN_MOMO_API_KEY", ""),
				TargetEnvironment: getEnv("MTN_MOMO_TARGET_ENV", "sandbox"),
				CallbackURL:       getEnv("MTN_MOMO_CALLBACK_URL", ""),
			},
			Airtel: AirtelConfig{
				BaseURL:      getEnv("AIRTEL_MONEY_BASE_URL", "https://openapiuat.airtel.africa"),
				ClientID:     getEnv("AIRTEL_MONEY_CLIENT_ID", ""),
				ClientSecret: getEnv("AIRTEL_MONEY_CLIENT_SECRET", ""),
				Country:      getEnv("AIRTEL_MONEY_COUNTRY", "UG"),
				Currency:     getEnv("AIRTEL_MONEY_CURRENCY", "UGX"),
			},
			Stripe: StripeConfig{
				SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
				PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			},
		},
		Commission: CommissionConfig{
			Tiers: map[string]CommissionTier{
				"free": {
					Percent:    getEnvAsFloat("COMMISSION_FREE_PERCENT", 10.0),
					MinimumFee: getEnvAsFloat("COMMISSION_FREE_MINIMUM", 500),
				},
				"standard": {
					Percent:    getEnvAsFloat("COMMISSION_STANDARD_PERCENT", 7.0),
					MinimumFee: getEnvAsFloat("COMMISSION_STANDARD_MINIMUM", 300),
				},
				"premium": {
					Percent:    getEnvAsFloat("COMMISSION_PREMIUM_PERCENT", 5.0),
					MinimumFee: getEnvAsFloat("COMMISSION_PREMIUM_MINIMUM", 200),
				},
			},
		},
		Kafka: KafkaConfig{
			Enabled:    getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "orders.created"),
		},
		Cart: CartConfig{
			TTLHours: getEnvAsInt("CART_TTL_HOURS", 72),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Payment.DemoMode && c.Environment == "production" {
		return fmt.Errorf("payment demo mode must be disabled in production")
	}

	return nil
}

// Helper functions
func splitNonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
