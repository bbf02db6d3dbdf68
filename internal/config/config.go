package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	JWTSecret string
	AppEnv    string

	// AMQPUrl points at the broker the signaling relay listens on. Empty
	// disables lifecycle event publishing.
	AMQPUrl       string
	EventExchange string

	// Payment gateway credentials for credit package purchases.
	OmisePublicKey string
	OmiseSecretKey string
	Currency       string

	// CreditUnitValue is the currency value of a single platform credit.
	CreditUnitValue float64
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	creditUnit, err := getEnvFloat("CREDIT_UNIT_VALUE", 10)
	if err != nil {
		return nil, fmt.Errorf("CREDIT_UNIT_VALUE must be a number: %v", err)
	}
	if creditUnit <= 0 {
		return nil, fmt.Errorf("CREDIT_UNIT_VALUE must be positive")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
		AMQPUrl:         getEnv("AMQP_URL", ""),
		EventExchange:   getEnv("EVENT_EXCHANGE", "booking_topic"),
		OmisePublicKey:  getEnv("OMISE_PUBLIC_KEY", ""),
		OmiseSecretKey:  getEnv("OMISE_SECRET_KEY", ""),
		Currency:        strings.ToLower(getEnv("CURRENCY", "brl")),
		CreditUnitValue: creditUnit,
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) GatewayConfigured() bool {
	return c != nil && c.OmisePublicKey != "" && c.OmiseSecretKey != ""
}
