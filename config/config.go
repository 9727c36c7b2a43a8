package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Tokens   TokenConfig
	Email    EmailConfig
}

type AppConfig struct {
	Name           string
	Environment    string
	FrontendHost   string
	AllowedOrigins []string
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type HTTPConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	DSN          string
	QueryTimeout time.Duration
}

type JWTConfig struct {
	Secret               string
	Algorithm            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	SlidingWindow        bool
	RenewalThresholdDays int
}

type TokenConfig struct {
	VerificationTTL time.Duration
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
}

const minJWTSecretLength = 32

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")
	if !validEnvironments[environment] {
		return nil, fmt.Errorf("ENVIRONMENT must be one of development, staging, production, got %q", environment)
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is required")
	}
	if len(jwtSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be at least %d characters", minJWTSecretLength)
	}

	algorithm := getEnv("JWT_ALGORITHM", "HS256")
	switch algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported JWT_ALGORITHM %q", algorithm)
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	accessTTL := getMinutesEnv("ACCESS_TOKEN_EXPIRE_MINUTES", 15)
	if accessTTL < time.Minute || accessTTL > 1440*time.Minute {
		return nil, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be between 1 and 1440")
	}

	refreshTTL := getMinutesEnv("REFRESH_TOKEN_EXPIRE_MINUTES", 10080)
	if refreshTTL < time.Minute {
		return nil, errors.New("REFRESH_TOKEN_EXPIRE_MINUTES must be at least 1")
	}

	frontendHost := getEnv("FRONTEND_HOST", "http://localhost:3000")

	cfg := &Config{
		App: AppConfig{
			Name:           getEnv("APP_NAME", "Vota Bien"),
			Environment:    environment,
			FrontendHost:   frontendHost,
			AllowedOrigins: loadAllowedOrigins(frontendHost),
		},
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", ""),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN:          mysqlDSN,
			QueryTimeout: time.Duration(getIntEnv("DB_QUERY_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:               jwtSecret,
			Algorithm:            algorithm,
			AccessTokenTTL:       accessTTL,
			RefreshTokenTTL:      refreshTTL,
			SlidingWindow:        getBoolEnv("REFRESH_TOKEN_SLIDING_WINDOW", true),
			RenewalThresholdDays: getIntEnv("REFRESH_TOKEN_RENEWAL_THRESHOLD_DAYS", 2),
		},
		Tokens: TokenConfig{
			VerificationTTL: getMinutesEnv("VERIFICATION_TOKEN_EXPIRE_MINUTES", 24*60),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("EMAIL_FROM", defaultEmailFrom(environment)),
		},
	}

	return cfg, nil
}

func defaultEmailFrom(environment string) string {
	switch environment {
	case "production":
		return "noreply@votabienperu.com"
	case "staging":
		return "staging@votabienperu.com"
	default:
		return "dev@resend.dev"
	}
}

func loadAllowedOrigins(frontendHost string) []string {
	var origins []string
	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", frontendHost), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	for _, origin := range origins {
		if origin == frontendHost {
			return origins
		}
	}
	return append(origins, frontendHost)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultMinutes int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return time.Duration(defaultMinutes) * time.Minute
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
