package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "payment-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the payment service.
type Config struct {
	Port                   string
	Env                    string
	RazorpayKeyID          string
	RazorpaySecret         string
	RazorpayBaseURL        string
	GatewayTimeout         time.Duration
	RedisURL               string
	OrderIdempotencyWindow time.Duration
	PaymentSNSTopicARN     string
	AllowedOrigins         []string
	UseAWSSecrets          bool
	// RazorpaySecretID names one JSON secret holding key_id and key_secret.
	// Empty means the separate payment/RAZORPAY_* secrets are read.
	RazorpaySecretID string
}

// RazorpayConfigured reports whether both gateway credentials are present.
func (c *Config) RazorpayConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpaySecret != ""
}

// SecretGetter resolves a named secret.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads configuration from the environment (and an optional .env
// file). Missing gateway credentials are not an error; callers decide.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[PaymentService] No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "5000"),
		Env:                    getEnv("APP_ENV", "development"),
		RazorpayKeyID:          os.Getenv("RAZORPAY_KEY_ID"),
		RazorpaySecret:         os.Getenv("RAZORPAY_SECRET"),
		RazorpayBaseURL:        getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		GatewayTimeout:         getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		RedisURL:               os.Getenv("REDIS_URL"),
		OrderIdempotencyWindow: getDuration("ORDER_IDEMPOTENCY_WINDOW", 10*time.Minute),
		PaymentSNSTopicARN:     os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		AllowedOrigins:         splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		UseAWSSecrets:          os.Getenv("AWS_USE_SECRETS") == "true",
		RazorpaySecretID:       os.Getenv("RAZORPAY_SECRET_ID"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	// Override gateway credentials from Secrets Manager when running on AWS
	if cfg.UseAWSSecrets {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			ApplySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
		} else {
			log.Printf("[PaymentService] AWS config unavailable, skipping Secrets Manager: %v", err)
		}
	}

	return cfg, nil
}

// ApplySecrets overrides gateway credentials with values found in sm.
// Unreadable or empty secrets leave the environment values in place.
func ApplySecrets(ctx context.Context, cfg *Config, sm SecretGetter) {
	keyName, secretName := "payment/RAZORPAY_KEY_ID", "payment/RAZORPAY_SECRET"
	if cfg.RazorpaySecretID != "" {
		keyName = cfg.RazorpaySecretID + "#key_id"
		secretName = cfg.RazorpaySecretID + "#key_secret"
	}

	if v, err := sm.GetSecret(ctx, keyName); err == nil && v != "" {
		cfg.RazorpayKeyID = v
	}
	if v, err := sm.GetSecret(ctx, secretName); err == nil && v != "" {
		cfg.RazorpaySecret = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("[PaymentService] Invalid %s=%q, using %s", key, val, fallback)
		return fallback
	}
	return d
}

func splitList(val string) []string {
	var out []string
	for _, o := range strings.Split(val, ",") {
		o = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(o), "/"))
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
