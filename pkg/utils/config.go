package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Pricing  PricingConfig
	Resend   ResendConfig
	Desk     DeskConfig
}

type AppConfig struct {
	Name         string
	Port         string
	Debug        bool
	LogPath      string
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueDB  int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type PricingConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ResendConfig struct {
	APIKey string
	From   string
}

// DeskConfig carries the front-desk engine timings. The CLI reads the same keys.
type DeskConfig struct {
	APIBaseURL            string
	StaffToken            string
	PollInterval          time.Duration
	PollAttempts          int
	ConfirmRetryBackoff   time.Duration
	PaymentSurfaceDelay   time.Duration
	EstimateDebounce      time.Duration
	DuplicateNameDebounce time.Duration
	SearchDebounce        time.Duration
	ExternalIDMinLength   int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "roster-desk")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("STRIPE_CURRENCY", "usd")
	viper.SetDefault("PRICING_TIMEOUT", "5s")
	viper.SetDefault("DESK_API_URL", "http://localhost:8080")
	viper.SetDefault("DESK_POLL_INTERVAL", "2s")
	viper.SetDefault("DESK_POLL_ATTEMPTS", 5)
	viper.SetDefault("DESK_CONFIRM_RETRY_BACKOFF", "1s")
	viper.SetDefault("DESK_PAYMENT_SURFACE_DELAY", "300ms")
	viper.SetDefault("DESK_ESTIMATE_DEBOUNCE", "300ms")
	viper.SetDefault("DESK_DUPLICATE_NAME_DEBOUNCE", "500ms")
	viper.SetDefault("DESK_SEARCH_DEBOUNCE", "300ms")
	viper.SetDefault("DESK_EXTERNAL_ID_MIN_LENGTH", 6)

	if err := viper.ReadInConfig(); err != nil {
		// env-only deployments have no .env file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:         viper.GetString("APP_NAME"),
			Port:         viper.GetString("PORT"),
			Debug:        viper.GetBool("DEBUG"),
			LogPath:      viper.GetString("LOG_PATH"),
			CORSOrigins:  splitList(viper.GetString("CORS_ORIGINS")),
			RateLimitRPS: viper.GetFloat64("RATE_LIMIT_RPS"),
			RateBurst:    viper.GetInt("RATE_LIMIT_BURST"),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			QueueDB:  viper.GetInt("REDIS_QUEUE_DB"),
		},
		Stripe: StripeConfig{
			SecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      viper.GetString("STRIPE_CURRENCY"),
		},
		Pricing: PricingConfig{
			BaseURL: viper.GetString("PRICING_URL"),
			Timeout: viper.GetDuration("PRICING_TIMEOUT"),
		},
		Resend: ResendConfig{
			APIKey: viper.GetString("RESEND_API_KEY"),
			From:   viper.GetString("RESEND_FROM"),
		},
		Desk: DeskConfig{
			APIBaseURL:            viper.GetString("DESK_API_URL"),
			StaffToken:            viper.GetString("DESK_STAFF_TOKEN"),
			PollInterval:          viper.GetDuration("DESK_POLL_INTERVAL"),
			PollAttempts:          viper.GetInt("DESK_POLL_ATTEMPTS"),
			ConfirmRetryBackoff:   viper.GetDuration("DESK_CONFIRM_RETRY_BACKOFF"),
			PaymentSurfaceDelay:   viper.GetDuration("DESK_PAYMENT_SURFACE_DELAY"),
			EstimateDebounce:      viper.GetDuration("DESK_ESTIMATE_DEBOUNCE"),
			DuplicateNameDebounce: viper.GetDuration("DESK_DUPLICATE_NAME_DEBOUNCE"),
			SearchDebounce:        viper.GetDuration("DESK_SEARCH_DEBOUNCE"),
			ExternalIDMinLength:   viper.GetInt("DESK_EXTERNAL_ID_MIN_LENGTH"),
		},
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
