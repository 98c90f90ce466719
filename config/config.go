package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port        string `env:"PORT" envDefault:"8090"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis
	RedisURL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Broker
	PublishTimeout  time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"5s"`
	ConsumerBlock   time.Duration `env:"CONSUMER_BLOCK" envDefault:"5s"`
	ReclaimMinIdle  time.Duration `env:"RECLAIM_MIN_IDLE" envDefault:"1m"`
	ReclaimInterval time.Duration `env:"RECLAIM_INTERVAL" envDefault:"30s"`

	// Provider calls
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// JazzCash
	JazzCashBaseURL    string `env:"JAZZCASH_BASE_URL" envDefault:"https://sandbox.jazzcash.com.pk"`
	JazzCashMerchantID string `env:"JAZZCASH_MERCHANT_ID"`
	JazzCashHMACKey    string `env:"JAZZCASH_HMAC_KEY"`
	JazzCashReturnURL  string `env:"JAZZCASH_RETURN_URL"`

	// Easypaisa
	EasypaisaBaseURL string `env:"EASYPAISA_BASE_URL" envDefault:"https://easypay.easypaisa.com.pk"`
	EasypaisaStoreID string `env:"EASYPAISA_STORE_ID"`
	EasypaisaHMACKey string `env:"EASYPAISA_HMAC_KEY"`

	// Stripe
	StripeBaseURL   string `env:"STRIPE_BASE_URL" envDefault:"https://api.stripe.com"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	// PubNub
	PubNubPublishKey   string `env:"PUBNUB_PUBLISH_KEY"`
	PubNubSubscribeKey string `env:"PUBNUB_SUBSCRIBE_KEY"`
	PubNubSecretKey    string `env:"PUBNUB_SECRET_KEY"`

	// SMTP
	SMTPAddr     string `env:"SMTP_ADDR" envDefault:"localhost:587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@league.local"`

	// SMS gateway
	SMSGatewayURL   string `env:"SMS_GATEWAY_URL"`
	SMSGatewayToken string `env:"SMS_GATEWAY_TOKEN"`
	SMSSenderID     string `env:"SMS_SENDER_ID" envDefault:"LEAGUE"`

	// Monitoring
	EnableMetrics bool   `env:"ENABLE_METRICS" envDefault:"true"`
	MetricsPort   string `env:"METRICS_PORT" envDefault:"9090"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
