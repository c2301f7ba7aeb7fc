package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"paywall.db"`

	Paypal     Paypal     `envPrefix:"PAYPAL_"`
	Telegram   Telegram   `envPrefix:"TELEGRAM_"`
	Classifier Classifier `envPrefix:"CLASSIFIER_"`
	Admin      Admin      `envPrefix:"ADMIN_"`
	Sweep      Sweep      `envPrefix:"SWEEP_"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

type Telegram struct {
	BotToken   string `env:"BOT_TOKEN"`
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://api.telegram.org"`
}

type Classifier struct {
	BaseApiURL string `env:"BASE_API_URL"`
	APIKey     string `env:"API_KEY"`
}

type Admin struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// Sweep cadences for the background release engine.
type Sweep struct {
	DripInterval         time.Duration `env:"DRIP_INTERVAL" envDefault:"5m"`
	PromotionInterval    time.Duration `env:"PROMOTION_INTERVAL" envDefault:"2m"`
	SubscriptionInterval time.Duration `env:"SUBSCRIPTION_INTERVAL" envDefault:"6h"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
