package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds every runtime setting, parsed from environment variables.
// main loads .env first (via godotenv) so local development works without
// exporting anything.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	HTTP     HTTPServer `envPrefix:"HTTP_"`
	Database Database   `envPrefix:"DB_"`
	Paystack Paystack   `envPrefix:"PAYSTACK_"`
	Auth     Auth       `envPrefix:"AUTH_"`

	// PlatformFeePercent is the cut taken from every order payment.
	// It is applied once, when the payment row is created; the stored
	// seller_amount is never recomputed afterwards.
	PlatformFeePercent float64 `env:"PLATFORM_FEE_PERCENT" envDefault:"10"`

	// FrontendBaseURL is where buyers are redirected after a gateway
	// callback has been handled (with the gateway params stripped).
	FrontendBaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:5173"`
}

type HTTPServer struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"8080"`
}

type Database struct {
	DSN string `env:"DSN,required"`
}

type Paystack struct {
	BaseURL   string `env:"BASE_URL" envDefault:"https://api.paystack.co"`
	SecretKey string `env:"SECRET_KEY,required"`
	// CallbackBaseURL is our own public base URL; the per-payment
	// callback path is appended at initialization time.
	CallbackBaseURL string `env:"CALLBACK_BASE_URL,required"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config from env: %w", err)
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (s HTTPServer) Addr() string {
	return s.Host + ":" + s.Port
}
