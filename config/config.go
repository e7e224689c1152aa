package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Bkash      BkashConfig
	Payment    PaymentConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// BkashConfig for the bKash checkout API. Sandbox credentials by default.
type BkashConfig struct {
	BaseURL   string
	Username  string
	Password  string
	AppKey    string
	AppSecret string
}

type PaymentConfig struct {
	PollInterval     time.Duration
	PollMaxAttempts  int
	OrphanSweepEvery time.Duration
	OrphanMaxAge     time.Duration
}

func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8090")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_BASE_URL", "http://localhost:8090")
	v.SetDefault("DATABASE_DSN", "messmate:messmate@tcp(localhost:3306)/messmate?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	v.SetDefault("JWT_ACCESS_SECRET", "change-me-in-production")
	v.SetDefault("JWT_REFRESH_SECRET", "change-me-refresh")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("BKASH_BASE_URL", "https://checkout.sandbox.bka.sh/v1.2.0-beta")
	v.SetDefault("BKASH_USERNAME", "sandbox")
	v.SetDefault("BKASH_PASSWORD", "sandbox")
	v.SetDefault("BKASH_APP_KEY", "sandbox")
	v.SetDefault("BKASH_APP_SECRET", "sandbox")
	v.SetDefault("PAYMENT_POLL_INTERVAL_SEC", 5)
	v.SetDefault("PAYMENT_POLL_MAX_ATTEMPTS", 60)
	v.SetDefault("PAYMENT_ORPHAN_SWEEP_MIN", 60)
	v.SetDefault("PAYMENT_ORPHAN_AGE_MIN", 30)

	if err := v.ReadInConfig(); err != nil {
		log.Println("no config file found, using environment variables only")
	}

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Env:          v.GetString("SERVER_ENV"),
			BaseURL:      v.GetString("SERVER_BASE_URL"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "messmate",
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
		},
		Bkash: BkashConfig{
			BaseURL:   v.GetString("BKASH_BASE_URL"),
			Username:  v.GetString("BKASH_USERNAME"),
			Password:  v.GetString("BKASH_PASSWORD"),
			AppKey:    v.GetString("BKASH_APP_KEY"),
			AppSecret: v.GetString("BKASH_APP_SECRET"),
		},
		Payment: PaymentConfig{
			PollInterval:     time.Duration(v.GetInt("PAYMENT_POLL_INTERVAL_SEC")) * time.Second,
			PollMaxAttempts:  v.GetInt("PAYMENT_POLL_MAX_ATTEMPTS"),
			OrphanSweepEvery: time.Duration(v.GetInt("PAYMENT_ORPHAN_SWEEP_MIN")) * time.Minute,
			OrphanMaxAge:     time.Duration(v.GetInt("PAYMENT_ORPHAN_AGE_MIN")) * time.Minute,
		},
	}
}
