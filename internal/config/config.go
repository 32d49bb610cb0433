package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	ExternalURL   string `mapstructure:"EXTERNAL_URL"`
	BidsBucket    string `mapstructure:"BIDS_BUCKET"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	PresignSecret string `mapstructure:"PRESIGN_SECRET"`
	NotifySecret  string `mapstructure:"NOTIFY_SECRET"`
	SMTPAddr      string `mapstructure:"SMTP_ADDR"`
	SMTPFrom      string `mapstructure:"SMTP_FROM"`
}

// Load reads app.env from path when present, with real environment
// variables taking precedence.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	for _, key := range []string{
		"SERVER_ADDRESS", "DATABASE_URL", "EXTERNAL_URL", "BIDS_BUCKET",
		"JWT_SECRET", "PRESIGN_SECRET", "NOTIFY_SECRET", "SMTP_ADDR", "SMTP_FROM",
	} {
		_ = viper.BindEnv(key)
	}

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("EXTERNAL_URL", "http://localhost:8080")
	viper.SetDefault("BIDS_BUCKET", "tendervault-bids")
	viper.SetDefault("SMTP_FROM", "noreply@tendervault.example.com")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.PresignSecret == "" {
		return Config{}, errors.New("PRESIGN_SECRET is required")
	}
	if cfg.NotifySecret == "" {
		return Config{}, errors.New("NOTIFY_SECRET is required")
	}
	return cfg, nil
}
