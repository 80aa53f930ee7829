package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Stripe struct {
		SecretKey  string `mapstructure:"secret_key"`
		Currency   string `mapstructure:"currency"`
		Onboarding struct {
			RefreshURL string `mapstructure:"refresh_url"`
			ReturnURL  string `mapstructure:"return_url"`
		} `mapstructure:"onboarding"`
	} `mapstructure:"stripe"`
	Redis struct {
		Addr           string        `mapstructure:"addr"`
		Password       string        `mapstructure:"password"`
		DB             int           `mapstructure:"db"`
		IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	} `mapstructure:"redis"`
	Wallet struct {
		ServiceCharge string `mapstructure:"service_charge"`
	} `mapstructure:"wallet"`
	Seed struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"seed"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)
	v.SetDefault("wallet.service_charge", "3.00")
}

func LoadConfig() {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("no .env file loaded", zap.Error(err))
	}

	cfg, err := load(viper.GetViper(), "./configs")
	var fileLookupError viper.ConfigFileNotFoundError
	if errors.As(err, &fileLookupError) {
		logger.Log.Fatal("config file not found", zap.Error(err))
	}
	if err != nil {
		logger.Log.Fatal("failed to load config", zap.Error(err))
	}
	AppConfig = cfg
}

func load(v *viper.Viper, path string) (Config, error) {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
