// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"` // 0 disables the metrics listener
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaystackConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	BaseURL       string        `yaml:"base_url"`
	Provider      string        `yaml:"provider"`
	ChargeTimeout time.Duration `yaml:"charge_timeout"`
	QueryTimeout  time.Duration `yaml:"query_timeout"`
}

// ProductConfig is the storefront's single-price commercial model: every
// video costs the same, in minor units.
type ProductConfig struct {
	PriceCents  int64  `yaml:"price_cents"`
	Currency    string `yaml:"currency"`
	EmailDomain string `yaml:"email_domain"`

	PendingReuse  time.Duration `yaml:"pending_reuse"`
	PaymentExpiry time.Duration `yaml:"payment_expiry"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

type AdminConfig struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Paystack PaystackConfig `yaml:"paystack"`
	Product  ProductConfig  `yaml:"product"`
	Admin    AdminConfig    `yaml:"admin"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	// .env is optional; secrets usually arrive through the environment.
	_ = godotenv.Load()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the environment override the secrets and endpoints that
// never belong in a checked-in YAML file.
func (cfg *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PAYSTACK_SECRET_KEY"); v != "" {
		cfg.Paystack.SecretKey = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Admin.Password = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Paystack.Provider == "" {
		cfg.Paystack.Provider = "mpesa"
	}
	if cfg.Paystack.ChargeTimeout <= 0 {
		cfg.Paystack.ChargeTimeout = 30 * time.Second
	}
	if cfg.Paystack.QueryTimeout <= 0 {
		cfg.Paystack.QueryTimeout = 10 * time.Second
	}
	if cfg.Product.PriceCents <= 0 {
		cfg.Product.PriceCents = 1000 // 10 KES
	}
	if cfg.Product.Currency == "" {
		cfg.Product.Currency = "KES"
	}
	if cfg.Product.EmailDomain == "" {
		cfg.Product.EmailDomain = "lumendeo.tv"
	}
	if cfg.Product.PendingReuse <= 0 {
		cfg.Product.PendingReuse = 5 * time.Minute
	}
	if cfg.Product.PaymentExpiry <= 0 {
		cfg.Product.PaymentExpiry = 180 * time.Second
	}
	if cfg.Product.LockTTL <= 0 {
		cfg.Product.LockTTL = 10 * time.Second
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
}

func (cfg *Config) validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return errors.New("admin.username and admin.password are required")
	}
	if cfg.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required")
	}
	// Without a secret key the app can only run against the simulated
	// gateway, which is a dev-only affair.
	if cfg.Paystack.SecretKey == "" && !cfg.Runtime.Dev {
		return errors.New("paystack.secret_key is required outside dev mode")
	}
	return nil
}
