package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"SERVER_PORT"`
		Mode           string   `yaml:"mode" env:"SERVER_MODE"`
		StoragePath    string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		PublicBaseURL  string   `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		MigrationsPath string   `yaml:"migrations_path" env:"SERVER_MIGRATIONS_PATH"`
		MaxUploadMB    int      `yaml:"max_upload_mb" env:"SERVER_MAX_UPLOAD_MB"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
	} `yaml:"redis"`

	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled" env:"RABBITMQ_ENABLED"`
		URL      string `yaml:"url" env:"RABBITMQ_URL"`
		Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE"`
		Queue    string `yaml:"queue" env:"RABBITMQ_QUEUE"`
		Prefetch int    `yaml:"prefetch" env:"RABBITMQ_PREFETCH"`
	} `yaml:"rabbitmq"`

	Paystack struct {
		SecretKey   string `yaml:"secret_key" env:"PAYSTACK_SECRET_KEY"`
		BaseURL     string `yaml:"base_url" env:"PAYSTACK_BASE_URL"`
		CallbackURL string `yaml:"callback_url" env:"PAYSTACK_CALLBACK_URL"`
		Timeout     string `yaml:"timeout" env:"PAYSTACK_TIMEOUT"`
		MaxAttempts int    `yaml:"max_attempts" env:"PAYSTACK_MAX_ATTEMPTS"`
	} `yaml:"paystack"`

	Email struct {
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"EMAIL_FROM_EMAIL"`
		SubjectPrefix  string `yaml:"subject_prefix" env:"EMAIL_SUBJECT_PREFIX"`
		SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SMTPUseTLS     bool   `yaml:"smtp_use_tls" env:"SMTP_USE_TLS"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	} `yaml:"email"`

	SMS struct {
		Enabled  bool   `yaml:"enabled" env:"SMS_ENABLED"`
		URL      string `yaml:"url" env:"SMS_URL"`
		APIKey   string `yaml:"api_key" env:"SMS_API_KEY"`
		SenderID string `yaml:"sender_id" env:"SMS_SENDER_ID"`
	} `yaml:"sms"`

	Scheduler struct {
		Enabled          bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
		VoucherExpiry    string `yaml:"voucher_expiry" env:"SCHEDULER_VOUCHER_EXPIRY"`
		PaymentReconcile string `yaml:"payment_reconcile" env:"SCHEDULER_PAYMENT_RECONCILE"`
		ReconcileAfter   string `yaml:"reconcile_after" env:"SCHEDULER_RECONCILE_AFTER"`
		JobTimeout       string `yaml:"job_timeout" env:"SCHEDULER_JOB_TIMEOUT"`
	} `yaml:"scheduler"`

	Admission struct {
		VoucherValidity      string           `yaml:"voucher_validity" env:"ADMISSION_VOUCHER_VALIDITY"`
		VoucherPrices        map[string]int64 `yaml:"voucher_prices"`
		NotificationTimeout  string           `yaml:"notification_timeout" env:"ADMISSION_NOTIFICATION_TIMEOUT"`
		LoginRateLimit       int              `yaml:"login_rate_limit" env:"ADMISSION_LOGIN_RATE_LIMIT"`
		RegisterRateLimit    int              `yaml:"register_rate_limit" env:"ADMISSION_REGISTER_RATE_LIMIT"`
		RateLimitWindow      string           `yaml:"rate_limit_window" env:"ADMISSION_RATE_LIMIT_WINDOW"`
		SystemIDMaxAttempts  int              `yaml:"system_id_max_attempts" env:"ADMISSION_SYSTEM_ID_MAX_ATTEMPTS"`
		VoucherSerialRetries int              `yaml:"voucher_serial_retries" env:"ADMISSION_VOUCHER_SERIAL_RETRIES"`
	} `yaml:"admission"`

	Seed struct {
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads .env, then the YAML file, then environment overrides
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"
	config.Server.MigrationsPath = "migrations"
	config.Server.MaxUploadMB = 10

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "uniadmit"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "uniadmit"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.Addr = "localhost:6379"
	config.Redis.Prefix = "uniadmit:rate_limit"

	config.RabbitMQ.Exchange = "uniadmit.notifications"
	config.RabbitMQ.Queue = "uniadmit.notifications.dispatch"
	config.RabbitMQ.Prefetch = 10

	config.Paystack.BaseURL = "https://api.paystack.co"
	config.Paystack.Timeout = "15s"
	config.Paystack.MaxAttempts = 3

	config.Email.Provider = "log"
	config.Email.FromName = "Admissions Office"
	config.Email.FromEmail = "admissions@localhost"
	config.Email.SMTPPort = 587

	config.Scheduler.Enabled = true
	config.Scheduler.VoucherExpiry = "@hourly"
	config.Scheduler.PaymentReconcile = "*/10 * * * *"
	config.Scheduler.ReconcileAfter = "15m"
	config.Scheduler.JobTimeout = "5m"

	config.Admission.VoucherValidity = "4380h"
	config.Admission.VoucherPrices = map[string]int64{
		"Undergraduate": 15000,
		"Postgraduate":  25000,
		"International": 50000,
	}
	config.Admission.NotificationTimeout = "30s"
	config.Admission.LoginRateLimit = 10
	config.Admission.RegisterRateLimit = 5
	config.Admission.RateLimitWindow = "1m"
	config.Admission.SystemIDMaxAttempts = 5
	config.Admission.VoucherSerialRetries = 5

	config.Seed.AdminEmail = "admin@uniadmit.local"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt access token expiration":  config.JWT.AccessTokenExpiration,
		"jwt refresh token expiration": config.JWT.RefreshTokenExpiration,
		"voucher validity":             config.Admission.VoucherValidity,
		"rate limit window":            config.Admission.RateLimitWindow,
		"reconcile after":              config.Scheduler.ReconcileAfter,
		"paystack timeout":             config.Paystack.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.RabbitMQ.Enabled && config.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq url is required when rabbitmq is enabled")
	}
	if config.Admission.SystemIDMaxAttempts < 1 {
		return fmt.Errorf("system id max attempts must be at least 1")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
