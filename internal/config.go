package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Rewards       RewardsConfig       `mapstructure:"rewards"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Worker        WorkerConfig        `mapstructure:"worker"`
}

type ServerConfig struct {
	Env               string        `mapstructure:"env"`
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig holds the session signing secret and the bcrypt hashes of
// the shared keys presented by the bank, Telegram and admin callers.
// An empty hash disables the corresponding check.
type SecurityConfig struct {
	SessionSecret      string        `mapstructure:"session_secret" validate:"required,min=32"`
	SessionTokenTTL    time.Duration `mapstructure:"session_token_ttl"`
	BankWebhookKeyHash string        `mapstructure:"bank_webhook_key_hash"`
	TelegramSecretHash string        `mapstructure:"telegram_secret_hash"`
	AdminKeyHash       string        `mapstructure:"admin_key_hash"`
	BCryptCost         int           `mapstructure:"bcrypt_cost"`
}

type PaymentConfig struct {
	ContentPrefix string        `mapstructure:"content_prefix"`
	IntentTTL     time.Duration `mapstructure:"intent_ttl"`
	AccountNumber string        `mapstructure:"account_number"`
	BankName      string        `mapstructure:"bank_name"`
}

type RewardsConfig struct {
	WelcomeBonusRAN int64  `mapstructure:"welcome_bonus_ran"`
	StoreName       string `mapstructure:"store_name"`
}

type TelegramConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BotToken      string        `mapstructure:"bot_token"`
	APIURL        string        `mapstructure:"api_url"`
	AuthChatID    string        `mapstructure:"auth_chat_id"`
	OrderChatID   string        `mapstructure:"order_chat_id"`
	VoucherChatID string        `mapstructure:"voucher_chat_id"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type WorkerConfig struct {
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables
// for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Env:               getEnv("APP_ENV", "production"),
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "./api/openapi.yml"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			SessionSecret:      getEnv("SESSION_SECRET", ""),
			SessionTokenTTL:    getEnvAsDuration("SESSION_TOKEN_TTL", 30*24*time.Hour),
			BankWebhookKeyHash: getEnv("BANK_WEBHOOK_KEY_HASH", ""),
			TelegramSecretHash: getEnv("TELEGRAM_SECRET_HASH", ""),
			AdminKeyHash:       getEnv("ADMIN_KEY_HASH", ""),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Payment: PaymentConfig{
			ContentPrefix: getEnv("PAYMENT_CONTENT_PREFIX", "RAN HV"),
			IntentTTL:     getEnvAsDuration("PAYMENT_INTENT_TTL", 30*time.Minute),
			AccountNumber: getEnv("PAYMENT_ACCOUNT_NUMBER", "9090190899999"),
			BankName:      getEnv("PAYMENT_BANK_NAME", "MB Bank"),
		},
		Rewards: RewardsConfig{
			WelcomeBonusRAN: int64(getEnvAsInt("WELCOME_BONUS_RAN", 500)),
			StoreName:       getEnv("STORE_NAME", "RAN 40 Ngô Quyền, Cửa Nam, Hà Nội"),
		},
		Telegram: TelegramConfig{
			Enabled:       getEnvAsBool("TELEGRAM_ENABLED", true),
			BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			AuthChatID:    getEnv("TELEGRAM_AUTH_CHAT_ID", ""),
			OrderChatID:   getEnv("TELEGRAM_ORDER_CHAT_ID", ""),
			VoucherChatID: getEnv("TELEGRAM_VOUCHER_CHAT_ID", ""),
			Timeout:       getEnvAsDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "ran.loyalty.events"),
		},
		Worker: WorkerConfig{
			ExpiryInterval: getEnvAsDuration("EXPIRY_INTERVAL", time.Minute),
		},
	}
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// KafkaBrokers splits the comma separated broker list.
func (c KafkaConfig) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if c.Server.Env == "production" {
		if err := c.Security.RequireKeys(c.Telegram.Enabled); err != nil {
			errs = append(errs, fmt.Sprintf("security config: %v", err))
		}
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Telegram.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("telegram config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.Kafka.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("kafka config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 characters")
	}
	return nil
}

// RequireKeys reports the guard hashes that are missing. The admin and
// Telegram routes reject every request until their hash is set.
func (c *SecurityConfig) RequireKeys(telegram bool) error {
	var missing []string
	if c.AdminKeyHash == "" {
		missing = append(missing, "admin_key_hash")
	}
	if telegram && c.TelegramSecretHash == "" {
		missing = append(missing, "telegram_secret_hash")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

var accountNumberPattern = regexp.MustCompile(`^\d{6,20}$`)

func (c *PaymentConfig) Validate() error {
	if strings.TrimSpace(c.ContentPrefix) == "" {
		return errors.New("content_prefix is required")
	}
	if c.IntentTTL <= 0 {
		return errors.New("intent_ttl must be positive")
	}
	if !accountNumberPattern.MatchString(c.AccountNumber) {
		return fmt.Errorf("invalid account_number %q", c.AccountNumber)
	}
	return nil
}

func (c *TelegramConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BotToken == "" {
		return errors.New("bot_token is required when telegram is enabled")
	}
	if c.OrderChatID == "" || c.VoucherChatID == "" || c.AuthChatID == "" {
		return errors.New("auth_chat_id, order_chat_id and voucher_chat_id are required")
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New("addr is required when redis is enabled")
	}
	return nil
}

func (c *KafkaConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.KafkaBrokers()) == 0 {
		return errors.New("brokers are required when kafka is enabled")
	}
	if c.Topic == "" {
		return errors.New("topic is required when kafka is enabled")
	}
	return nil
}
