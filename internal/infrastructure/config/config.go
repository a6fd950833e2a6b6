package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	pkgkafka "github.com/hennyhux/changsheng/pkg/kafka"
	"github.com/hennyhux/changsheng/pkg/money"
	pkgpostgres "github.com/hennyhux/changsheng/pkg/postgres"
)

type DatabaseConfig struct {
	Host           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	Port           int
	MaxConns       int
	ConnectTimeout time.Duration
}

type KafkaConfig struct {
	ClientID        string
	ConsumerGroup   string
	SASLMechanism   string
	SASLUsername    string
	SASLPassword    string
	Brokers         []string
	RelayInterval   time.Duration
	RelayBatchSize  int
	Enabled         bool
	CommandsEnabled bool
	TLS             bool
	SASLEnabled     bool
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Disabled  bool
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// RateLimitConfig caps gRPC calls per operator. Zero RPS disables the limit.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	LogLevel     string
	LogFormat    string
}

// BillingConfig carries the ledger policy knobs.
type BillingConfig struct {
	GapPolicy     string `yaml:"gap_policy"`
	DueAnchor     string `yaml:"due_anchor"`
	Currency      string `yaml:"currency"`
	DueOffsetDays int    `yaml:"due_offset_days"`
	LookaheadDays int    `yaml:"lookahead_days"`
}

type Config struct {
	ServiceName string
	PolicyFile  string
	DB          DatabaseConfig
	Kafka       KafkaConfig
	Auth        AuthConfig
	TLS         TLSConfig
	RateLimit   RateLimitConfig
	Telemetry   TelemetryConfig
	Billing     BillingConfig
	GRPCPort    int
	HTTPPort    int
}

// DefaultBilling is the policy used when neither a policy file nor the
// environment says otherwise.
func DefaultBilling() BillingConfig {
	return BillingConfig{
		GapPolicy:     string(valueobject.GapBackfill),
		DueAnchor:     string(valueobject.DueFromPeriodEnd),
		Currency:      "USD",
		LookaheadDays: service.DefaultLookaheadDays,
	}
}

// Load reads the environment. Billing settings come from the defaults, then
// the policy file named by BILLING_POLICY_FILE, then BILLING_* variables.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "billingd"),
		PolicyFile:  getEnv("BILLING_POLICY_FILE", ""),
		GRPCPort:    getEnvInt("GRPC_PORT", 9090),
		HTTPPort:    getEnvInt("HTTP_PORT", 8080),
		DB: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "changsheng"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "changsheng_billing"),
			SSLMode:        getEnv("DB_SSLMODE", "require"),
			MaxConns:       getEnvInt("DB_MAX_CONNS", 10),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         getEnvBool("KAFKA_ENABLED", false),
			Brokers:         getEnvList("KAFKA_BROKERS", "localhost:9092"),
			ClientID:        getEnv("KAFKA_CLIENT_ID", "billingd"),
			ConsumerGroup:   getEnv("KAFKA_CONSUMER_GROUP", "billingd"),
			TLS:             getEnvBool("KAFKA_TLS", false),
			SASLEnabled:     getEnvBool("KAFKA_SASL_ENABLED", false),
			SASLMechanism:   getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:    getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:    getEnv("KAFKA_SASL_PASSWORD", ""),
			CommandsEnabled: getEnvBool("BILLING_COMMANDS_ENABLED", false),
			RelayInterval:   getEnvDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatchSize:  getEnvInt("OUTBOX_RELAY_BATCH", 100),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "changsheng"),
			Disabled:  getEnvBool("AUTH_DISABLED", false),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
			CAFile:   getEnv("TLS_CA_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
			Burst: getEnvInt("RATE_LIMIT_BURST", 0),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "json"),
		},
		Billing: DefaultBilling(),
	}

	if cfg.PolicyFile != "" {
		billing, err := LoadPolicyFile(cfg.PolicyFile, cfg.Billing)
		if err != nil {
			return Config{}, err
		}
		cfg.Billing = billing
	}

	cfg.Billing.GapPolicy = getEnv("BILLING_GAP_POLICY", cfg.Billing.GapPolicy)
	cfg.Billing.DueAnchor = getEnv("BILLING_DUE_ANCHOR", cfg.Billing.DueAnchor)
	cfg.Billing.DueOffsetDays = getEnvInt("BILLING_DUE_OFFSET_DAYS", cfg.Billing.DueOffsetDays)
	cfg.Billing.LookaheadDays = getEnvInt("BILLING_LOOKAHEAD_DAYS", cfg.Billing.LookaheadDays)
	cfg.Billing.Currency = getEnv("BILLING_CURRENCY", cfg.Billing.Currency)

	return cfg, nil
}

// Validate reports every bad setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required unless AUTH_DISABLED=true"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if err := c.Billing.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the billing policy without touching anything else.
func (b BillingConfig) Validate() error {
	var errs []error
	if _, err := b.Gap(); err != nil {
		errs = append(errs, err)
	}
	if _, err := b.DueRule(); err != nil {
		errs = append(errs, err)
	}
	if b.LookaheadDays < 0 || b.LookaheadDays > 31 {
		errs = append(errs, fmt.Errorf("invalid lookahead %d: must be between 0 and 31 days", b.LookaheadDays))
	}
	if _, err := b.CurrencyCode(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b BillingConfig) Gap() (valueobject.GapPolicy, error) {
	return valueobject.ParseGapPolicy(b.GapPolicy)
}

func (b BillingConfig) DueRule() (valueobject.DueRule, error) {
	return valueobject.NewDueRule(b.DueAnchor, b.DueOffsetDays)
}

func (b BillingConfig) CurrencyCode() (money.Currency, error) {
	return money.NewCurrency(strings.ToUpper(b.Currency))
}

// Services builds the billing engine the policy describes.
func (b BillingConfig) Services() (*service.InvoiceGenerator, *service.PaymentAllocator, *service.BalanceEvaluator, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, nil, err
	}
	gap, _ := b.Gap()
	due, _ := b.DueRule()
	return service.NewInvoiceGenerator(due, gap),
		service.NewPaymentAllocator(),
		service.NewBalanceEvaluator(b.LookaheadDays),
		nil
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c Config) Postgres() pkgpostgres.Config {
	return pkgpostgres.Config{
		Host:           c.DB.Host,
		Port:           c.DB.Port,
		User:           c.DB.User,
		Password:       c.DB.Password,
		Database:       c.DB.Name,
		SSLMode:        c.DB.SSLMode,
		MaxConns:       int32(c.DB.MaxConns),
		ConnectTimeout: c.DB.ConnectTimeout,
	}
}

func (c Config) KafkaClient() pkgkafka.Config {
	return pkgkafka.Config{
		ClientID:      c.Kafka.ClientID,
		ConsumerGroup: c.Kafka.ConsumerGroup,
		Brokers:       c.Kafka.Brokers,
		TLS:           c.Kafka.TLS,
		SASLEnabled:   c.Kafka.SASLEnabled,
		SASLMechanism: c.Kafka.SASLMechanism,
		SASLUsername:  c.Kafka.SASLUsername,
		SASLPassword:  c.Kafka.SASLPassword,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
