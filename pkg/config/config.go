// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// Notifier backends.
const (
	NotifyNone  = "none"
	NotifySQS   = "sqs"
	NotifyKafka = "kafka"
)

// Config holds all configuration for the service.
type Config struct {
	HTTPPort       string
	LogLevel       string
	LogJSON        bool
	StorageBackend string
	Tables         TablesConfig
	Chain          ChainConfig
	Stealth        StealthConfig
	Treasury       TreasuryConfig
	Notify         NotifyConfig

	WithdrawalConfirmTimeout time.Duration
	ReconcileMinAge          time.Duration
}

// TablesConfig holds the DynamoDB table names.
type TablesConfig struct {
	Payments            string
	Balances            string
	BalanceTransactions string
	Withdrawals         string
	Assets              string
	Holdings            string
	AssetTransactions   string
	Attributions        string
}

// ChainConfig holds the fullnode connection settings.
type ChainConfig struct {
	NodeURL      string
	ChainID      int
	APIKey       string
	RateLimit    float64
	MaxRetries   int
	RetryDelay   time.Duration
	HTTPTimeout  time.Duration
	PollInterval time.Duration
}

// StealthConfig identifies the on-chain payment events.
type StealthConfig struct {
	ModuleAccount string
	EventType     string
}

// TreasuryConfig holds the account withdrawals are paid from.
type TreasuryConfig struct {
	Address    string
	PrivateKey string
}

// NotifyConfig selects where side events are published.
type NotifyConfig struct {
	Backend     string
	SQSQueueURL string
	KafkaBroker string
	KafkaTopic  string
	Buffer      int
}

// Load loads configuration from environment variables, reading a .env file first
// when one exists.
func Load() *Config {
	// A missing .env is fine; variables may be set externally.
	_ = godotenv.Load()

	return &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getEnvAsBool("LOG_JSON", true),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageDynamoDB)),
		Tables: TablesConfig{
			Payments:            os.Getenv("DYNAMODB_PAYMENTS_TABLE_NAME"),
			Balances:            os.Getenv("DYNAMODB_BALANCES_TABLE_NAME"),
			BalanceTransactions: os.Getenv("DYNAMODB_BALANCE_TRANSACTIONS_TABLE_NAME"),
			Withdrawals:         os.Getenv("DYNAMODB_WITHDRAWALS_TABLE_NAME"),
			Assets:              os.Getenv("DYNAMODB_ASSETS_TABLE_NAME"),
			Holdings:            os.Getenv("DYNAMODB_HOLDINGS_TABLE_NAME"),
			AssetTransactions:   os.Getenv("DYNAMODB_ASSET_TRANSACTIONS_TABLE_NAME"),
			Attributions:        os.Getenv("DYNAMODB_ATTRIBUTIONS_TABLE_NAME"),
		},
		Chain: ChainConfig{
			NodeURL:      getEnv("CHAIN_NODE_URL", "https://fullnode.testnet.aptoslabs.com/v1"),
			ChainID:      getEnvAsInt("CHAIN_ID", 0),
			APIKey:       getEnv("CHAIN_API_KEY", ""),
			RateLimit:    getEnvAsFloat("CHAIN_RATE_LIMIT", 4),
			MaxRetries:   getEnvAsInt("CHAIN_MAX_RETRIES", 1),
			RetryDelay:   getEnvAsDuration("CHAIN_RETRY_DELAY", time.Second),
			HTTPTimeout:  getEnvAsDuration("CHAIN_HTTP_TIMEOUT", 30*time.Second),
			PollInterval: getEnvAsDuration("CHAIN_POLL_INTERVAL", time.Second),
		},
		Stealth: StealthConfig{
			ModuleAccount: os.Getenv("STEALTH_MODULE_ACCOUNT"),
			EventType:     getEnv("STEALTH_EVENT_TYPE", "::stealth::PaymentEvent"),
		},
		Treasury: TreasuryConfig{
			Address:    os.Getenv("TREASURY_ADDRESS"),
			PrivateKey: os.Getenv("TREASURY_PRIVATE_KEY"),
		},
		Notify: NotifyConfig{
			Backend:     strings.ToLower(getEnv("NOTIFY_BACKEND", NotifyNone)),
			SQSQueueURL: os.Getenv("SQS_QUEUE_URL"),
			KafkaBroker: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			KafkaTopic:  getEnv("KAFKA_TOPIC", "stealth-ledger-events"),
			Buffer:      getEnvAsInt("NOTIFY_BUFFER", 256),
		},
		WithdrawalConfirmTimeout: getEnvAsDuration("WITHDRAWAL_CONFIRM_TIMEOUT", 30*time.Second),
		ReconcileMinAge:          getEnvAsDuration("RECONCILE_MIN_AGE", 5*time.Minute),
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageMemory:
	case StorageDynamoDB:
		if err := c.Tables.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.Chain.NodeURL == "" {
		errs = append(errs, errors.New("CHAIN_NODE_URL is required"))
	}
	if c.Chain.ChainID < 0 || c.Chain.ChainID > 255 {
		errs = append(errs, fmt.Errorf("CHAIN_ID must be between 0 and 255, got %d", c.Chain.ChainID))
	}
	if c.Stealth.ModuleAccount == "" {
		errs = append(errs, errors.New("STEALTH_MODULE_ACCOUNT is required"))
	}
	if c.WithdrawalConfirmTimeout <= 0 {
		errs = append(errs, errors.New("WITHDRAWAL_CONFIRM_TIMEOUT must be positive"))
	}

	switch c.Notify.Backend {
	case NotifyNone:
	case NotifySQS:
		if c.Notify.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL is required for the sqs notifier"))
		}
	case NotifyKafka:
		if c.Notify.KafkaBroker == "" || c.Notify.KafkaTopic == "" {
			errs = append(errs, errors.New("KAFKA_BROKER_ADDRESS and KAFKA_TOPIC are required for the kafka notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notify.Backend))
	}

	return errors.Join(errs...)
}

// Validate checks that every table name is set.
func (t TablesConfig) Validate() error {
	var missing []string
	for env, name := range map[string]string{
		"DYNAMODB_PAYMENTS_TABLE_NAME":             t.Payments,
		"DYNAMODB_BALANCES_TABLE_NAME":             t.Balances,
		"DYNAMODB_BALANCE_TRANSACTIONS_TABLE_NAME": t.BalanceTransactions,
		"DYNAMODB_WITHDRAWALS_TABLE_NAME":          t.Withdrawals,
		"DYNAMODB_ASSETS_TABLE_NAME":               t.Assets,
		"DYNAMODB_HOLDINGS_TABLE_NAME":             t.Holdings,
		"DYNAMODB_ASSET_TRANSACTIONS_TABLE_NAME":   t.AssetTransactions,
		"DYNAMODB_ATTRIBUTIONS_TABLE_NAME":         t.Attributions,
	} {
		if name == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing table names: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts a Go duration ("30s") or a whole number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
