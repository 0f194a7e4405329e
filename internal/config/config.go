package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ChangeFeedConfig selects where accessor mutations are published
type ChangeFeedConfig struct {
	Producer   string   `yaml:"producer" validate:"omitempty,oneof=log kafka amqp"`
	Brokers    []string `yaml:"brokers,omitempty" validate:"required_if=Producer kafka,dive,hostname_port"`
	Topic      string   `yaml:"topic,omitempty" validate:"required_if=Producer kafka"`
	Exchange   string   `yaml:"exchange,omitempty" validate:"required_if=Producer amqp"`
	Workers    int      `yaml:"workers,omitempty" validate:"omitempty,min=1,max=32"`
	BufferSize int      `yaml:"bufferSize,omitempty" validate:"omitempty,min=1"`
}

// MediaConfig points at the object store holding featured images
type MediaConfig struct {
	Endpoint       string `yaml:"endpoint" validate:"required"`
	PublicEndpoint string `yaml:"publicEndpoint,omitempty"`
	UseSSL         bool   `yaml:"useSSL,omitempty"`
}

// RemoteStoreConfig is the fixed set of values identifying the remote
// document store and the application registered against it. Always read from
// the environment.
type RemoteStoreConfig struct {
	APIKey            string `validate:"required"`
	AuthDomain        string `validate:"required"`
	ProjectID         string `validate:"required"`
	StorageBucket     string `validate:"required"`
	MessagingSenderID string `validate:"required"`
	AppID             string `validate:"required"`
}

// Secrets are credentials that never live in the config file
type Secrets struct {
	DatabaseURL    string
	MinIOAccessKey string
	MinIOSecretKey string
	AMQPURL        string
}

// Config represents the application configuration
type Config struct {
	ListenAddr       string            `yaml:"listenAddr" validate:"required,hostname_port"`
	Backend          string            `yaml:"backend" validate:"required,oneof=postgres memory"`
	StorePolicy      string            `yaml:"storePolicy,omitempty" validate:"omitempty,oneof=confirm-then-apply optimistic"`
	SnapshotCacheDir string            `yaml:"snapshotCacheDir,omitempty"`
	SessionTTL       time.Duration     `yaml:"sessionTTL,omitempty" validate:"omitempty,min=1m"`
	ReceiptsEnabled  bool              `yaml:"receiptsEnabled,omitempty"`
	GmailSender      string            `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
	StatsSheetID     string            `yaml:"statsSheetID,omitempty"`
	Media            *MediaConfig      `yaml:"media,omitempty"`
	ChangeFeed       ChangeFeedConfig  `yaml:"changeFeed,omitempty"`
	Remote           RemoteStoreConfig `yaml:"-"`
	Secrets          Secrets           `yaml:"-"`
}

const (
	DefaultSessionTTL = 12 * time.Hour

	configFilePrefix = "devdonations_config"
)

// Remote store environment variables, all required
const (
	EnvAPIKey            = "DEVDONATIONS_API_KEY"
	EnvAuthDomain        = "DEVDONATIONS_AUTH_DOMAIN"
	EnvProjectID         = "DEVDONATIONS_PROJECT_ID"
	EnvStorageBucket     = "DEVDONATIONS_STORAGE_BUCKET"
	EnvMessagingSenderID = "DEVDONATIONS_MESSAGING_SENDER_ID"
	EnvAppID             = "DEVDONATIONS_APP_ID"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration for an environment. It reads a
// .env file when present, looks for devdonations_config.<env>.yaml (or
// devdonations_config.yaml when env is empty) in the current directory first,
// then in the user's home directory, and fills the remote store values and
// secrets from the environment.
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path,
// taking remote store values and secrets from the process environment
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	remote, err := RemoteStoreFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Remote = remote
	cfg.Secrets = SecretsFromEnv()
	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RemoteStoreFromEnv reads the remote store values. Every value is required;
// the error names each one that is missing.
func RemoteStoreFromEnv() (RemoteStoreConfig, error) {
	var missing []string
	lookup := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	remote := RemoteStoreConfig{
		APIKey:            lookup(EnvAPIKey),
		AuthDomain:        lookup(EnvAuthDomain),
		ProjectID:         lookup(EnvProjectID),
		StorageBucket:     lookup(EnvStorageBucket),
		MessagingSenderID: lookup(EnvMessagingSenderID),
		AppID:             lookup(EnvAppID),
	}
	if len(missing) > 0 {
		return RemoteStoreConfig{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return remote, nil
}

// SecretsFromEnv reads optional credentials
func SecretsFromEnv() Secrets {
	return Secrets{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}
}

func (c *Config) applyDefaults() {
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.ChangeFeed.Producer == "" {
		c.ChangeFeed.Producer = "log"
	}
	if c.ChangeFeed.Workers == 0 {
		c.ChangeFeed.Workers = 2
	}
	if c.ChangeFeed.BufferSize == 0 {
		c.ChangeFeed.BufferSize = 256
	}
}

// Validate validates the configuration struct and the credentials its
// choices depend on
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Backend == "postgres" && cfg.Secrets.DatabaseURL == "" {
		return fmt.Errorf("config validation failed: DATABASE_URL is required for the postgres backend")
	}
	if cfg.ChangeFeed.Producer == "amqp" && cfg.Secrets.AMQPURL == "" {
		return fmt.Errorf("config validation failed: AMQP_URL is required for the amqp change feed")
	}
	if cfg.Media != nil && (cfg.Secrets.MinIOAccessKey == "" || cfg.Secrets.MinIOSecretKey == "") {
		return fmt.Errorf("config validation failed: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when media is configured")
	}

	return nil
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := configFilePrefix + ".yaml"
	if env != "" {
		configFileName = configFilePrefix + "." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
