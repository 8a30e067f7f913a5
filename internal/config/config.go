package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

const serviceName = "marketplace-watcher"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"` // Full connection string, takes precedence over the discrete fields
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration for outbound notifications
type NATSConfig struct {
	URL            string        `mapstructure:"url"` // Empty disables notifications
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ReconnectConfig holds the backoff policy for dropped push subscriptions
type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"` // 0 retries forever
}

// BlockchainConfig holds the marketplace contract and RPC configuration
type BlockchainConfig struct {
	ProviderURL     string          `mapstructure:"provider_url"`
	ContractAddress string          `mapstructure:"contract_address"`
	StartBlock      string          `mapstructure:"start_block"` // Kept raw so malformed values can be ignored
	PollIntervalMS  int             `mapstructure:"poll_interval_ms"`
	ChainID         domain.Chain    `mapstructure:"chain_id"`
	TokenDecimals   int             `mapstructure:"token_decimals"`
	MaxBlockRange   uint64          `mapstructure:"max_block_range"`
	BlockHeadTTL    time.Duration   `mapstructure:"block_head_ttl"`
	PersistCursor   bool            `mapstructure:"persist_cursor"`
	Reconnect       ReconnectConfig `mapstructure:"reconnect"`
}

// EscrowConfig holds escrow projection configuration
type EscrowConfig struct {
	HoldPeriod time.Duration `mapstructure:"hold_period"`
}

// CertificateConfig holds NFT certificate configuration
type CertificateConfig struct {
	ImageBaseURL string `mapstructure:"image_base_url"`
}

// StatusConfig holds the health/status probe server configuration
type StatusConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"` // 0 disables the probe server
}

// MarketplaceWatcherConfig holds configuration for marketplace-watcher
type MarketplaceWatcherConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Blockchain  BlockchainConfig  `mapstructure:"blockchain"`
	Escrow      EscrowConfig      `mapstructure:"escrow"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Status      StatusConfig      `mapstructure:"status"`
}

// LoadMarketplaceWatcherConfig loads configuration for marketplace-watcher
func LoadMarketplaceWatcherConfig(configFile string, envPath string) (*MarketplaceWatcherConfig, error) {
	v := configureViper(serviceName, configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("nats.connection_name", serviceName)
	v.SetDefault("blockchain.poll_interval_ms", 10000)
	v.SetDefault("blockchain.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("blockchain.token_decimals", domain.DEFAULT_TOKEN_DECIMALS)
	v.SetDefault("blockchain.max_block_range", 5000)
	v.SetDefault("blockchain.block_head_ttl", "12s")
	v.SetDefault("blockchain.persist_cursor", false)
	v.SetDefault("blockchain.reconnect.initial_interval", "1s")
	v.SetDefault("blockchain.reconnect.max_interval", "1m")
	v.SetDefault("blockchain.reconnect.max_elapsed_time", 0)
	v.SetDefault("escrow.hold_period", domain.DEFAULT_ESCROW_HOLD_PERIOD.String())
	v.SetDefault("certificate.image_base_url", "https://agrolink.example/certificates")
	v.SetDefault("status.host", "0.0.0.0")
	v.SetDefault("status.port", 0)

	if err := v.ReadInConfig(); err != nil && !isMissingConfigFile(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config MarketplaceWatcherConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks that the watcher has enough configuration to start
func (c *MarketplaceWatcherConfig) Validate() error {
	if strings.TrimSpace(c.Blockchain.ProviderURL) == "" || strings.TrimSpace(c.Blockchain.ContractAddress) == "" {
		return domain.ErrMissingProviderConfig
	}
	if !domain.IsValidChain(c.Blockchain.ChainID) {
		return fmt.Errorf("unsupported chain id: %s", c.Blockchain.ChainID)
	}
	return nil
}

// UsePush reports whether the provider URL supports log subscriptions (ws:// or wss://)
func (c *BlockchainConfig) UsePush() bool {
	u := strings.ToLower(strings.TrimSpace(c.ProviderURL))
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}

// PollInterval returns the pull transport tick interval
func (c *BlockchainConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// StartHeight returns the configured start block.
// ok is false when the value is absent, non-numeric or negative.
func (c *BlockchainConfig) StartHeight() (height uint64, ok bool, err error) {
	raw := strings.TrimSpace(c.StartBlock)
	if raw == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid start block %q: %w", raw, err)
	}
	if n < 0 {
		return 0, false, fmt.Errorf("invalid start block %q: must not be negative", raw)
	}

	return uint64(n), true, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("MARKETPLACE_WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// legacyEnvNames maps config keys to the environment variable names used by existing deployments.
// The prefixed name still wins when both are set.
var legacyEnvNames = map[string]string{
	"blockchain.provider_url":     "BLOCKCHAIN_PROVIDER_URL",
	"blockchain.contract_address": "MARKETPLACE_CONTRACT_ADDRESS",
	"blockchain.start_block":      "BLOCKCHAIN_START_BLOCK",
	"blockchain.poll_interval_ms": "BLOCKCHAIN_POLL_INTERVAL_MS",
	"database.url":                "DATABASE_URL",
	"sentry_dsn":                  "SENTRY_DSN",
	"nats.url":                    "NATS_URL",
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.url",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Blockchain
		"blockchain.provider_url",
		"blockchain.contract_address",
		"blockchain.start_block",
		"blockchain.poll_interval_ms",
		"blockchain.chain_id",
		"blockchain.token_decimals",
		"blockchain.max_block_range",
		"blockchain.block_head_ttl",
		"blockchain.persist_cursor",
		"blockchain.reconnect.initial_interval",
		"blockchain.reconnect.max_interval",
		"blockchain.reconnect.max_elapsed_time",
		// Escrow and certificates
		"escrow.hold_period",
		"certificate.image_base_url",
		// Status probe
		"status.host",
		"status.port",
	}

	for _, key := range keys {
		prefixed := "MARKETPLACE_WATCHER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if legacy, ok := legacyEnvNames[key]; ok {
			_ = v.BindEnv(key, prefixed, legacy)
			continue
		}
		_ = v.BindEnv(key, prefixed)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// isMissingConfigFile reports whether err only means that no config file exists
func isMissingConfigFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
