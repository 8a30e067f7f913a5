package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/domain"
)

func TestLoadMarketplaceWatcherConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *MarketplaceWatcherConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
blockchain:
  provider_url: "wss://rpc.example.com"
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  start_block: 1000
  poll_interval_ms: 2500
  chain_id: "eip155:11155111"
  max_block_range: 200
  persist_cursor: true
  reconnect:
    initial_interval: "500ms"
    max_interval: "30s"
escrow:
  hold_period: "48h"
certificate:
  image_base_url: "https://cdn.example.com/certs"
status:
  port: 8081
`,
			expectError: false,
			validate: func(t *testing.T, cfg *MarketplaceWatcherConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, "wss://rpc.example.com", cfg.Blockchain.ProviderURL)
				assert.True(t, cfg.Blockchain.UsePush())
				assert.Equal(t, 2500*time.Millisecond, cfg.Blockchain.PollInterval())
				assert.Equal(t, domain.ChainEthereumSepolia, cfg.Blockchain.ChainID)
				assert.Equal(t, uint64(200), cfg.Blockchain.MaxBlockRange)
				assert.True(t, cfg.Blockchain.PersistCursor)
				assert.Equal(t, 500*time.Millisecond, cfg.Blockchain.Reconnect.InitialInterval)
				assert.Equal(t, 30*time.Second, cfg.Blockchain.Reconnect.MaxInterval)
				assert.Equal(t, 48*time.Hour, cfg.Escrow.HoldPeriod)
				assert.Equal(t, "https://cdn.example.com/certs", cfg.Certificate.ImageBaseURL)
				assert.Equal(t, 8081, cfg.Status.Port)

				height, ok, err := cfg.Blockchain.StartHeight()
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, uint64(1000), height)

				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "config with defaults",
			configFile: `
blockchain:
  provider_url: "http://localhost:8545"
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *MarketplaceWatcherConfig) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "MARKETPLACE_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 10000, cfg.Blockchain.PollIntervalMS)
				assert.Equal(t, 10*time.Second, cfg.Blockchain.PollInterval())
				assert.False(t, cfg.Blockchain.UsePush())
				assert.Equal(t, domain.ChainEthereumMainnet, cfg.Blockchain.ChainID)
				assert.Equal(t, 18, cfg.Blockchain.TokenDecimals)
				assert.Equal(t, uint64(5000), cfg.Blockchain.MaxBlockRange)
				assert.False(t, cfg.Blockchain.PersistCursor)
				assert.Equal(t, 7*24*time.Hour, cfg.Escrow.HoldPeriod)
				assert.Equal(t, 0, cfg.Status.Port)

				_, ok, err := cfg.Blockchain.StartHeight()
				assert.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name:        "missing config file",
			configFile:  "",
			expectError: false,
			validate: func(t *testing.T, cfg *MarketplaceWatcherConfig) {
				assert.Equal(t, 10000, cfg.Blockchain.PollIntervalMS)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			var configFile string

			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			} else {
				configFile = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			cfg, err := LoadMarketplaceWatcherConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestMarketplaceWatcherConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BlockchainConfig
		wantErr error
	}{
		{"missing provider", BlockchainConfig{ContractAddress: "0xabc", ChainID: domain.ChainEthereumMainnet}, domain.ErrMissingProviderConfig},
		{"missing contract", BlockchainConfig{ProviderURL: "http://localhost:8545", ChainID: domain.ChainEthereumMainnet}, domain.ErrMissingProviderConfig},
		{"blank values", BlockchainConfig{ProviderURL: "  ", ContractAddress: " ", ChainID: domain.ChainEthereumMainnet}, domain.ErrMissingProviderConfig},
		{"complete", BlockchainConfig{ProviderURL: "http://localhost:8545", ContractAddress: "0xabc", ChainID: domain.ChainEthereumMainnet}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MarketplaceWatcherConfig{Blockchain: tt.cfg}
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := MarketplaceWatcherConfig{Blockchain: BlockchainConfig{
		ProviderURL: "http://localhost:8545", ContractAddress: "0xabc", ChainID: "eip155:999",
	}}
	assert.Error(t, cfg.Validate())
}

func TestBlockchainConfig_UsePush(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"ws://localhost:8546", true},
		{"wss://mainnet.example.com/ws", true},
		{"WSS://MAINNET.EXAMPLE.COM", true},
		{"http://localhost:8545", false},
		{"https://mainnet.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := BlockchainConfig{ProviderURL: tt.url}
			assert.Equal(t, tt.want, cfg.UsePush())
		})
	}
}

func TestBlockchainConfig_StartHeight(t *testing.T) {
	tests := []struct {
		raw     string
		want    uint64
		wantOK  bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"0", 0, true, false},
		{"12345", 12345, true, false},
		{" 42 ", 42, true, false},
		{"-1", 0, false, true},
		{"latest", 0, false, true},
		{"0x10", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg := BlockchainConfig{StartBlock: tt.raw}
			got, ok, err := cfg.StartHeight()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestBlockchainConfig_PollInterval(t *testing.T) {
	assert.Equal(t, 10*time.Second, (&BlockchainConfig{}).PollInterval())
	assert.Equal(t, 10*time.Second, (&BlockchainConfig{PollIntervalMS: -5}).PollInterval())
	assert.Equal(t, 750*time.Millisecond, (&BlockchainConfig{PollIntervalMS: 750}).PollInterval())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "url takes precedence",
			config: DatabaseConfig{
				URL:  "postgres://user:pass@db:5432/agrolink?sslmode=disable",
				Host: "ignored",
				Port: 5432,
			},
			expected: "postgres://user:pass@db:5432/agrolink?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestConfigWithLegacyEnvironmentVariables(t *testing.T) {
	t.Setenv("BLOCKCHAIN_PROVIDER_URL", "ws://legacy:8546")
	t.Setenv("MARKETPLACE_CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("BLOCKCHAIN_START_BLOCK", "77")
	t.Setenv("BLOCKCHAIN_POLL_INTERVAL_MS", "3000")
	t.Setenv("DATABASE_URL", "postgres://legacy/db")

	tmpDir := t.TempDir()
	cfg, err := LoadMarketplaceWatcherConfig(filepath.Join(tmpDir, "missing.yaml"), tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ws://legacy:8546", cfg.Blockchain.ProviderURL)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.Blockchain.ContractAddress)
	assert.Equal(t, 3*time.Second, cfg.Blockchain.PollInterval())
	assert.Equal(t, "postgres://legacy/db", cfg.Database.DSN())

	height, ok, err := cfg.Blockchain.StartHeight()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(77), height)

	// the prefixed variable wins over the legacy name
	t.Setenv("MARKETPLACE_WATCHER_BLOCKCHAIN_PROVIDER_URL", "http://prefixed:8545")
	cfg, err = LoadMarketplaceWatcherConfig(filepath.Join(tmpDir, "missing.yaml"), tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "http://prefixed:8545", cfg.Blockchain.ProviderURL)
}

func TestConfigWithEnvironmentFile(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	require.NoError(t, os.MkdirAll(envDir, 0750))

	// godotenv.Overload exports into the process environment
	for _, key := range []string{
		"MARKETPLACE_WATCHER_DEBUG",
		"MARKETPLACE_WATCHER_DATABASE_HOST",
		"MARKETPLACE_WATCHER_DATABASE_PORT",
	} {
		t.Setenv(key, "")
		k := key
		t.Cleanup(func() { _ = os.Unsetenv(k) })
	}

	envContent := `MARKETPLACE_WATCHER_DEBUG=true
MARKETPLACE_WATCHER_DATABASE_HOST=env-host
MARKETPLACE_WATCHER_DATABASE_PORT=6543
`
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600))

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
`
	require.NoError(t, os.WriteFile(configPath, []byte(configFile), 0600))

	cfg, err := LoadMarketplaceWatcherConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
}
