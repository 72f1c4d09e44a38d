// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds dashboard HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 30s (dashboard render fans out many upstream calls)
	OrderRPS     int           // per-IP rate limit on order placement, default 5
}

// ClobConfig holds CLOB trading-API settings.
type ClobConfig struct {
	Host          string // base URL, trailing slash trimmed
	PrivateKey    string // signer key, "0x" prefix optional
	ChainID       int64  // 137 = Polygon mainnet
	APIKey        string // L2 credential triple; derived at startup when empty
	APISecret     string
	APIPassphrase string
	Timeout       time.Duration // per-request HTTP timeout, default 30s
}

// HasCreds returns true when the full L2 credential triple is present.
func (c *ClobConfig) HasCreds() bool {
	return c.APIKey != "" && c.APISecret != "" && c.APIPassphrase != ""
}

// GammaConfig holds content-API settings.
type GammaConfig struct {
	URL             string        // default "https://gamma-api.polymarket.com"
	EventSlug       string        // the single event the dashboard tracks
	FetchTimeout    time.Duration // default 10s
	RefreshInterval time.Duration // background bot-table sync cadence, default 5m
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// ChainConfig holds blockchain node and transaction retry settings.
type ChainConfig struct {
	RPCURL         string        // default "https://polygon-rpc.com"
	ChainID        int64         // default 137
	NonceAttempts  int           // default 3
	NonceDelay     time.Duration // default 1s
	SendAttempts   int           // default 3
	SendDelay      time.Duration // default 2s
	ReceiptTimeout time.Duration // default 10m
	TxPause        time.Duration // pause after each mined tx, default 2s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for all polyboard entry points.
type Config struct {
	Server ServerConfig
	Clob   ClobConfig
	Gamma  GammaConfig
	DB     DBConfig
	Chain  ChainConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// The signer key is mandatory everywhere: positions and the dashboard need
	// it for CLOB auth, the allowance batch for transaction signing.
	if c.Clob.PrivateKey == "" {
		errs = append(errs, errors.New("PK must be set"))
	}

	if c.Clob.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("CHAIN_ID must be positive, got %d", c.Clob.ChainID))
	}

	if c.Chain.NonceAttempts < 1 {
		errs = append(errs, fmt.Errorf("CHAIN_NONCE_ATTEMPTS must be at least 1, got %d", c.Chain.NonceAttempts))
	}
	if c.Chain.SendAttempts < 1 {
		errs = append(errs, fmt.Errorf("CHAIN_SEND_ATTEMPTS must be at least 1, got %d", c.Chain.SendAttempts))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	// Pick up a local .env file when present; a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	orderRPS, err := getInt("SERVER_ORDER_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("SERVER_ORDER_RPS: %w", err)
	}
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		OrderRPS:     orderRPS,
	}

	// ── CLOB ──────────────────────────────────────────────────────────────────
	chainID, err := getInt64("CHAIN_ID", 137)
	if err != nil {
		return nil, fmt.Errorf("CHAIN_ID: %w", err)
	}

	cfg.Clob = ClobConfig{
		Host:          strings.TrimRight(getEnv("CLOB_API_URL", "https://clob.polymarket.com"), "/"),
		PrivateKey:    getEnv("PK", ""),
		ChainID:       chainID,
		APIKey:        getEnv("CLOB_API_KEY", ""),
		APISecret:     getEnv("CLOB_SECRET", ""),
		APIPassphrase: getEnv("CLOB_PASS_PHRASE", ""),
		Timeout:       getDuration("CLOB_TIMEOUT", 30*time.Second),
	}

	// ── Gamma ─────────────────────────────────────────────────────────────────
	cfg.Gamma = GammaConfig{
		URL:             strings.TrimRight(getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com"), "/"),
		EventSlug:       getEnv("EVENT_SLUG", "the-monkey-opening-weekend-box-office"),
		FetchTimeout:    getDuration("GAMMA_FETCH_TIMEOUT", 10*time.Second),
		RefreshInterval: getDuration("EVENT_REFRESH_INTERVAL", 5*time.Minute),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             getEnv("DATABASE_URL", ""),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Chain ─────────────────────────────────────────────────────────────────
	nonceAttempts, err := getInt("CHAIN_NONCE_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("CHAIN_NONCE_ATTEMPTS: %w", err)
	}
	sendAttempts, err := getInt("CHAIN_SEND_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("CHAIN_SEND_ATTEMPTS: %w", err)
	}

	cfg.Chain = ChainConfig{
		RPCURL:         getEnv("RPC_URL", "https://polygon-rpc.com"),
		ChainID:        chainID,
		NonceAttempts:  nonceAttempts,
		NonceDelay:     getDuration("CHAIN_NONCE_DELAY", 1*time.Second),
		SendAttempts:   sendAttempts,
		SendDelay:      getDuration("CHAIN_SEND_DELAY", 2*time.Second),
		ReceiptTimeout: getDuration("CHAIN_RECEIPT_TIMEOUT", 10*time.Minute),
		TxPause:        getDuration("CHAIN_TX_PAUSE", 2*time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
