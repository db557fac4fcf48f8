// Package config loads and validates gateway configuration. Values come from
// the environment (with an optional YAML file for the ledger section); missing
// security-critical values abort startup rather than fall back to defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the gateway's startup configuration.
type Config struct {
	ListenAddr  string        `env:"GATEWAY_LISTEN_ADDR,default=:4000"`
	JWTSecret   string        `env:"GATEWAY_JWT_SECRET"`
	SessionTTL  time.Duration `env:"GATEWAY_SESSION_TTL,default=1h"`
	CORSOrigins string        `env:"GATEWAY_CORS_ORIGINS"`

	// RateLimitRPS of zero disables per-client throttling.
	RateLimitRPS   float64 `env:"GATEWAY_RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int     `env:"GATEWAY_RATE_LIMIT_BURST,default=40"`

	Ledger LedgerConfig
}

// LedgerConfig locates the ledger node and the registry contract. The YAML
// file (if present) provides base values; environment variables override.
type LedgerConfig struct {
	RPCURL             string        `env:"LEDGER_RPC_URL" yaml:"rpc_url"`
	ContractHash       string        `env:"LEDGER_CONTRACT_HASH" yaml:"contract_hash"`
	OperationalAccount string        `env:"LEDGER_OPERATIONAL_ACCOUNT" yaml:"operational_account"`
	RPCTimeout         time.Duration `env:"LEDGER_RPC_TIMEOUT" yaml:"rpc_timeout"`
	WaitTimeout        time.Duration `env:"LEDGER_WAIT_TIMEOUT" yaml:"wait_timeout"`
	PollInterval       time.Duration `env:"LEDGER_POLL_INTERVAL" yaml:"poll_interval"`
}

// Built-in ledger timing defaults, applied only when neither the environment
// nor the file sets a value. Environment wins over file, file over default.
const (
	defaultRPCTimeout   = 30 * time.Second
	defaultWaitTimeout  = 2 * time.Minute
	defaultPollInterval = 2 * time.Second
)

// DefaultLedgerFile is the conventional location of the ledger section.
const DefaultLedgerFile = "config/ledger.yaml"

// Load builds the configuration from the optional YAML file at path (ignored
// when absent) and the environment, then validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := loadLedgerFile(path, &cfg.Ledger); err != nil {
			return nil, err
		}
	}

	fileLedger := cfg.Ledger
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	applyLedgerFallback(&cfg.Ledger, fileLedger)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadLedgerFile(path string, dst *LedgerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read ledger config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse ledger config: %w", err)
	}
	return nil
}

// applyLedgerFallback restores file-provided values that the environment did
// not override.
func applyLedgerFallback(ledger *LedgerConfig, file LedgerConfig) {
	if ledger.RPCURL == "" {
		ledger.RPCURL = file.RPCURL
	}
	if ledger.ContractHash == "" {
		ledger.ContractHash = file.ContractHash
	}
	if ledger.OperationalAccount == "" {
		ledger.OperationalAccount = file.OperationalAccount
	}
	if ledger.RPCTimeout == 0 {
		ledger.RPCTimeout = file.RPCTimeout
	}
	if ledger.WaitTimeout == 0 {
		ledger.WaitTimeout = file.WaitTimeout
	}
	if ledger.PollInterval == 0 {
		ledger.PollInterval = file.PollInterval
	}

	if ledger.RPCTimeout == 0 {
		ledger.RPCTimeout = defaultRPCTimeout
	}
	if ledger.WaitTimeout == 0 {
		ledger.WaitTimeout = defaultWaitTimeout
	}
	if ledger.PollInterval == 0 {
		ledger.PollInterval = defaultPollInterval
	}
}

// Validate fails closed: a gateway without a signing secret or a reachable
// contract must not start. There is deliberately no built-in default secret.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "GATEWAY_JWT_SECRET")
	}
	if strings.TrimSpace(c.Ledger.RPCURL) == "" {
		missing = append(missing, "LEDGER_RPC_URL")
	}
	if strings.TrimSpace(c.Ledger.ContractHash) == "" {
		missing = append(missing, "LEDGER_CONTRACT_HASH")
	}
	if strings.TrimSpace(c.Ledger.OperationalAccount) == "" {
		missing = append(missing, "LEDGER_OPERATIONAL_ACCOUNT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("GATEWAY_SESSION_TTL must be positive")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return nil
}

// AllowedOrigins parses the comma-separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
