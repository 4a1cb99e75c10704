// Package config resolves runtime configuration through an ordered chain:
// an explicit JSON config file, then .env plus process environment, then a
// fatal configuration error. Key material is parsed and checked here so every
// later layer can assume a valid wallet.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"solana-curve-trader/internal/guard"
	"solana-curve-trader/internal/trader"
)

// Environment variable names.
const (
	EnvPrivateKey  = "WALLET_PRIVATE_KEY"
	EnvPublicKey   = "WALLET_PUBLIC_KEY"
	EnvRPCEndpoint = "SOLANA_RPC_ENDPOINT"
	EnvWSEndpoint  = "SOLANA_WS_ENDPOINT"
	EnvBuildURL    = "TRADE_BUILD_ENDPOINT"
	EnvPairsURL    = "MARKET_PAIRS_ENDPOINT"
	EnvCandlesURL  = "MARKET_CANDLES_ENDPOINT"
	EnvDataDir     = "BOT_DATA_DIR"
)

// ErrMissing is returned when a required setting resolves to nothing.
var ErrMissing = errors.New("missing configuration")

// Config is the fully resolved runtime configuration.
type Config struct {
	Wallet      trader.Wallet
	RPCEndpoint string
	WSEndpoint  string // optional, enables push confirmation
	BuildURL    string // optional override
	PairsURL    string // optional override
	CandlesURL  string // optional override
	DataDir     string
	Limits      guard.Limits
}

// fileConfig is the JSON config file schema. Every field is optional; set
// fields take precedence over the environment.
type fileConfig struct {
	PrivateKey  string        `json:"privateKey"`
	PublicKey   string        `json:"publicKey"`
	RPCEndpoint string        `json:"rpcEndpoint"`
	WSEndpoint  string        `json:"wsEndpoint"`
	BuildURL    string        `json:"buildEndpoint"`
	PairsURL    string        `json:"pairsEndpoint"`
	CandlesURL  string        `json:"candlesEndpoint"`
	DataDir     string        `json:"dataDir"`
	Limits      *guard.Limits `json:"limits"`
}

// Load resolves the configuration. path may be empty, in which case only the
// environment (including a .env file in the working directory) is consulted.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	cfg := &Config{
		RPCEndpoint: firstOf(fc.RPCEndpoint, os.Getenv(EnvRPCEndpoint)),
		WSEndpoint:  firstOf(fc.WSEndpoint, os.Getenv(EnvWSEndpoint)),
		BuildURL:    firstOf(fc.BuildURL, os.Getenv(EnvBuildURL)),
		PairsURL:    firstOf(fc.PairsURL, os.Getenv(EnvPairsURL)),
		CandlesURL:  firstOf(fc.CandlesURL, os.Getenv(EnvCandlesURL)),
		DataDir:     firstOf(fc.DataDir, os.Getenv(EnvDataDir), "."),
		Limits:      guard.DefaultLimits(),
	}
	if fc.Limits != nil {
		cfg.Limits = *fc.Limits
	}

	privateKey := firstOf(fc.PrivateKey, os.Getenv(EnvPrivateKey))
	if privateKey == "" {
		return nil, fmt.Errorf("%w: %s not set and no privateKey in config file", ErrMissing, EnvPrivateKey)
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("%w: %s not set and no rpcEndpoint in config file", ErrMissing, EnvRPCEndpoint)
	}

	publicKey := firstOf(fc.PublicKey, os.Getenv(EnvPublicKey))
	wallet, err := trader.ParseWalletKey(privateKey, publicKey)
	if err != nil {
		return nil, fmt.Errorf("wallet key: %w", err)
	}
	cfg.Wallet = wallet

	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
