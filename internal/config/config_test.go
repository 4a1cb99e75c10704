package config

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-curve-trader/internal/codec"
)

func testKey(t *testing.T) (privB58, pubB58 string) {
	t.Helper()
	seed := bytes.Repeat([]byte{4}, codec.SeedSize)
	key := ed25519.NewKeyFromSeed(seed)
	return codec.EncodeBase58(seed), codec.EncodeBase58(key.Public().(ed25519.PublicKey))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvPrivateKey, EnvPublicKey, EnvRPCEndpoint, EnvWSEndpoint, EnvBuildURL, EnvPairsURL, EnvCandlesURL, EnvDataDir} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	priv, pub := testKey(t)
	t.Setenv(EnvPrivateKey, priv)
	t.Setenv(EnvRPCEndpoint, "https://rpc.example")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, pub, cfg.Wallet.PublicKey)
	require.Equal(t, "https://rpc.example", cfg.RPCEndpoint)
	require.Equal(t, ".", cfg.DataDir)
	require.Equal(t, 2, cfg.Limits.MaxBuysPerToken)
}

func TestLoad_FilePrecedesEnvironment(t *testing.T) {
	clearEnv(t)
	priv, _ := testKey(t)
	t.Setenv(EnvPrivateKey, priv)
	t.Setenv(EnvRPCEndpoint, "https://env.example")

	path := filepath.Join(t.TempDir(), "config.json")
	body, _ := json.Marshal(map[string]interface{}{
		"rpcEndpoint": "https://file.example",
		"dataDir":     "/var/lib/bot",
		"limits":      map[string]interface{}{"maxBuysPerToken": 5, "maxBuyAmount": 0.2},
	})
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://file.example", cfg.RPCEndpoint)
	require.Equal(t, "/var/lib/bot", cfg.DataDir)
	require.Equal(t, 5, cfg.Limits.MaxBuysPerToken)
	require.Equal(t, 0.2, cfg.Limits.MaxBuyAmount)
}

func TestLoad_MissingKeyIsFatal(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRPCEndpoint, "https://rpc.example")

	_, err := Load("")
	require.ErrorIs(t, err, ErrMissing)
}

func TestLoad_MissingEndpointIsFatal(t *testing.T) {
	clearEnv(t)
	priv, _ := testKey(t)
	t.Setenv(EnvPrivateKey, priv)

	_, err := Load("")
	require.ErrorIs(t, err, ErrMissing)
}

func TestLoad_PublicKeyMismatch(t *testing.T) {
	clearEnv(t)
	priv, _ := testKey(t)
	t.Setenv(EnvPrivateKey, priv)
	t.Setenv(EnvPublicKey, codec.EncodeBase58(bytes.Repeat([]byte{1}, 32)))
	t.Setenv(EnvRPCEndpoint, "https://rpc.example")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match")
}

func TestLoad_BadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
