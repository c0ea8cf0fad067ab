package network

import (
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterPresets(t *testing.T) {
	tests := []struct {
		cluster string
		url     string
	}{
		{"localnet", rpc.LocalNet_RPC},
		{"devnet", rpc.DevNet_RPC},
		{"testnet", rpc.TestNet_RPC},
	}
	for _, tt := range tests {
		t.Run(tt.cluster, func(t *testing.T) {
			preset, ok := ClusterPresets[tt.cluster]
			require.True(t, ok)
			assert.Equal(t, tt.url, preset.URL)
		})
	}
}

func TestMainnetHasNoPreset(t *testing.T) {
	_, ok := ClusterPresets["mainnet-beta"]
	assert.False(t, ok, "mainnet should not have a default preset")
}

func TestResolveConfigFlagsOverrideAll(t *testing.T) {
	env := map[string]string{"FEEROUTER_RPC_URL": "http://env:8899"}
	cfg, err := ResolveConfig(&RPCConfig{URL: "http://flag:8899", RPS: 2}, env, "devnet")
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8899", cfg.URL)
	assert.Equal(t, 2.0, cfg.RPS)
	assert.Equal(t, "devnet", cfg.Cluster)
}

func TestResolveConfigEnvOverridesPreset(t *testing.T) {
	env := map[string]string{"FEEROUTER_RPC_URL": "http://env:8899"}
	cfg, err := ResolveConfig(nil, env, "devnet")
	require.NoError(t, err)
	assert.Equal(t, "http://env:8899", cfg.URL)
	assert.Equal(t, 4.0, cfg.RPS, "preset rate limit survives")
}

func TestResolveConfigPresetOnly(t *testing.T) {
	cfg, err := ResolveConfig(nil, nil, "localnet")
	require.NoError(t, err)
	assert.Equal(t, rpc.LocalNet_RPC, cfg.URL)
}

func TestResolveConfigMainnetRequiresExplicit(t *testing.T) {
	_, err := ResolveConfig(nil, nil, "mainnet-beta")
	assert.ErrorIs(t, err, ErrMissingEndpoint)

	cfg, err := ResolveConfig(&RPCConfig{URL: "https://rpc.example"}, nil, "mainnet-beta")
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example", cfg.URL)
}
