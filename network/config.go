package network

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

// RPCConfig holds the connection parameters for a Solana JSON-RPC endpoint.
type RPCConfig struct {
	URL     string  `json:"url"`
	Cluster string  `json:"cluster"`
	RPS     float64 `json:"rps"` // requests per second, 0 = unlimited
}

// ClusterPresets contains default RPC configurations for known clusters.
// Mainnet is intentionally omitted to require explicit configuration.
var ClusterPresets = map[string]RPCConfig{
	"localnet": {URL: rpc.LocalNet_RPC},
	"devnet":   {URL: rpc.DevNet_RPC, RPS: 4},
	"testnet":  {URL: rpc.TestNet_RPC, RPS: 4},
}

// ResolveConfig merges RPC configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (FEEROUTER_RPC_URL)
//  3. Cluster presets (lowest priority, not for mainnet)
func ResolveConfig(flags *RPCConfig, env map[string]string, cluster string) (*RPCConfig, error) {
	result := RPCConfig{Cluster: cluster}

	if preset, ok := ClusterPresets[cluster]; ok {
		result = preset
		result.Cluster = cluster
	}

	if v := env["FEEROUTER_RPC_URL"]; v != "" {
		result.URL = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.RPS > 0 {
			result.RPS = flags.RPS
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s requires explicit RPC configuration (set --rpc-url or FEEROUTER_RPC_URL)", ErrMissingEndpoint, cluster)
	}
	return &result, nil
}
