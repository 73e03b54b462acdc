package common

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultNetworks []byte

// ErrUnknownNetwork is returned when a network name is not in the catalogue.
var ErrUnknownNetwork = errors.New("unknown network")

const apiKeyPlaceholder = "{apiKey}"

// LoadNetworks parses a YAML network catalogue and validates it.
func LoadNetworks(data []byte) (map[string]Network, error) {
	tempNetworks := make(map[string]Network)
	if err := yaml.Unmarshal(data, &tempNetworks); err != nil {
		return nil, fmt.Errorf("failed to parse network catalogue: %w", err)
	}

	// Assign names based on map keys
	networks := make(map[string]Network, len(tempNetworks))
	for name, network := range tempNetworks {
		network.Name = name
		networks[name] = network
	}

	if err := ValidateNetworks(networks); err != nil {
		return nil, fmt.Errorf("network catalogue validation failed: %w", err)
	}
	return networks, nil
}

// LoadNetworksFile reads a catalogue from disk.
func LoadNetworksFile(path string) (map[string]Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return LoadNetworks(data)
}

// DefaultNetworks returns the catalogue compiled into the binary.
func DefaultNetworks() (map[string]Network, error) {
	return LoadNetworks(defaultNetworks)
}

// ValidateNetworks checks that every network has a chain id, an RPC URL and
// all three feeds.
func ValidateNetworks(networks map[string]Network) error {
	if len(networks) == 0 {
		return fmt.Errorf("no networks defined")
	}
	for name, network := range networks {
		if network.ChainID <= 0 {
			return fmt.Errorf("network '%s' has invalid chainId '%d'", name, network.ChainID)
		}
		if network.RPCURLTemplate == "" {
			return fmt.Errorf("network '%s' is missing 'rpcUrl'", name)
		}
		feeds := map[string]ethcommon.Address{
			"btcUsd": network.Feeds.BTCUSD,
			"ethUsd": network.Feeds.ETHUSD,
			"eurUsd": network.Feeds.EURUSD,
		}
		for feed, addr := range feeds {
			if addr == (ethcommon.Address{}) {
				return fmt.Errorf("network '%s' is missing feed '%s'", name, feed)
			}
		}
	}
	return nil
}

// ResolveNetwork looks up a network and returns it together with the RPC URL
// to dial. A non-empty override replaces the templated URL.
func ResolveNetwork(networks map[string]Network, name, apiKey, override string) (Network, string, error) {
	network, ok := networks[strings.ToLower(name)]
	if !ok {
		return Network{}, "", fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
	if override != "" {
		return network, override, nil
	}
	// A missing key surfaces as an RPC error on first use.
	return network, strings.ReplaceAll(network.RPCURLTemplate, apiKeyPlaceholder, apiKey), nil
}
