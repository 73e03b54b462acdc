package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	oraclecommon "priceconverter/oracle/common"
	"priceconverter/oracle/ledger"
)

// Config holds the settings shared by the console, the deployer and the API.
// Secrets are not validated here; a missing key surfaces on the first remote
// call that needs it.
type Config struct {
	// Ledger
	APIKey          string
	PrivateKey      string
	ContractAddress string
	Network         string
	RPCURL          string
	NetworksFile    string
	ArtifactPath    string

	// Logging
	LogFile  string
	LogLevel string

	// Session
	FatalBalance bool

	// API
	Port        string
	CORSOrigins []string
}

// Load reads .env files (if present) and then the process environment.
func Load(envFiles ...string) *Config {
	// Ignore error if the file doesn't exist; the environment may be set directly.
	_ = godotenv.Load(envFiles...)

	return &Config{
		APIKey:          getEnv("API_KEY", ""),
		PrivateKey:      getEnv("PRIVATE_KEY", ""),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		Network:         getEnv("NETWORK", "sepolia"),
		RPCURL:          getEnv("RPC_URL", ""),
		NetworksFile:    getEnv("NETWORKS_FILE", ""),
		ArtifactPath:    getEnv("ARTIFACT_PATH", ledger.DefaultArtifactPath),

		LogFile:  getEnv("LOG_FILE", "pricecli.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FatalBalance: getBoolEnv("FATAL_BALANCE", true),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getListEnv("CORS_ORIGINS", []string{"*"}),
	}
}

// Contract returns CONTRACT_ADDRESS as an address. An empty or malformed
// value yields the zero address; calls against it fail at call time.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ResolveNetwork returns the selected network and the RPC URL to dial.
// NETWORKS_FILE replaces the built-in table when set.
func (c *Config) ResolveNetwork() (oraclecommon.Network, string, error) {
	var (
		networks map[string]oraclecommon.Network
		err      error
	)
	if c.NetworksFile != "" {
		networks, err = oraclecommon.LoadNetworksFile(c.NetworksFile)
	} else {
		networks, err = oraclecommon.DefaultNetworks()
	}
	if err != nil {
		return oraclecommon.Network{}, "", err
	}
	return oraclecommon.ResolveNetwork(networks, c.Network, c.APIKey, c.RPCURL)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
