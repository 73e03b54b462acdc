package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNoBytecode is returned when an artifact carries no creation bytecode.
var ErrNoBytecode = errors.New("artifact has no bytecode")

// DefaultArtifactPath is where Hardhat writes the compiled PriceConverter.
const DefaultArtifactPath = "artifacts/contracts/PriceConverter.sol/PriceConverter.json"

// priceConverterABI describes the PriceConverter contract: a constructor
// taking the three Chainlink feeds and five views returning (answer, updatedAt).
const priceConverterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "btcUsdFeed", "type": "address"},
			{"internalType": "address", "name": "ethUsdFeed", "type": "address"},
			{"internalType": "address", "name": "eurUsdFeed", "type": "address"}
		],
		"stateMutability": "nonpayable",
		"type": "constructor"
	},
	{
		"inputs": [],
		"name": "getBTCinUSD",
		"outputs": [
			{"internalType": "int256", "name": "", "type": "int256"},
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getETHinUSD",
		"outputs": [
			{"internalType": "int256", "name": "", "type": "int256"},
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getUSDtoEUR",
		"outputs": [
			{"internalType": "int256", "name": "", "type": "int256"},
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getBTCinEUR",
		"outputs": [
			{"internalType": "int256", "name": "", "type": "int256"},
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getETHinEUR",
		"outputs": [
			{"internalType": "int256", "name": "", "type": "int256"},
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Artifact is the subset of a Hardhat build artifact the console needs.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// DefaultABI returns the PriceConverter ABI compiled into the binary.
func DefaultABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(priceConverterABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse PriceConverter ABI: %w", err)
	}
	return parsed, nil
}

// ParseArtifact decodes a Hardhat artifact. A missing bytecode is not an
// error here; deployment checks it.
func ParseArtifact(data []byte) (Artifact, error) {
	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, fmt.Errorf("failed to parse artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return Artifact{}, fmt.Errorf("artifact has no abi")
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to parse artifact abi: %w", err)
	}

	artifact := Artifact{Name: raw.ContractName, ABI: parsed}
	if raw.Bytecode != "" {
		code, err := hexutil.Decode(raw.Bytecode)
		if err != nil {
			return Artifact{}, fmt.Errorf("failed to decode artifact bytecode: %w", err)
		}
		artifact.Bytecode = code
	}
	return artifact, nil
}

// LoadArtifact reads and decodes the artifact at path.
func LoadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", path, err)
	}
	return artifact, nil
}

// LoadABI returns the ABI from the artifact at path, or the embedded ABI when
// the file does not exist. The second result reports whether the embedded
// ABI was used.
func LoadABI(path string) (abi.ABI, bool, error) {
	artifact, err := LoadArtifact(path)
	if err == nil {
		return artifact.ABI, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return abi.ABI{}, false, err
	}
	parsed, err := DefaultABI()
	return parsed, true, err
}
