package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract issues eth_call requests against a deployed contract.
type Contract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Call invokes a zero-argument view method and returns its decoded outputs.
// A method missing from the ABI fails here, at call time.
func (c *Contract) Call(ctx context.Context, method string) ([]interface{}, error) {
	input, err := c.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := c.address
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no data, is %s a PriceConverter?", method, c.address.Hex())
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}
