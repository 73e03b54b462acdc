package ledger

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// fakeBackend is an in-memory Backend.
type fakeBackend struct {
	mu sync.Mutex

	callOut  []byte
	callErr  error
	lastCall ethereum.CallMsg
	balance  *big.Int
	nonce    uint64
	gasPrice *big.Int
	gas      uint64
	chainID  *big.Int
	sendErr  error
	sent     []*types.Transaction
	receipts []*types.Receipt // returned in order; nil means not found
	receiptN int
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balance:  big.NewInt(0),
		nonce:    7,
		gasPrice: big.NewInt(1_000_000_000),
		gas:      500_000,
		chainID:  big.NewInt(11155111),
	}
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = msg
	return f.callOut, f.callErr
}

func (f *fakeBackend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return f.gas, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptN >= len(f.receipts) {
		return nil, ethereum.NotFound
	}
	r := f.receipts[f.receiptN]
	f.receiptN++
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) ChainID(_ context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) Close() { f.closed = true }

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := DefaultABI()
	require.NoError(t, err)
	return parsed
}

func TestDefaultABIHasFeeds(t *testing.T) {
	parsed := mustABI(t)
	for _, name := range []string{"getBTCinUSD", "getETHinUSD", "getUSDtoEUR", "getBTCinEUR", "getETHinEUR"} {
		method, ok := parsed.Methods[name]
		require.True(t, ok, name)
		assert.Empty(t, method.Inputs, name)
		assert.Len(t, method.Outputs, 2, name)
	}
	assert.Len(t, parsed.Constructor.Inputs, 3)
}

func TestAddressIsLazy(t *testing.T) {
	backend := newFakeBackend()

	c := NewClient(backend, "", nil)
	_, err := c.Address()
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	c = NewClient(backend, "0xnot-hex", nil)
	_, err = c.Address()
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	c = NewClient(backend, "0x"+testKey, nil)
	addr, err := c.Address()
	require.NoError(t, err)
	key, _ := crypto.HexToECDSA(testKey)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	c.Close()
	assert.True(t, backend.closed)
}

func TestContractCall(t *testing.T) {
	parsed := mustABI(t)
	backend := newFakeBackend()
	out, err := parsed.Methods["getBTCinUSD"].Outputs.Pack(big.NewInt(250000000000), big.NewInt(1700000000))
	require.NoError(t, err)
	backend.callOut = out

	contract := NewClient(backend, testKey, nil).Bind(common.HexToAddress("0xabc"), parsed)
	values, err := contract.Call(context.Background(), "getBTCinUSD")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, big.NewInt(250000000000), values[0])
	assert.Equal(t, big.NewInt(1700000000), values[1])

	require.NotNil(t, backend.lastCall.To)
	assert.Equal(t, contract.Address(), *backend.lastCall.To)
	assert.Equal(t, parsed.Methods["getBTCinUSD"].ID, backend.lastCall.Data)
}

func TestContractCallErrors(t *testing.T) {
	parsed := mustABI(t)

	t.Run("unknown method", func(t *testing.T) {
		contract := NewClient(newFakeBackend(), testKey, nil).Bind(common.Address{}, parsed)
		_, err := contract.Call(context.Background(), "getDOGEinUSD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getDOGEinUSD")
	})

	t.Run("backend error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callErr = errors.New("execution reverted")
		contract := NewClient(backend, testKey, nil).Bind(common.Address{}, parsed)
		_, err := contract.Call(context.Background(), "getETHinUSD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "execution reverted")
	})

	t.Run("empty output", func(t *testing.T) {
		contract := NewClient(newFakeBackend(), testKey, nil).Bind(common.Address{}, parsed)
		_, err := contract.Call(context.Background(), "getETHinUSD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returned no data")
	})

	t.Run("truncated output", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callOut = make([]byte, 32)
		contract := NewClient(backend, testKey, nil).Bind(common.Address{}, parsed)
		_, err := contract.Call(context.Background(), "getETHinUSD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unpack")
	})
}

func TestDeploy(t *testing.T) {
	parsed := mustABI(t)
	backend := newFakeBackend()
	client := NewClient(backend, testKey, nil)
	bytecode := []byte{0x60, 0x80, 0x60, 0x40}
	feeds := []interface{}{
		common.HexToAddress("0x1b44F3514812d835EB1BDB0acB33d3fA3351Ee43"),
		common.HexToAddress("0x694AA1769357215DE4FAC081bf1f309aDC325306"),
		common.HexToAddress("0x1a81afB8146aeFfCFc5E50e8479e826E7D55b910"),
	}

	address, tx, err := client.Deploy(context.Background(), parsed, bytecode, feeds...)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, tx.Hash(), backend.sent[0].Hash())

	assert.Nil(t, tx.To(), "creation transactions have no recipient")
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(500_000), tx.Gas())

	ctorArgs, err := parsed.Pack("", feeds...)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, bytecode...), ctorArgs...), tx.Data())

	from, err := types.Sender(types.LatestSignerForChainID(backend.chainID), tx)
	require.NoError(t, err)
	want, _ := client.Address()
	assert.Equal(t, want, from)
	assert.Equal(t, crypto.CreateAddress(from, 7), address)
}

func TestDeployErrors(t *testing.T) {
	parsed := mustABI(t)

	_, _, err := NewClient(newFakeBackend(), testKey, nil).Deploy(context.Background(), parsed, nil)
	assert.ErrorIs(t, err, ErrNoBytecode)

	_, _, err = NewClient(newFakeBackend(), "", nil).Deploy(context.Background(), parsed, []byte{0x60})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	backend := newFakeBackend()
	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	_, _, err = NewClient(backend, testKey, nil).Deploy(context.Background(), parsed, []byte{0x60},
		common.Address{}, common.Address{}, common.Address{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestWaitMined(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000})

	t.Run("found after polling", func(t *testing.T) {
		backend := newFakeBackend()
		backend.receipts = []*types.Receipt{nil, nil, {Status: types.ReceiptStatusSuccessful, GasUsed: 123456}}
		client := NewClient(backend, testKey, nil)
		client.SetPollInterval(time.Millisecond)

		receipt, err := client.WaitMined(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(123456), receipt.GasUsed)
		assert.Equal(t, 3, backend.receiptN)
	})

	t.Run("reverted", func(t *testing.T) {
		backend := newFakeBackend()
		backend.receipts = []*types.Receipt{{Status: types.ReceiptStatusFailed}}
		receipt, err := NewClient(backend, testKey, nil).WaitMined(context.Background(), tx)
		assert.ErrorIs(t, err, ErrReceiptFailed)
		assert.NotNil(t, receipt)
	})

	t.Run("context cancelled", func(t *testing.T) {
		client := NewClient(newFakeBackend(), testKey, nil)
		client.SetPollInterval(time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.WaitMined(ctx, tx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PriceConverter.json")
	artifact := `{"contractName":"PriceConverter","abi":` + priceConverterABI + `,"bytecode":"0x6080604052"}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "PriceConverter", loaded.Name)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, loaded.Bytecode)
	assert.Contains(t, loaded.ABI.Methods, "getUSDtoEUR")

	parsed, embedded, err := LoadABI(path)
	require.NoError(t, err)
	assert.False(t, embedded)
	assert.Contains(t, parsed.Methods, "getBTCinEUR")

	parsed, embedded, err = LoadABI(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.True(t, embedded)
	assert.Contains(t, parsed.Methods, "getBTCinEUR")

	_, err = ParseArtifact([]byte(`{"abi":[]`))
	assert.Error(t, err)
	_, err = ParseArtifact([]byte(`{"bytecode":"0x00"}`))
	assert.Error(t, err)

	noCode, err := ParseArtifact([]byte(`{"abi":[]}`))
	require.NoError(t, err)
	assert.Empty(t, noCode.Bytecode)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	_, _, err = LoadABI(bad)
	assert.Error(t, err)
}
