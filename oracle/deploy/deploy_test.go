package deploy

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"priceconverter/oracle/common"
	"priceconverter/oracle/ledger"
)

type mockDeployer struct {
	mock.Mock
}

func (m *mockDeployer) Address() (ethcommon.Address, error) {
	args := m.Called()
	return args.Get(0).(ethcommon.Address), args.Error(1)
}

func (m *mockDeployer) BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *mockDeployer) Deploy(ctx context.Context, parsed abi.ABI, bytecode []byte, params ...interface{}) (ethcommon.Address, *types.Transaction, error) {
	args := m.Called(ctx, bytecode, params)
	tx, _ := args.Get(1).(*types.Transaction)
	return args.Get(0).(ethcommon.Address), tx, args.Error(2)
}

func (m *mockDeployer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	args := m.Called(ctx, tx)
	receipt, _ := args.Get(0).(*types.Receipt)
	return receipt, args.Error(1)
}

var (
	deployerAddr = ethcommon.HexToAddress("0x00000000000000000000000000000000000000d1")
	contractAddr = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1")
	testFeeds    = common.FeedSet{
		BTCUSD: ethcommon.HexToAddress("0x1b44F3514812d835EB1BDB0acB33d3fA3351Ee43"),
		ETHUSD: ethcommon.HexToAddress("0x694AA1769357215DE4FAC081bf1f309aDC325306"),
		EURUSD: ethcommon.HexToAddress("0x1a81afB8146aeFfCFc5E50e8479e826E7D55b910"),
	}
	testBytecode = []byte{0x60, 0x80, 0x60, 0x40}
)

func testArtifact(t *testing.T) ledger.Artifact {
	t.Helper()
	parsed, err := ledger.DefaultABI()
	require.NoError(t, err)
	return ledger.Artifact{Name: "PriceConverter", ABI: parsed, Bytecode: testBytecode}
}

func TestRoutineSuccess(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 3, GasPrice: big.NewInt(1), Gas: 900_000})
	d := new(mockDeployer)
	d.On("Address").Return(deployerAddr, nil)
	d.On("BalanceAt", mock.Anything, deployerAddr).Return(big.NewInt(2_000_000_000_000_000_000), nil)
	d.On("Deploy", mock.Anything, testBytecode, []interface{}{testFeeds.BTCUSD, testFeeds.ETHUSD, testFeeds.EURUSD}).
		Return(contractAddr, tx, nil).Once()
	d.On("WaitMined", mock.Anything, tx).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 612345}, nil).Once()

	var out bytes.Buffer
	report, err := NewRoutine(d, testArtifact(t), testFeeds, &out, nil).Run(context.Background())
	require.NoError(t, err)
	d.AssertExpectations(t)

	assert.Equal(t, deployerAddr, report.Deployer)
	assert.Equal(t, contractAddr, report.Address)
	assert.Equal(t, tx.Hash(), report.TxHash)
	assert.Equal(t, uint64(612345), report.GasUsed)

	text := out.String()
	assert.Contains(t, text, "Desplegando contrato con la cuenta: "+deployerAddr.Hex())
	assert.Contains(t, text, "Saldo de la cuenta: 2.0 ETH")

	addrLine := "Contrato PriceConverter desplegado en: " + contractAddr.Hex()
	hashLine := "Hash de la transacción: " + tx.Hash().Hex()
	gasLine := "Gas usado para el despliegue: 612345"
	for _, line := range []string{addrLine, hashLine, gasLine} {
		assert.Equal(t, 1, strings.Count(text, line), line)
	}
	assert.Less(t, strings.Index(text, addrLine), strings.Index(text, hashLine))
	assert.Less(t, strings.Index(text, hashLine), strings.Index(text, gasLine))
}

func TestRoutineUsesReceiptAddress(t *testing.T) {
	mined := ethcommon.HexToAddress("0x00000000000000000000000000000000000000c2")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 1})
	d := new(mockDeployer)
	d.On("Address").Return(deployerAddr, nil)
	d.On("BalanceAt", mock.Anything, deployerAddr).Return(big.NewInt(0), nil)
	d.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(contractAddr, tx, nil)
	d.On("WaitMined", mock.Anything, tx).Return(&types.Receipt{ContractAddress: mined, GasUsed: 1}, nil)

	report, err := NewRoutine(d, testArtifact(t), testFeeds, &bytes.Buffer{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mined, report.Address)
}

func TestRoutineCreationFailure(t *testing.T) {
	d := new(mockDeployer)
	d.On("Address").Return(deployerAddr, nil)
	d.On("BalanceAt", mock.Anything, deployerAddr).Return(big.NewInt(0), nil)
	d.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Return(ethcommon.Address{}, nil, errors.New("insufficient funds for gas * price + value"))

	var out bytes.Buffer
	report, err := NewRoutine(d, testArtifact(t), testFeeds, &out, nil).Run(context.Background())
	assert.Nil(t, report)
	assert.ErrorContains(t, err, "insufficient funds")
	assert.NotContains(t, out.String(), "desplegado en")
	assert.NotContains(t, out.String(), "Hash de la transacción")
	d.AssertNotCalled(t, "WaitMined", mock.Anything, mock.Anything)
}

func TestRoutineRevertedDeployment(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 1})
	d := new(mockDeployer)
	d.On("Address").Return(deployerAddr, nil)
	d.On("BalanceAt", mock.Anything, deployerAddr).Return(big.NewInt(0), nil)
	d.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(contractAddr, tx, nil)
	d.On("WaitMined", mock.Anything, tx).
		Return(&types.Receipt{Status: types.ReceiptStatusFailed}, ledger.ErrReceiptFailed)

	var out bytes.Buffer
	_, err := NewRoutine(d, testArtifact(t), testFeeds, &out, nil).Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrReceiptFailed)
	assert.NotContains(t, out.String(), "Hash de la transacción")
}

func TestRoutineEarlyFailures(t *testing.T) {
	t.Run("bad key", func(t *testing.T) {
		d := new(mockDeployer)
		d.On("Address").Return(ethcommon.Address{}, ledger.ErrInvalidPrivateKey)
		_, err := NewRoutine(d, testArtifact(t), testFeeds, &bytes.Buffer{}, nil).Run(context.Background())
		assert.ErrorIs(t, err, ledger.ErrInvalidPrivateKey)
		d.AssertNotCalled(t, "BalanceAt", mock.Anything, mock.Anything)
	})

	t.Run("balance", func(t *testing.T) {
		d := new(mockDeployer)
		d.On("Address").Return(deployerAddr, nil)
		d.On("BalanceAt", mock.Anything, deployerAddr).Return(nil, errors.New("401 Unauthorized"))
		_, err := NewRoutine(d, testArtifact(t), testFeeds, &bytes.Buffer{}, nil).Run(context.Background())
		assert.ErrorContains(t, err, "401")
	})

	t.Run("no bytecode", func(t *testing.T) {
		d := new(mockDeployer)
		d.On("Address").Return(deployerAddr, nil)
		d.On("BalanceAt", mock.Anything, deployerAddr).Return(big.NewInt(0), nil)
		artifact := testArtifact(t)
		artifact.Bytecode = nil
		_, err := NewRoutine(d, artifact, testFeeds, &bytes.Buffer{}, nil).Run(context.Background())
		assert.ErrorIs(t, err, ledger.ErrNoBytecode)
		d.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
	})
}
