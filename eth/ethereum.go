package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"randomness-relay/common"
	"randomness-relay/log"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethKeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrAccountNil is used when the calls can not be made because the account is nil
	ErrAccountNil = fmt.Errorf("authorized calls can't be made when the account is nil")
	// ErrReceiptTimeout is used when a transaction is not mined (or not
	// confirmed) before EthereumConfig.ReceiptTimeout
	ErrReceiptTimeout = fmt.Errorf("transaction receipt not available before timeout")
)

// EthereumConfig defines the configuration parameters of the EthereumClient
type EthereumConfig struct {
	// CallGasLimit is the gas limit of the transactions, 0 to estimate it
	CallGasLimit uint64
	// ReceiptTimeout bounds EthWaitReceipt
	ReceiptTimeout time.Duration
	// IntervalReceiptLoop is the polling interval of EthWaitReceipt
	IntervalReceiptLoop time.Duration
	// ConfirmBlocks is the number of blocks on top of the receipt block
	// required by EthWaitReceipt
	ConfirmBlocks uint64
	// Attempts is the number of attempts of a read call
	Attempts int
	// AttemptsDelay is the base delay of the exponential backoff between
	// read attempts
	AttemptsDelay time.Duration
}

// EthereumClient is an ethereum client to call Smart Contract methods and check blockchain
// information.
type EthereumClient struct {
	client  *ethclient.Client
	chainID *big.Int
	account *accounts.Account
	ks      *ethKeystore.KeyStore
	config  *EthereumConfig
}

// NewEthereumClient creates a EthereumClient instance.  The account is not
// mandatory (it can be nil).  If the account is nil, CallAuth will fail
// with ErrAccountNil.
func NewEthereumClient(client *ethclient.Client, account *accounts.Account,
	ks *ethKeystore.KeyStore, config *EthereumConfig) (*EthereumClient, error) {
	if config == nil {
		config = &EthereumConfig{
			ReceiptTimeout:      60 * time.Second,
			IntervalReceiptLoop: 500 * time.Millisecond,
			Attempts:            4,
			AttemptsDelay:       200 * time.Millisecond,
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &EthereumClient{
		client:  client,
		chainID: chainID,
		account: account,
		ks:      ks,
		config:  config,
	}, nil
}

// EthereumInterface is the interface to Ethereum
type EthereumInterface interface {
	EthLastBlock(ctx context.Context) (int64, error)
	EthBlockByNumber(ctx context.Context, number int64) (*common.Block, error)
	EthAddress() (*ethCommon.Address, error)
	EthTransactionReceipt(ctx context.Context, txHash ethCommon.Hash) (*types.Receipt, error)
	EthWaitReceipt(ctx context.Context, txHash ethCommon.Hash) (*types.Receipt, error)
	EthChainID() (*big.Int, error)
	EthPendingNonceAt(ctx context.Context, account ethCommon.Address) (uint64, error)
	EthKeyStore() *ethKeystore.KeyStore
}

// EthLastBlock returns the last block number in the blockchain
func (c *EthereumClient) EthLastBlock(ctx context.Context) (int64, error) {
	var header *types.Header
	if err := c.Call(ctx, func(ec *ethclient.Client) error {
		var err error
		header, err = ec.HeaderByNumber(ctx, nil)
		return err
	}); err != nil {
		return 0, common.Wrap(err)
	}
	return header.Number.Int64(), nil
}

// EthBlockByNumber internally calls ethclient.Client HeaderByNumber and returns
// *common.Block.  If number == -1, the latests known block is returned.
func (c *EthereumClient) EthBlockByNumber(ctx context.Context, number int64) (*common.Block,
	error) {
	blockNum := big.NewInt(number)
	if number == -1 {
		blockNum = nil
	}
	var header *types.Header
	if err := c.Call(ctx, func(ec *ethclient.Client) error {
		var err error
		header, err = ec.HeaderByNumber(ctx, blockNum)
		return err
	}); err != nil {
		return nil, common.Wrap(err)
	}
	b := &common.Block{
		Num:        header.Number.Int64(),
		Timestamp:  time.Unix(int64(header.Time), 0),
		ParentHash: header.ParentHash,
		Hash:       header.Hash(),
	}
	return b, nil
}

// EthAddress returns the ethereum address of the account loaded into the EthereumClient
func (c *EthereumClient) EthAddress() (*ethCommon.Address, error) {
	if c.account == nil {
		return nil, common.Wrap(ErrAccountNil)
	}
	return &c.account.Address, nil
}

// EthTransactionReceipt returns the transaction receipt of the given txHash.
// ethereum.NotFound is returned for unknown or pending transactions.
func (c *EthereumClient) EthTransactionReceipt(ctx context.Context,
	txHash ethCommon.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}

// EthWaitReceipt polls the receipt of txHash until it's mined with
// ConfirmBlocks blocks on top of it.  ErrReceiptTimeout is returned when
// the transaction is not confirmed before ReceiptTimeout.
func (c *EthereumClient) EthWaitReceipt(ctx context.Context,
	txHash ethCommon.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ReceiptTimeout)
	defer cancel()
	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if c.config.ConfirmBlocks == 0 {
				return receipt, nil
			}
			header, err := c.client.HeaderByNumber(ctx, nil)
			if err == nil && header.Number.Uint64() >=
				receipt.BlockNumber.Uint64()+c.config.ConfirmBlocks {
				// Read again in case the block was reorganized while waiting
				if receipt, err = c.client.TransactionReceipt(ctx, txHash); err == nil {
					return receipt, nil
				}
			}
		} else if err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			log.Debugw("EthereumClient.EthWaitReceipt", "tx", txHash.Hex(), "err", err)
		}
		select {
		case <-ctx.Done():
			return nil, common.Wrap(ErrReceiptTimeout)
		case <-time.After(c.config.IntervalReceiptLoop):
		}
	}
}

// EthChainID returns the ChainID of the ethereum network
func (c *EthereumClient) EthChainID() (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

// EthPendingNonceAt returns the account nonce of the given account in the pending
// state. This is the nonce that should be used for the next transaction.
func (c *EthereumClient) EthPendingNonceAt(ctx context.Context,
	account ethCommon.Address) (uint64, error) {
	return c.client.PendingNonceAt(ctx, account)
}

// EthKeyStore returns the keystore in the EthereumClient
func (c *EthereumClient) EthKeyStore() *ethKeystore.KeyStore {
	return c.ks
}

// CallAuth performs a Smart Contract method call that requires authorization.
// This call requires a valid account with Ether that can be spend during the
// call.  The nonce and fees are chosen by the node.
func (c *EthereumClient) CallAuth(ctx context.Context, gasLimit uint64,
	fn func(*ethclient.Client, *bind.TransactOpts) (*types.Transaction, error),
) (*types.Transaction, error) {
	if c.account == nil {
		return nil, common.Wrap(ErrAccountNil)
	}
	auth, err := bind.NewKeyStoreTransactorWithChainID(c.ks, *c.account, c.chainID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	auth.Context = ctx
	auth.Value = big.NewInt(0)
	if gasLimit == 0 {
		gasLimit = c.config.CallGasLimit
	}
	auth.GasLimit = gasLimit

	tx, err := fn(c.client, auth)
	if tx != nil {
		log.Debugw("Transaction", "tx", tx.Hash().Hex(), "nonce", tx.Nonce())
	}
	return tx, common.Wrap(err)
}

// Call performs a read only Smart Contract method call.  Node errors are
// retried with exponential backoff up to EthereumConfig.Attempts times.  A
// reverted call is not retried.
func (c *EthereumClient) Call(ctx context.Context, fn func(*ethclient.Client) error) error {
	backoff, err := retry.NewExponential(c.config.AttemptsDelay)
	if err != nil {
		return common.Wrap(err)
	}
	retries := uint64(0)
	if c.config.Attempts > 1 {
		retries = uint64(c.config.Attempts - 1)
	}
	backoff = retry.WithMaxRetries(retries, backoff)
	return common.Wrap(retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(c.client); err != nil {
			if IsExecutionReverted(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	}))
}

// newCallOpts returns a CallOpts to be used in ethereum calls with a non-zero
// From address.  This is a workaround for a bug in ethereumjs-vm that shows up
// in ganache: https://github.com/hermeznetwork/hermez-node/issues/317
func newCallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{
		From:    ethCommon.HexToAddress("0x0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f"),
		Context: ctx,
	}
}
