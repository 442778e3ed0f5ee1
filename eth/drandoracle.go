package eth

import (
	"context"
	"math/big"

	"randomness-relay/common"
	"randomness-relay/eth/contracts/drandoracle"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DrandOracleInterface is the inteface to the DrandOracle Smart Contract
type DrandOracleInterface interface {
	DrandOracleAddress() *ethCommon.Address
	// DrandOracleDrand returns the value stored for timestamp, or nil when
	// no value is stored
	DrandOracleDrand(ctx context.Context, timestamp uint64) (*ethCommon.Hash, error)
	DrandOracleSetDrand(ctx context.Context, timestamp uint64,
		value ethCommon.Hash) (*types.Transaction, error)
}

// DrandOracleClient is the implementation of the interface to the DrandOracle
// Smart Contract in ethereum.
type DrandOracleClient struct {
	client      *EthereumClient
	address     ethCommon.Address
	drandOracle *drandoracle.DrandOracle
}

// NewDrandOracleClient creates a new DrandOracleClient
func NewDrandOracleClient(client *EthereumClient, address ethCommon.Address) (*DrandOracleClient, error) {
	drandOracle, err := drandoracle.NewDrandOracle(address, client.client)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &DrandOracleClient{
		client:      client,
		address:     address,
		drandOracle: drandOracle,
	}, nil
}

// DrandOracleAddress returns the address of the DrandOracle
func (c *DrandOracleClient) DrandOracleAddress() *ethCommon.Address {
	return &c.address
}

// DrandOracleDrand is the interface to call the smart contract function
func (c *DrandOracleClient) DrandOracleDrand(ctx context.Context,
	timestamp uint64) (*ethCommon.Hash, error) {
	var value *ethCommon.Hash
	ts := new(big.Int).SetUint64(timestamp)
	if err := c.client.Call(ctx, func(ec *ethclient.Client) error {
		available, err := c.drandOracle.IsDrandAvailable(newCallOpts(ctx), ts)
		if err != nil || !available {
			return common.Wrap(err)
		}
		v, err := c.drandOracle.GetDrand(newCallOpts(ctx), ts)
		if err != nil {
			return common.Wrap(err)
		}
		hash := ethCommon.Hash(v)
		value = &hash
		return nil
	}); err != nil {
		return nil, common.Wrap(err)
	}
	return value, nil
}

// DrandOracleSetDrand is the interface to call the smart contract function
func (c *DrandOracleClient) DrandOracleSetDrand(ctx context.Context, timestamp uint64,
	value ethCommon.Hash) (*types.Transaction, error) {
	tx, err := c.client.CallAuth(ctx, 0,
		func(ec *ethclient.Client, auth *bind.TransactOpts) (*types.Transaction, error) {
			return c.drandOracle.SetDrand(auth, new(big.Int).SetUint64(timestamp), value)
		},
	)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return tx, nil
}
