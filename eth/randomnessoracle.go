package eth

import (
	"context"
	"math/big"

	"randomness-relay/common"
	"randomness-relay/eth/contracts/randomnessoracle"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RandomnessOracleInterface is the inteface to the RandomnessOracle Smart
// Contract, which combines the drand and sequencer values.  The relay only
// reads it.
type RandomnessOracleInterface interface {
	RandomnessOracleAddress() *ethCommon.Address
	// RandomnessOracleRandomness returns the combined randomness of
	// timestamp, or nil when it's not available yet
	RandomnessOracleRandomness(ctx context.Context, timestamp uint64) (*ethCommon.Hash, error)
}

// RandomnessOracleClient is the implementation of the interface to the
// RandomnessOracle Smart Contract in ethereum.
type RandomnessOracleClient struct {
	client           *EthereumClient
	address          ethCommon.Address
	randomnessOracle *randomnessoracle.RandomnessOracle
}

// NewRandomnessOracleClient creates a new RandomnessOracleClient
func NewRandomnessOracleClient(client *EthereumClient,
	address ethCommon.Address) (*RandomnessOracleClient, error) {
	randomnessOracle, err := randomnessoracle.NewRandomnessOracle(address, client.client)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &RandomnessOracleClient{
		client:           client,
		address:          address,
		randomnessOracle: randomnessOracle,
	}, nil
}

// RandomnessOracleAddress returns the address of the RandomnessOracle
func (c *RandomnessOracleClient) RandomnessOracleAddress() *ethCommon.Address {
	return &c.address
}

// RandomnessOracleRandomness is the interface to call the smart contract function
func (c *RandomnessOracleClient) RandomnessOracleRandomness(ctx context.Context,
	timestamp uint64) (*ethCommon.Hash, error) {
	var value *ethCommon.Hash
	ts := new(big.Int).SetUint64(timestamp)
	if err := c.client.Call(ctx, func(ec *ethclient.Client) error {
		available, err := c.randomnessOracle.IsRandomnessAvailable(newCallOpts(ctx), ts)
		if err != nil || !available {
			return common.Wrap(err)
		}
		v, err := c.randomnessOracle.UnsafeGetRandomness(newCallOpts(ctx), ts)
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
