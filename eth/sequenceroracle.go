package eth

import (
	"context"
	"math/big"

	"randomness-relay/common"
	"randomness-relay/eth/contracts/sequencerrandomoracle"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SequencerOracleInterface is the inteface to the SequencerRandomOracle
// Smart Contract
type SequencerOracleInterface interface {
	SequencerOracleAddress() *ethCommon.Address
	SequencerOracleConstants(ctx context.Context) (*common.SequencerConstants, error)
	SequencerOracleCommitPhase(ctx context.Context, timestamp uint64) (*common.CommitPhaseInfo, error)
	SequencerOraclePostCommitment(ctx context.Context, timestamp uint64,
		commitment ethCommon.Hash) (*types.Transaction, error)
	SequencerOracleRevealValue(ctx context.Context, timestamp uint64,
		value ethCommon.Hash) (*types.Transaction, error)
}

// SequencerOracleClient is the implementation of the interface to the
// SequencerRandomOracle Smart Contract in ethereum.
type SequencerOracleClient struct {
	client          *EthereumClient
	address         ethCommon.Address
	sequencerOracle *sequencerrandomoracle.SequencerRandomOracle
}

// NewSequencerOracleClient creates a new SequencerOracleClient
func NewSequencerOracleClient(client *EthereumClient,
	address ethCommon.Address) (*SequencerOracleClient, error) {
	sequencerOracle, err := sequencerrandomoracle.NewSequencerRandomOracle(address, client.client)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &SequencerOracleClient{
		client:          client,
		address:         address,
		sequencerOracle: sequencerOracle,
	}, nil
}

// SequencerOracleAddress returns the address of the SequencerRandomOracle
func (c *SequencerOracleClient) SequencerOracleAddress() *ethCommon.Address {
	return &c.address
}

// SequencerOracleConstants returns the protocol constants of the contract
func (c *SequencerOracleClient) SequencerOracleConstants(ctx context.Context) (
	*common.SequencerConstants, error) {
	var constants common.SequencerConstants
	if err := c.client.Call(ctx, func(ec *ethclient.Client) error {
		var err error
		constants.PrecommitDelay, err = c.sequencerOracle.PRECOMMITDELAY(newCallOpts(ctx))
		if err != nil {
			return common.Wrap(err)
		}
		constants.Timeout, err = c.sequencerOracle.SEQUENCERTIMEOUT(newCallOpts(ctx))
		return common.Wrap(err)
	}); err != nil {
		return nil, common.Wrap(err)
	}
	return &constants, nil
}

// SequencerOracleCommitPhase returns the commit-reveal state of the round
// at timestamp
func (c *SequencerOracleClient) SequencerOracleCommitPhase(ctx context.Context,
	timestamp uint64) (*common.CommitPhaseInfo, error) {
	info := &common.CommitPhaseInfo{Timestamp: timestamp}
	if err := c.client.Call(ctx, func(ec *ethclient.Client) error {
		round, err := c.sequencerOracle.Commitments(newCallOpts(ctx),
			new(big.Int).SetUint64(timestamp))
		if err != nil {
			return common.Wrap(err)
		}
		info.Commitment = round.Commitment
		switch {
		case round.Revealed:
			info.Phase = common.CommitPhaseRevealed
			info.Value = round.Value
		case info.Commitment != (ethCommon.Hash{}):
			info.Phase = common.CommitPhaseCommitted
		default:
			info.Phase = common.CommitPhasePending
		}
		return nil
	}); err != nil {
		return nil, common.Wrap(err)
	}
	return info, nil
}

// SequencerOraclePostCommitment is the interface to call the smart contract function
func (c *SequencerOracleClient) SequencerOraclePostCommitment(ctx context.Context,
	timestamp uint64, commitment ethCommon.Hash) (*types.Transaction, error) {
	tx, err := c.client.CallAuth(ctx, 0,
		func(ec *ethclient.Client, auth *bind.TransactOpts) (*types.Transaction, error) {
			return c.sequencerOracle.PostCommitment(auth, new(big.Int).SetUint64(timestamp), commitment)
		},
	)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return tx, nil
}

// SequencerOracleRevealValue is the interface to call the smart contract function
func (c *SequencerOracleClient) SequencerOracleRevealValue(ctx context.Context,
	timestamp uint64, value ethCommon.Hash) (*types.Transaction, error) {
	tx, err := c.client.CallAuth(ctx, 0,
		func(ec *ethclient.Client, auth *bind.TransactOpts) (*types.Transaction, error) {
			return c.sequencerOracle.RevealValue(auth, new(big.Int).SetUint64(timestamp), value)
		},
	)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return tx, nil
}
