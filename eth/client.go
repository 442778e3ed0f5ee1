package eth

import (
	"randomness-relay/common"

	"github.com/ethereum/go-ethereum/accounts"
	ethKeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientInterface is the eth Client interface used by the relay modules to
// interact with Ethereum Blockchain and the oracle smart contracts.
type ClientInterface interface {
	EthereumInterface
	DrandOracleInterface
	SequencerOracleInterface
	RandomnessOracleInterface
}

// Client is used to interact with Ethereum and the oracle smart contracts.
type Client struct {
	EthereumClient
	DrandOracleClient
	SequencerOracleClient
	RandomnessOracleClient
}

// ClientConfig is the configuration of the Client
type ClientConfig struct {
	Ethereum                EthereumConfig
	DrandOracleAddress      ethCommon.Address
	SequencerOracleAddress  ethCommon.Address
	RandomnessOracleAddress ethCommon.Address
}

// NewClient creates a new Client to interact with Ethereum and the oracle smart contracts.
func NewClient(client *ethclient.Client, account *accounts.Account, ks *ethKeystore.KeyStore,
	cfg *ClientConfig) (*Client, error) {
	ethereumClient, err := NewEthereumClient(client, account, ks, &cfg.Ethereum)
	if err != nil {
		return nil, common.Wrap(err)
	}
	drandOracleClient, err := NewDrandOracleClient(ethereumClient, cfg.DrandOracleAddress)
	if err != nil {
		return nil, common.Wrap(err)
	}
	sequencerOracleClient, err := NewSequencerOracleClient(ethereumClient, cfg.SequencerOracleAddress)
	if err != nil {
		return nil, common.Wrap(err)
	}
	randomnessOracleClient, err := NewRandomnessOracleClient(ethereumClient,
		cfg.RandomnessOracleAddress)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &Client{
		EthereumClient:         *ethereumClient,
		DrandOracleClient:      *drandOracleClient,
		SequencerOracleClient:  *sequencerOracleClient,
		RandomnessOracleClient: *randomnessOracleClient,
	}, nil
}
