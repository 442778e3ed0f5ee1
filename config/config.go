package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"randomness-relay/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator"
)

// Duration is a wrapper type that parses time duration from text.
type Duration struct {
	time.Duration
}

// UnmarshalText unmarshalls time duration from text.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return common.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// MarshalText marshalls time duration into text.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Node is the relay configuration
type Node struct {
	Log struct {
		// Level is the log level: debug, info, warn or error
		Level string `validate:"required"`
		// Out is the list of outputs: stdout, stderr or file paths
		Out []string `validate:"required"`
	}
	Web3 struct {
		// URL is the URL of the web3 ethereum-node RPC server.  Both http
		// and ws endpoints are supported.
		URL string `validate:"required" env:"RPC_URL"`
	}
	EthClient struct {
		// PrivateKey is the hex encoded key of the signer.  When set it's
		// imported into the keystore at startup.
		PrivateKey string `env:"PRIVATE_KEY"`
		// Address is the signer address, required when PrivateKey is not
		// set.  The account must already be in the keystore.
		Address string `env:"SIGNER_ADDRESS"`
		// CallGasLimit is the default gas limit of the transactions.  0
		// means the gas is estimated for every transaction.
		CallGasLimit uint64
		// ReceiptTimeout is the maximum time to wait for a transaction to
		// be mined before considering it dropped
		ReceiptTimeout Duration
		// IntervalReceiptLoop is the waiting interval between receipt
		// checks
		IntervalReceiptLoop Duration
		// ConfirmBlocks is the number of blocks mined on top of a
		// transaction before considering it confirmed
		ConfirmBlocks uint64
		// Attempts is the maximum number of attempts of a read call
		Attempts int `validate:"required,min=1"`
		// AttemptsDelay is the base delay of the exponential backoff
		// between read attempts
		AttemptsDelay Duration
		Keystore struct {
			// Path to the keystore
			Path string `validate:"required"`
			// Password used to decrypt the keys in the keystore
			Password string `env:"KEYSTORE_PASSWORD"`
			// LightScrypt uses light scrypt parameters, meant for tests
			LightScrypt bool
		}
	}
	SmartContracts struct {
		DrandOracle           string `validate:"required" env:"DRAND_ORACLE_ADDRESS"`
		SequencerRandomOracle string `validate:"required" env:"SEQUENCER_RANDOM_ORACLE_ADDRESS"`
		RandomnessOracle      string `validate:"required" env:"RANDOMNESS_ORACLE_ADDRESS"`
	}
	Drand struct {
		// Servers are the drand HTTP endpoints, tried in order
		Servers []string `validate:"required"`
		// ChainHash identifies the drand chain
		ChainHash string `validate:"required"`
		// Period and GenesisTime are fetched from the beacon when zero
		Period      Duration
		GenesisTime int64
		// Timeout of a single HTTP request
		Timeout Duration
	}
	Sequencer struct {
		// CommitmentSeed is the hex encoded secret from which the round
		// pre-images are derived.  Losing it means the pending rounds can't
		// be revealed.
		CommitmentSeed string `validate:"required" env:"SEQUENCER_COMMITMENT_SEED"`
		// Interval between sequencer rounds.  Rounds are the timestamps
		// multiple of Interval.
		Interval Duration
		// CommitMargin is added to the contract precommit delay when
		// selecting the rounds to commit
		CommitMargin Duration
		// CommitHorizon is the width of the commit window
		CommitHorizon Duration
		// RevealDelay is the time after the round timestamp before the
		// reveal is sent
		RevealDelay Duration
		// PrecommitDelay and Timeout override the contract constants when
		// not zero
		PrecommitDelay Duration
		Timeout        Duration
	}
	Backfill struct {
		// Lookback is how far in the past the drand scan starts when
		// StartTimestamp is 0
		Lookback Duration
		// StartTimestamp is the first drand timestamp relayed, in unix
		// seconds
		StartTimestamp int64
		// MaxChainReadsPerTick bounds the oracle reads of a scan
		MaxChainReadsPerTick int `validate:"required,min=1"`
		// MaxFetchesPerTick bounds the beacon requests of a scan
		MaxFetchesPerTick int `validate:"required,min=1"`
	}
	Coordinator struct {
		// TickInterval is the interval between ticks of the loop
		TickInterval Duration
		// MaxTxsPerTick is the maximum number of transactions sent in a tick
		MaxTxsPerTick int `validate:"required,min=1"`
		// MaxAttempts is the number of attempts before a transaction is
		// moved to the failed list
		MaxAttempts int `validate:"required,min=1"`
	}
	Cache struct {
		// RandomnessSize is the number of sequencer values kept in memory
		RandomnessSize int `validate:"required,min=1"`
	}
	TxJournal struct {
		// Path of the pebble database storing the in-flight transactions
		Path string `validate:"required"`
	}
	PostgreSQL struct {
		// Host is empty when the submission history is disabled
		Host     string `env:"POSTGRES_HOST"`
		Port     int
		User     string `env:"POSTGRES_USER"`
		Password string `env:"POSTGRES_PASS"`
		Name     string
		// MaxOpenConns is the maximum number of open connections
		MaxOpenConns int
	}
	API struct {
		// Address where the API listens.  Empty disables the API
		Address string
		// MaxSQLConnections is the maximum number of history db
		// connections used by the API at the same time
		MaxSQLConnections int
		// SQLConnectionTimeout is the maximum waiting time for a history
		// db connection
		SQLConnectionTimeout Duration
	}
}

// Signer returns the address of the signer
func (cfg *Node) Signer() (ethCommon.Address, error) {
	if cfg.EthClient.PrivateKey != "" {
		sk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.EthClient.PrivateKey, "0x"))
		if err != nil {
			return ethCommon.Address{}, common.Wrap(fmt.Errorf("invalid EthClient.PrivateKey: %w", err))
		}
		return crypto.PubkeyToAddress(sk.PublicKey), nil
	}
	if !ethCommon.IsHexAddress(cfg.EthClient.Address) {
		return ethCommon.Address{}, common.Wrap(fmt.Errorf("invalid EthClient.Address %q",
			cfg.EthClient.Address))
	}
	return ethCommon.HexToAddress(cfg.EthClient.Address), nil
}

// Seed returns the decoded sequencer commitment seed
func (cfg *Node) Seed() ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(cfg.Sequencer.CommitmentSeed, "0x"))
	if err != nil {
		return nil, common.Wrap(fmt.Errorf("invalid Sequencer.CommitmentSeed: %w", err))
	}
	if len(seed) < 16 {
		return nil, common.Wrap(fmt.Errorf("Sequencer.CommitmentSeed must have at least 16 bytes"))
	}
	return seed, nil
}

func (cfg *Node) validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return common.Wrap(fmt.Errorf("validation: %w", err))
	}
	for name, addr := range map[string]string{
		"SmartContracts.DrandOracle":           cfg.SmartContracts.DrandOracle,
		"SmartContracts.SequencerRandomOracle": cfg.SmartContracts.SequencerRandomOracle,
		"SmartContracts.RandomnessOracle":      cfg.SmartContracts.RandomnessOracle,
	} {
		if !ethCommon.IsHexAddress(addr) {
			return common.Wrap(fmt.Errorf("invalid %s address %q", name, addr))
		}
	}
	for name, d := range map[string]Duration{
		"EthClient.ReceiptTimeout":      cfg.EthClient.ReceiptTimeout,
		"EthClient.IntervalReceiptLoop": cfg.EthClient.IntervalReceiptLoop,
		"EthClient.AttemptsDelay":       cfg.EthClient.AttemptsDelay,
		"Drand.Timeout":                 cfg.Drand.Timeout,
		"Sequencer.Interval":            cfg.Sequencer.Interval,
		"Sequencer.CommitHorizon":       cfg.Sequencer.CommitHorizon,
		"Backfill.Lookback":             cfg.Backfill.Lookback,
		"Coordinator.TickInterval":      cfg.Coordinator.TickInterval,
	} {
		if d.Duration <= 0 {
			return common.Wrap(fmt.Errorf("%s must be positive", name))
		}
	}
	if cfg.Sequencer.Interval.Duration%time.Second != 0 {
		return common.Wrap(fmt.Errorf("Sequencer.Interval must be a whole number of seconds"))
	}
	if _, err := cfg.Signer(); err != nil {
		return common.Wrap(err)
	}
	if _, err := cfg.Seed(); err != nil {
		return common.Wrap(err)
	}
	return nil
}

// LoadNode loads the Node configuration from path, on top of the default
// values and below the environment.
func LoadNode(path string) (*Node, error) {
	var cfg Node
	if err := LoadConfig(path, DefaultValues, &cfg); err != nil {
		return nil, common.Wrap(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, common.Wrap(err)
	}
	return &cfg, nil
}
