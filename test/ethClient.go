package test

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"randomness-relay/common"
	"randomness-relay/eth"
	"randomness-relay/log"

	"github.com/ethereum/go-ethereum"
	ethKeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mitchellh/copystructure"
)

// errReverted mimics the error returned by a node when the gas estimation
// of a transaction fails because the contract reverts
var errReverted = fmt.Errorf("execution reverted: value already set")

// ErrInjected is the error returned by the failures injected with
// CtlFailReads and CtlFailSubmits
var ErrInjected = fmt.Errorf("injected failure: connection reset by peer")

// TxRecord is a transaction included in a block
type TxRecord struct {
	Kind      common.TxKind
	Timestamp uint64
	Status    uint64
}

// OracleBlock stores the state of the oracle smart contracts in an ethereum
// block
type OracleBlock struct {
	Drand       map[uint64]ethCommon.Hash
	Commitments map[uint64]ethCommon.Hash
	Reveals     map[uint64]ethCommon.Hash
	Txs         map[ethCommon.Hash]TxRecord
}

// EthereumBlock stores all the generic data related to the an ethereum block
type EthereumBlock struct {
	BlockNum   int64
	Time       int64
	Hash       ethCommon.Hash
	ParentHash ethCommon.Hash
}

// Block represents a ethereum block
type Block struct {
	Oracles *OracleBlock
	Eth     *EthereumBlock
}

func (b *Block) copy() *Block {
	bCopyRaw, err := copystructure.Copy(b)
	if err != nil {
		panic(err)
	}
	bCopy := bCopyRaw.(*Block)
	return bCopy
}

// Next prepares the successive block.
func (b *Block) Next() *Block {
	blockNext := b.copy()
	blockNext.Oracles.Txs = make(map[ethCommon.Hash]TxRecord)
	blockNext.Eth.BlockNum = b.Eth.BlockNum + 1
	blockNext.Eth.ParentHash = b.Eth.Hash
	return blockNext
}

// ClientSetup is used to initialize the constants of the Smart Contracts and
// other details of the test Client
type ClientSetup struct {
	PrecommitDelay uint64
	Timeout        uint64
	ChainID        *big.Int
	// AutoMine mines the pending block when a receipt is awaited
	AutoMine bool
}

// NewClientSetupExample returns a ClientSetup example with hardcoded realistic
// values.
//
//nolint:gomnd
func NewClientSetupExample() *ClientSetup {
	return &ClientSetup{
		PrecommitDelay: 10,
		Timeout:        60,
		ChainID:        big.NewInt(1337),
		AutoMine:       true,
	}
}

// Timer is an interface to simulate a source of time, useful to advance time
// virtually.
type Timer interface {
	Time() int64
}

// ManualTimer is a Timer that only moves when told to
type ManualTimer struct {
	rw sync.RWMutex
	t  int64
}

// NewManualTimer creates a ManualTimer at t
func NewManualTimer(t int64) *ManualTimer {
	return &ManualTimer{t: t}
}

// Time returns the current time
func (m *ManualTimer) Time() int64 {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return m.t
}

// Set sets the current time
func (m *ManualTimer) Set(t int64) {
	m.rw.Lock()
	m.t = t
	m.rw.Unlock()
}

// Add moves the time forward by d seconds
func (m *ManualTimer) Add(d int64) {
	m.rw.Lock()
	m.t += d
	m.rw.Unlock()
}

// Client implements the eth.ClientInterface interface, allowing to manipulate the
// values for testing, working with deterministic results.
type Client struct {
	rw       *sync.RWMutex
	log      bool
	addr     *ethCommon.Address
	setup    *ClientSetup
	blocks   map[int64]*Block
	blockNum int64 // last mined block num
	timer    Timer
	hasher   hasher
	nonce    uint64

	failReads      int
	failSubmits    int
	dropSubmits    int
	revertOnMining int
	submits        map[common.TxKind]int
}

// NewClient returns a new test Client that implements the eth.ClientInterface
// interface.  Block 0 is mined at the current time of timer.
func NewClient(l bool, timer Timer, addr *ethCommon.Address, setup *ClientSetup) *Client {
	hasher := hasher{}
	blockCurrent := &Block{
		Oracles: &OracleBlock{
			Drand:       make(map[uint64]ethCommon.Hash),
			Commitments: make(map[uint64]ethCommon.Hash),
			Reveals:     make(map[uint64]ethCommon.Hash),
			Txs:         make(map[ethCommon.Hash]TxRecord),
		},
		Eth: &EthereumBlock{
			BlockNum: 0,
			Time:     timer.Time(),
			Hash:     hasher.Next(),
		},
	}
	blocks := map[int64]*Block{
		0: blockCurrent,
		1: blockCurrent.Next(),
	}
	return &Client{
		rw:      &sync.RWMutex{},
		log:     l,
		addr:    addr,
		setup:   setup,
		blocks:  blocks,
		timer:   timer,
		hasher:  hasher,
		submits: make(map[common.TxKind]int),
	}
}

//
// Mock Control
//

// Debugw calls log.Debugw if c.log is true
func (c *Client) Debugw(template string, kv ...interface{}) {
	if c.log {
		log.Debugw(template, kv...)
	}
}

type hasher struct {
	counter uint64
}

// Next returns the next hash
func (h *hasher) Next() ethCommon.Hash {
	var hash ethCommon.Hash
	binary.LittleEndian.PutUint64(hash[:], h.counter)
	h.counter++
	return hash
}

func (c *Client) nextBlock() *Block {
	return c.blocks[c.blockNum+1]
}

func (c *Client) currentBlock() *Block {
	return c.blocks[c.blockNum]
}

// CtlMineBlock moves one block forward
func (c *Client) CtlMineBlock() {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.mineBlock()
}

func (c *Client) mineBlock() {
	blockCurrent := c.nextBlock()
	c.blockNum++
	blockCurrent.Eth.Time = c.timer.Time()
	blockCurrent.Eth.Hash = c.hasher.Next()
	c.blocks[c.blockNum+1] = blockCurrent.Next()
	c.Debugw("TestClient mined block", "blockNum", c.blockNum,
		"time", blockCurrent.Eth.Time)
}

// CtlLastBlock returns the last block without checks
func (c *Client) CtlLastBlock() *common.Block {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.commonBlock(c.blockNum)
}

func (c *Client) commonBlock(blockNum int64) *common.Block {
	block := c.blocks[blockNum]
	return &common.Block{
		Num:        blockNum,
		Timestamp:  time.Unix(block.Eth.Time, 0),
		Hash:       block.Eth.Hash,
		ParentHash: block.Eth.ParentHash,
	}
}

// CtlSetDrand stores a drand value in the pending block, as another relay
// would do
func (c *Client) CtlSetDrand(timestamp uint64, value ethCommon.Hash) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.nextBlock().Oracles.Drand[timestamp] = value
}

// CtlPostCommitment stores a commitment in the pending block
func (c *Client) CtlPostCommitment(timestamp uint64, commitment ethCommon.Hash) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.nextBlock().Oracles.Commitments[timestamp] = commitment
}

// CtlReveal stores a revealed value in the pending block
func (c *Client) CtlReveal(timestamp uint64, value ethCommon.Hash) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.nextBlock().Oracles.Reveals[timestamp] = value
}

// CtlFailReads makes the next n reads of the oracles fail
func (c *Client) CtlFailReads(n int) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.failReads = n
}

// CtlFailSubmits makes the next n transactions fail before being sent
func (c *Client) CtlFailSubmits(n int) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.failSubmits = n
}

// CtlDropSubmits makes the next n transactions be accepted by the node but
// never mined
func (c *Client) CtlDropSubmits(n int) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.dropSubmits = n
}

// CtlRevertOnMining makes the next n transactions be mined with a failed
// status, without changing the state
func (c *Client) CtlRevertOnMining(n int) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.revertOnMining = n
}

// CtlSubmits returns the number of transactions sent per kind, including
// the failed ones
func (c *Client) CtlSubmits(kind common.TxKind) int {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.submits[kind]
}

// CtlDrand returns the drand values of the last mined block
func (c *Client) CtlDrand() map[uint64]ethCommon.Hash {
	c.rw.RLock()
	defer c.rw.RUnlock()
	res := make(map[uint64]ethCommon.Hash)
	for k, v := range c.currentBlock().Oracles.Drand {
		res[k] = v
	}
	return res
}

// CtlCommitPhase returns the commit phase of timestamp in the last mined
// block without failures
func (c *Client) CtlCommitPhase(timestamp uint64) *common.CommitPhaseInfo {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.commitPhase(c.currentBlock(), timestamp)
}

func (c *Client) readErr() error {
	if c.failReads > 0 {
		c.failReads--
		return common.Wrap(ErrInjected)
	}
	return nil
}

//
// Ethereum
//

// EthChainID returns the ChainID of the ethereum network
func (c *Client) EthChainID() (*big.Int, error) {
	return c.setup.ChainID, nil
}

// EthPendingNonceAt returns the account nonce of the given account in the pending
// state. This is the nonce that should be used for the next transaction.
func (c *Client) EthPendingNonceAt(ctx context.Context, account ethCommon.Address) (uint64, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.nonce, nil
}

// EthKeyStore returns the keystore in the Client
func (c *Client) EthKeyStore() *ethKeystore.KeyStore {
	return nil
}

// EthLastBlock returns the last blockNum
func (c *Client) EthLastBlock(ctx context.Context) (int64, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.blockNum, nil
}

// EthBlockByNumber returns the *common.Block for the given block number in a
// deterministic way.  If number == -1, the latests known block is returned.
func (c *Client) EthBlockByNumber(ctx context.Context, blockNum int64) (*common.Block, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()

	if blockNum > c.blockNum {
		return nil, ethereum.NotFound
	}
	if blockNum == -1 {
		blockNum = c.blockNum
	}
	return c.commonBlock(blockNum), nil
}

// EthAddress returns the ethereum address of the account loaded into the Client
func (c *Client) EthAddress() (*ethCommon.Address, error) {
	if c.addr == nil {
		return nil, common.Wrap(eth.ErrAccountNil)
	}
	return c.addr, nil
}

// EthTransactionReceipt returns the transaction receipt of the given txHash
func (c *Client) EthTransactionReceipt(ctx context.Context,
	txHash ethCommon.Hash) (*types.Receipt, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.receipt(txHash)
}

func (c *Client) receipt(txHash ethCommon.Hash) (*types.Receipt, error) {
	for i := int64(0); i <= c.blockNum; i++ {
		b := c.blocks[i]
		if record, ok := b.Oracles.Txs[txHash]; ok {
			return &types.Receipt{
				TxHash:      txHash,
				Status:      record.Status,
				BlockHash:   b.Eth.Hash,
				BlockNumber: big.NewInt(b.Eth.BlockNum),
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

// EthWaitReceipt returns the receipt of txHash.  With AutoMine the pending
// block is mined first.  Dropped transactions return eth.ErrReceiptTimeout.
func (c *Client) EthWaitReceipt(ctx context.Context,
	txHash ethCommon.Hash) (*types.Receipt, error) {
	c.rw.Lock()
	defer c.rw.Unlock()
	if _, ok := c.nextBlock().Oracles.Txs[txHash]; ok && c.setup.AutoMine {
		c.mineBlock()
	}
	receipt, err := c.receipt(txHash)
	if err != nil {
		return nil, common.Wrap(eth.ErrReceiptTimeout)
	}
	return receipt, nil
}

// submit applies a write to the pending block.  alreadySet tells if the
// contract would revert: against the last mined block it's a revert at gas
// estimation, against the pending block (a concurrent tx mined first) the
// tx is mined with a failed receipt.
func (c *Client) submit(kind common.TxKind, timestamp uint64, value ethCommon.Hash,
	alreadySet func(b *OracleBlock) bool, apply func(b *OracleBlock)) (*types.Transaction, error) {
	c.rw.Lock()
	defer c.rw.Unlock()

	c.submits[kind]++
	if c.failSubmits > 0 {
		c.failSubmits--
		return nil, common.Wrap(ErrInjected)
	}
	if alreadySet(c.currentBlock().Oracles) {
		return nil, common.Wrap(errReverted)
	}
	next := c.nextBlock()
	data := make([]byte, 0, 64)
	data = append(data, []byte(kind)...)
	data = binary.BigEndian.AppendUint64(data, timestamp)
	data = append(data, value[:]...)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    c.nonce,
		GasPrice: big.NewInt(1),
		Gas:      100000,
		Data:     data,
	})
	c.nonce++
	if c.dropSubmits > 0 {
		c.dropSubmits--
		c.Debugw("TestClient dropped tx", "kind", kind, "timestamp", timestamp)
		return tx, nil
	}
	record := TxRecord{Kind: kind, Timestamp: timestamp, Status: types.ReceiptStatusSuccessful}
	if c.revertOnMining > 0 {
		c.revertOnMining--
		record.Status = types.ReceiptStatusFailed
	} else if alreadySet(next.Oracles) {
		record.Status = types.ReceiptStatusFailed
	} else {
		apply(next.Oracles)
	}
	next.Oracles.Txs[tx.Hash()] = record
	c.Debugw("TestClient tx", "kind", kind, "timestamp", timestamp, "tx", tx.Hash().Hex())
	return tx, nil
}

//
// DrandOracle
//

// DrandOracleAddress returns the address of the DrandOracle
func (c *Client) DrandOracleAddress() *ethCommon.Address {
	addr := ethCommon.HexToAddress("0x1111111111111111111111111111111111111111")
	return &addr
}

// DrandOracleDrand returns the value stored for timestamp in the last mined
// block
func (c *Client) DrandOracleDrand(ctx context.Context, timestamp uint64) (*ethCommon.Hash, error) {
	c.rw.Lock()
	defer c.rw.Unlock()
	if err := c.readErr(); err != nil {
		return nil, err
	}
	if v, ok := c.currentBlock().Oracles.Drand[timestamp]; ok {
		return &v, nil
	}
	return nil, nil
}

// DrandOracleSetDrand stores value for timestamp
func (c *Client) DrandOracleSetDrand(ctx context.Context, timestamp uint64,
	value ethCommon.Hash) (*types.Transaction, error) {
	return c.submit(common.TxKindDrand, timestamp, value,
		func(b *OracleBlock) bool {
			_, ok := b.Drand[timestamp]
			return ok
		},
		func(b *OracleBlock) { b.Drand[timestamp] = value },
	)
}

//
// SequencerRandomOracle
//

// SequencerOracleAddress returns the address of the SequencerRandomOracle
func (c *Client) SequencerOracleAddress() *ethCommon.Address {
	addr := ethCommon.HexToAddress("0x2222222222222222222222222222222222222222")
	return &addr
}

// SequencerOracleConstants returns the constants of the setup
func (c *Client) SequencerOracleConstants(ctx context.Context) (*common.SequencerConstants, error) {
	return &common.SequencerConstants{
		PrecommitDelay: new(big.Int).SetUint64(c.setup.PrecommitDelay),
		Timeout:        new(big.Int).SetUint64(c.setup.Timeout),
	}, nil
}

func (c *Client) commitPhase(b *Block, timestamp uint64) *common.CommitPhaseInfo {
	info := &common.CommitPhaseInfo{Timestamp: timestamp, Phase: common.CommitPhasePending}
	if commitment, ok := b.Oracles.Commitments[timestamp]; ok {
		info.Phase = common.CommitPhaseCommitted
		info.Commitment = commitment
	}
	if value, ok := b.Oracles.Reveals[timestamp]; ok {
		info.Phase = common.CommitPhaseRevealed
		info.Value = value
	}
	return info
}

// SequencerOracleCommitPhase returns the commit phase of timestamp in the
// last mined block
func (c *Client) SequencerOracleCommitPhase(ctx context.Context,
	timestamp uint64) (*common.CommitPhaseInfo, error) {
	c.rw.Lock()
	defer c.rw.Unlock()
	if err := c.readErr(); err != nil {
		return nil, err
	}
	return c.commitPhase(c.currentBlock(), timestamp), nil
}

// SequencerOraclePostCommitment stores a commitment.  Like the contract, it
// reverts when the commitment is too late or already posted.
func (c *Client) SequencerOraclePostCommitment(ctx context.Context, timestamp uint64,
	commitment ethCommon.Hash) (*types.Transaction, error) {
	return c.submit(common.TxKindCommitment, timestamp, commitment,
		func(b *OracleBlock) bool {
			_, ok := b.Commitments[timestamp]
			return ok || uint64(c.timer.Time())+c.setup.PrecommitDelay > timestamp
		},
		func(b *OracleBlock) { b.Commitments[timestamp] = commitment },
	)
}

// SequencerOracleRevealValue reveals the pre-image of a commitment.  Like the
// contract, it reverts when the value doesn't match the commitment, when
// it's already revealed or after the timeout.
func (c *Client) SequencerOracleRevealValue(ctx context.Context, timestamp uint64,
	value ethCommon.Hash) (*types.Transaction, error) {
	return c.submit(common.TxKindReveal, timestamp, value,
		func(b *OracleBlock) bool {
			commitment, ok := b.Commitments[timestamp]
			if !ok || commitment != crypto.Keccak256Hash(value[:]) {
				return true
			}
			if _, ok := b.Reveals[timestamp]; ok {
				return true
			}
			return uint64(c.timer.Time()) >= timestamp+c.setup.Timeout
		},
		func(b *OracleBlock) { b.Reveals[timestamp] = value },
	)
}

//
// RandomnessOracle
//

// RandomnessOracleAddress returns the address of the RandomnessOracle
func (c *Client) RandomnessOracleAddress() *ethCommon.Address {
	addr := ethCommon.HexToAddress("0x3333333333333333333333333333333333333333")
	return &addr
}

// RandomnessOracleRandomness returns keccak256(drand || sequencer) when
// both values of timestamp are stored
func (c *Client) RandomnessOracleRandomness(ctx context.Context,
	timestamp uint64) (*ethCommon.Hash, error) {
	c.rw.Lock()
	defer c.rw.Unlock()
	if err := c.readErr(); err != nil {
		return nil, err
	}
	b := c.currentBlock()
	drand, ok := b.Oracles.Drand[timestamp]
	if !ok {
		return nil, nil
	}
	sequencer, ok := b.Oracles.Reveals[timestamp]
	if !ok {
		return nil, nil
	}
	v := crypto.Keccak256Hash(drand[:], sequencer[:])
	return &v, nil
}
