package test

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"randomness-relay/common"
	"randomness-relay/drand"

	"github.com/ethereum/go-ethereum/crypto"
)

// Beacon implements the drand.Client interface with deterministic rounds.
// A round is available once the timer reaches its time.
type Beacon struct {
	rw        sync.Mutex
	info      drand.ChainInfo
	timer     Timer
	failNext  int
	withheld  map[uint64]struct{}
	requested map[uint64]int
}

// NewBeacon creates a Beacon with the given schedule
func NewBeacon(timer Timer, genesisTime int64, period uint64) *Beacon {
	return &Beacon{
		info: drand.ChainInfo{
			Period:      period,
			GenesisTime: genesisTime,
			Hash:        "test",
		},
		timer:     timer,
		withheld:  make(map[uint64]struct{}),
		requested: make(map[uint64]int),
	}
}

// BeaconRandomness returns the deterministic randomness of round
func BeaconRandomness(round uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], round)
	return crypto.Keccak256([]byte("beacon"), b[:])
}

// Info returns the schedule of the beacon
func (b *Beacon) Info() *drand.ChainInfo {
	info := b.info
	return &info
}

// Round returns the round if it's available
func (b *Beacon) Round(ctx context.Context, round uint64) (*common.DrandRound, error) {
	b.rw.Lock()
	defer b.rw.Unlock()
	b.requested[round]++
	if b.failNext > 0 {
		b.failNext--
		return nil, common.Wrap(ErrInjected)
	}
	if round == 0 || b.info.TimeOfRound(round) > uint64(b.timer.Time()) {
		return nil, common.Wrap(drand.ErrRoundNotAvailable)
	}
	if _, ok := b.withheld[round]; ok {
		return nil, common.Wrap(drand.ErrRoundNotAvailable)
	}
	return &common.DrandRound{
		Round:      round,
		Randomness: hex.EncodeToString(BeaconRandomness(round)),
		Signature:  hex.EncodeToString(crypto.Keccak256(BeaconRandomness(round))),
	}, nil
}

// CtlFailNext makes the next n requests fail
func (b *Beacon) CtlFailNext(n int) {
	b.rw.Lock()
	defer b.rw.Unlock()
	b.failNext = n
}

// CtlWithhold makes round unavailable until CtlRelease is called, like a
// server lagging behind the schedule
func (b *Beacon) CtlWithhold(round uint64) {
	b.rw.Lock()
	defer b.rw.Unlock()
	b.withheld[round] = struct{}{}
}

// CtlRelease makes a withheld round available
func (b *Beacon) CtlRelease(round uint64) {
	b.rw.Lock()
	defer b.rw.Unlock()
	delete(b.withheld, round)
}

// CtlRequested returns how many times round was requested
func (b *Beacon) CtlRequested(round uint64) int {
	b.rw.Lock()
	defer b.rw.Unlock()
	return b.requested[round]
}
