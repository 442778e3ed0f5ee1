package common

import (
	"encoding/binary"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// CommitPhase is the phase of a sequencer commit-reveal round
type CommitPhase string

const (
	// CommitPhasePending is a round without commitment
	CommitPhasePending CommitPhase = "pending"
	// CommitPhaseCommitted is a round with a commitment but no reveal
	CommitPhaseCommitted CommitPhase = "committed"
	// CommitPhaseRevealed is a round whose pre-image has been revealed
	CommitPhaseRevealed CommitPhase = "revealed"
)

// CommitPhaseInfo is the state of a sequencer round as read from the
// SequencerRandomOracle
type CommitPhaseInfo struct {
	Timestamp  uint64         `json:"timestamp"`
	Phase      CommitPhase    `json:"phase"`
	Commitment ethCommon.Hash `json:"commitment"`
	// Value is the revealed pre-image, only set in CommitPhaseRevealed
	Value ethCommon.Hash `json:"value"`
}

// SequencerConstants are the protocol parameters of the
// SequencerRandomOracle, in seconds
type SequencerConstants struct {
	PrecommitDelay *big.Int `json:"precommitDelay"`
	Timeout        *big.Int `json:"timeout"`
}

var preimageTag = []byte("randomness-relay/sequencer-preimage/v1")

// SequencerPreimage derives the pre-image of the round at timestamp from
// the configured seed.  The pre-image is never stored: any process holding
// the same seed can reveal a commitment made by another one.
func SequencerPreimage(seed []byte, timestamp uint64) ethCommon.Hash {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	return crypto.Keccak256Hash(preimageTag, seed, ts[:])
}

// SequencerCommitment is the commitment of a pre-image as checked by the
// SequencerRandomOracle: keccak256(abi.encodePacked(preimage))
func SequencerCommitment(preimage ethCommon.Hash) ethCommon.Hash {
	return crypto.Keccak256Hash(preimage[:])
}
