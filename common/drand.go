package common

import (
	"encoding/hex"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// DrandRound is a round published by the drand beacon.  Randomness and
// Signature are hex encoded as served by the beacon HTTP API.
type DrandRound struct {
	Round             uint64 `json:"round"`
	Randomness        string `json:"randomness"`
	Signature         string `json:"signature"`
	PreviousSignature string `json:"previous_signature,omitempty"`
}

// Value decodes the round randomness into the 32 byte word stored by the
// DrandOracle contract.
func (r *DrandRound) Value() (ethCommon.Hash, error) {
	return HexToHash32(r.Randomness)
}

// HexToHash32 decodes a hex string (with or without 0x prefix) that must
// contain exactly 32 bytes.
func HexToHash32(s string) (ethCommon.Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return ethCommon.Hash{}, Wrap(ErrInvalidHex)
	}
	if len(b) != ethCommon.HashLength {
		return ethCommon.Hash{}, Wrap(ErrInvalidHex)
	}
	return ethCommon.BytesToHash(b), nil
}
