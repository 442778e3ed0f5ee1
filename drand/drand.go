/*
Package drand implements the client of the drand randomness beacon HTTP API.

A drand chain produces a round every Period seconds since GenesisTime.  The
relay identifies a round by its time, which is the key used to store the
round value in the DrandOracle contract:

	time(round) = GenesisTime + (round - 1) * Period

Rounds whose time is in the future, or that the server doesn't serve yet,
are reported with ErrRoundNotAvailable.  Any other failure is a fetch error
that the caller retries later.
*/
package drand

import (
	"context"
	"errors"

	"randomness-relay/common"
)

// ErrRoundNotAvailable is used when a round has not been produced yet
var ErrRoundNotAvailable = errors.New("drand round not available yet")

// ErrRoundMismatch is used when the beacon answers with a round different
// from the requested one
var ErrRoundMismatch = errors.New("drand round mismatch")

// ChainInfo is the information of a drand chain as served by /{hash}/info
type ChainInfo struct {
	PublicKey   string `json:"public_key"`
	Period      uint64 `json:"period"`
	GenesisTime int64  `json:"genesis_time"`
	Hash        string `json:"hash"`
	GroupHash   string `json:"groupHash"`
}

// TimeOfRound returns the unix time at which round is produced
func (i *ChainInfo) TimeOfRound(round uint64) uint64 {
	if round == 0 {
		return uint64(i.GenesisTime)
	}
	return uint64(i.GenesisTime) + (round-1)*i.Period
}

// RoundAt returns the latest round produced at ts, 0 if ts is before the
// genesis
func (i *ChainInfo) RoundAt(ts uint64) uint64 {
	if i.Period == 0 || ts < uint64(i.GenesisTime) {
		return 0
	}
	return (ts-uint64(i.GenesisTime))/i.Period + 1
}

// Client is the interface to a drand beacon
type Client interface {
	// Info returns the schedule of the beacon
	Info() *ChainInfo
	// Round fetches a round.  It doesn't have side effects.
	Round(ctx context.Context, round uint64) (*common.DrandRound, error)
}

// IsErrRoundNotAvailable returns true if the error or wrapped error is
// ErrRoundNotAvailable
func IsErrRoundNotAvailable(err error) bool {
	return common.Unwrap(err) == ErrRoundNotAvailable
}
