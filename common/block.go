package common

import (
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Block represents of an Ethereum block
type Block struct {
	Num        int64          `meddler:"eth_block_num"`
	Timestamp  time.Time      `meddler:"timestamp,utctime"`
	Hash       ethCommon.Hash `meddler:"hash"`
	ParentHash ethCommon.Hash `meddler:"-" json:"-"`
}

// Unix returns the block timestamp in seconds, the time unit used by the
// oracle contracts.
func (b *Block) Unix() uint64 {
	if b.Timestamp.Unix() < 0 {
		return 0
	}
	return uint64(b.Timestamp.Unix())
}
