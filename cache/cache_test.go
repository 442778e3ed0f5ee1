package cache

import (
	"testing"

	"randomness-relay/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheProcessed(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	assert.False(t, c.IsProcessed(common.TxKindDrand, 100))
	c.MarkProcessed(common.TxKindDrand, 100)
	c.MarkProcessed(common.TxKindDrand, 100)
	c.MarkProcessed(common.TxKindDrand, 97)
	assert.True(t, c.IsProcessed(common.TxKindDrand, 100))
	// kinds are independent
	assert.False(t, c.IsProcessed(common.TxKindCommitment, 100))
	assert.Equal(t, 2, c.Len(common.TxKindDrand))
	assert.Equal(t, []uint64{97, 100}, c.Processed(common.TxKindDrand))

	c.MarkProcessed(common.TxKindReveal, 50)
	assert.Equal(t, 1, c.Prune(common.TxKindDrand, 100))
	assert.Equal(t, []uint64{100}, c.Processed(common.TxKindDrand))
	assert.True(t, c.IsProcessed(common.TxKindReveal, 50))
}

func TestCacheRandomnessIsBounded(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	c.SetRandomness(2, ethCommon.HexToHash("0x02"))
	c.SetRandomness(4, ethCommon.HexToHash("0x04"))
	c.SetRandomness(6, ethCommon.HexToHash("0x06"))
	assert.Equal(t, 2, c.RandomnessLen())

	_, ok := c.Randomness(2)
	assert.False(t, ok)
	v, ok := c.Randomness(6)
	require.True(t, ok)
	assert.Equal(t, ethCommon.HexToHash("0x06"), v)

	_, err = NewCache(0)
	assert.Error(t, err)
}
