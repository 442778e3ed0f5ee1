package node

import (
	"math/big"
	"os"
	"testing"
	"time"

	"randomness-relay/common"
	"randomness-relay/config"
	"randomness-relay/database/kvdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestImportKey(t *testing.T) {
	dir, err := os.MkdirTemp("", "keystore")
	require.NoError(t, err)
	defer os.RemoveAll(dir) //nolint:errcheck

	var cfg config.Node
	cfg.EthClient.Keystore.Path = dir
	cfg.EthClient.Keystore.LightScrypt = true
	ks := NewKeyStore(&cfg)

	account, err := ImportKey(ks, testPrivateKey, "secret")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", account.Address.Hex())
	assert.True(t, ks.HasAddress(account.Address))

	again, err := ImportKey(ks, testPrivateKey, "secret")
	require.NoError(t, err)
	assert.Equal(t, account.Address, again.Address)
	assert.Len(t, ks.Accounts(), 1)

	require.NoError(t, ks.Unlock(*account, "secret"))

	_, err = ImportKey(ks, "0xzz", "secret")
	assert.Error(t, err)
}

func TestSequencerConfig(t *testing.T) {
	var cfg config.Node
	cfg.Sequencer.CommitmentSeed = "000102030405060708090a0b0c0d0e0f"
	cfg.Sequencer.Interval = config.Duration{Duration: 2 * time.Second}
	cfg.Sequencer.CommitHorizon = config.Duration{Duration: 10 * time.Second}
	consts := &common.SequencerConstants{
		PrecommitDelay: big.NewInt(10),
		Timeout:        big.NewInt(60),
	}

	seq, err := sequencerConfig(&cfg, consts)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq.Interval)
	assert.Equal(t, uint64(10), seq.CommitHorizon)
	assert.Equal(t, uint64(10), seq.PrecommitDelay)
	assert.Equal(t, uint64(60), seq.Timeout)
	assert.Len(t, seq.Seed, 16)

	// Overrides
	cfg.Sequencer.PrecommitDelay = config.Duration{Duration: 20 * time.Second}
	cfg.Sequencer.Timeout = config.Duration{Duration: 120 * time.Second}
	seq, err = sequencerConfig(&cfg, consts)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), seq.PrecommitDelay)
	assert.Equal(t, uint64(120), seq.Timeout)

	cfg.Sequencer.RevealDelay = config.Duration{Duration: 120 * time.Second}
	_, err = sequencerConfig(&cfg, consts)
	assert.Error(t, err)
}

func TestNewNodeReleasesOnError(t *testing.T) {
	var cfg config.Node
	cfg.TxJournal.Path = t.TempDir()
	cfg.EthClient.Keystore.Path = t.TempDir()
	cfg.EthClient.Keystore.LightScrypt = true
	cfg.EthClient.Keystore.Password = "secret"
	cfg.EthClient.PrivateKey = testPrivateKey
	// Nothing listens there, the balance check fails
	cfg.Web3.URL = "http://127.0.0.1:1"

	_, err := NewNode(&cfg, "test")
	require.Error(t, err)

	// The journal was closed, so it can be opened again
	journal, err := kvdb.NewKVDB(kvdb.Config{Path: cfg.TxJournal.Path, NoSync: true})
	require.NoError(t, err)
	journal.Close()
}
