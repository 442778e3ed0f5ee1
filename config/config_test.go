package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[Web3]
URL = "ws://localhost:8546"

[EthClient]
PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

[EthClient.Keystore]
Path = "/tmp/keystore"
Password = "secret"

[SmartContracts]
DrandOracle = "0x1111111111111111111111111111111111111111"
SequencerRandomOracle = "0x2222222222222222222222222222222222222222"
RandomnessOracle = "0x3333333333333333333333333333333333333333"

[Sequencer]
CommitmentSeed = "000102030405060708090a0b0c0d0e0f"
Interval = "4s"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadNode(t *testing.T) {
	cfg, err := LoadNode(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8546", cfg.Web3.URL)
	assert.Equal(t, 4*time.Second, cfg.Sequencer.Interval.Duration)
	// defaults
	assert.Equal(t, time.Second, cfg.Coordinator.TickInterval.Duration)
	assert.Equal(t, 5, cfg.Coordinator.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Backfill.Lookback.Duration)
	assert.Equal(t, 3, len(cfg.Drand.Servers))

	signer, err := cfg.Signer()
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", signer.Hex())
}

func TestLoadNodeEnvOverride(t *testing.T) {
	t.Setenv("RPC_URL", "http://rpc.example:8545")
	t.Setenv("DRAND_ORACLE_ADDRESS", "0x4444444444444444444444444444444444444444")
	cfg, err := LoadNode(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "http://rpc.example:8545", cfg.Web3.URL)
	assert.Equal(t, "0x4444444444444444444444444444444444444444", cfg.SmartContracts.DrandOracle)
}

func TestLoadNodeMissingValues(t *testing.T) {
	// no contract addresses
	_, err := LoadNode(writeConfig(t, `
[Web3]
URL = "ws://localhost:8546"
[EthClient]
PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
[Sequencer]
CommitmentSeed = "000102030405060708090a0b0c0d0e0f"
`))
	require.Error(t, err)

	// invalid address
	_, err = LoadNode(writeConfig(t, strings.Replace(testConfig,
		"0x1111111111111111111111111111111111111111", "0xnothex", 1)))
	require.Error(t, err)

	// short seed
	_, err = LoadNode(writeConfig(t, `
[Web3]
URL = "ws://localhost:8546"
[EthClient]
PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
[SmartContracts]
DrandOracle = "0x1111111111111111111111111111111111111111"
SequencerRandomOracle = "0x2222222222222222222222222222222222222222"
RandomnessOracle = "0x3333333333333333333333333333333333333333"
[Sequencer]
CommitmentSeed = "0001"
`))
	require.Error(t, err)

	// neither private key nor address
	_, err = LoadNode(writeConfig(t, `
[Web3]
URL = "ws://localhost:8546"
[SmartContracts]
DrandOracle = "0x1111111111111111111111111111111111111111"
SequencerRandomOracle = "0x2222222222222222222222222222222222222222"
RandomnessOracle = "0x3333333333333333333333333333333333333333"
[Sequencer]
CommitmentSeed = "000102030405060708090a0b0c0d0e0f"
`))
	require.Error(t, err)
}

func TestLoadNodeNegativeLimits(t *testing.T) {
	for _, section := range []string{
		"[Coordinator]\nMaxTxsPerTick = -1\n",
		"[Coordinator]\nMaxAttempts = -3\n",
		"[Backfill]\nMaxChainReadsPerTick = -1\n",
		"[Backfill]\nMaxFetchesPerTick = -8\n",
	} {
		_, err := LoadNode(writeConfig(t, testConfig+section))
		assert.Error(t, err, section)
	}
}
