package config

// DefaultValues are the configuration values used when not set in the file
// nor in the environment
const DefaultValues = `
[Log]
Level = "info"
Out = ["stdout"]

[EthClient]
CallGasLimit = 0
ReceiptTimeout = "60s"
IntervalReceiptLoop = "500ms"
ConfirmBlocks = 0
Attempts = 4
AttemptsDelay = "200ms"

[EthClient.Keystore]
Path = "/var/randomness-relay/keystore"
LightScrypt = false

[Drand]
Servers = ["https://api.drand.sh", "https://api2.drand.sh", "https://api3.drand.sh"]
ChainHash = "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971"
Period = "0s"
GenesisTime = 0
Timeout = "5s"

[Sequencer]
Interval = "2s"
CommitMargin = "2s"
CommitHorizon = "10s"
RevealDelay = "0s"
PrecommitDelay = "0s"
Timeout = "0s"

[Backfill]
Lookback = "5m"
StartTimestamp = 0
MaxChainReadsPerTick = 64
MaxFetchesPerTick = 8

[Coordinator]
TickInterval = "1s"
MaxTxsPerTick = 8
MaxAttempts = 5

[Cache]
RandomnessSize = 4096

[TxJournal]
Path = "/var/randomness-relay/txjournal"

[PostgreSQL]
Host = ""
Port = 5432
User = "relay"
Name = "relay"
MaxOpenConns = 10

[API]
Address = ""
MaxSQLConnections = 4
SQLConnectionTimeout = "2s"
`
