/*
Package node does the initialization of all the required objects to run the
relay: the ethereum client with the unlocked signer, the drand client, the
transaction journal, the optional history database, the Coordinator and the
API server.
*/
package node

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"randomness-relay/api"
	"randomness-relay/cache"
	"randomness-relay/common"
	"randomness-relay/config"
	"randomness-relay/coordinator"
	dbUtils "randomness-relay/database"
	"randomness-relay/database/historydb"
	"randomness-relay/database/kvdb"
	"randomness-relay/drand"
	"randomness-relay/eth"
	"randomness-relay/log"
	"randomness-relay/synchronizer"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

const (
	initTimeout     = 30 * time.Second
	stopCtxTimeout  = 10 * time.Second
	maxTickAgeTicks = 5
)

// Node is the randomness relay node
type Node struct {
	coord     *coordinator.Coordinator
	sync      *synchronizer.Synchronizer
	journal   *kvdb.KVDB
	sqlDB     *sqlx.DB
	apiServer *http.Server

	cfg *config.Node
	wg  sync.WaitGroup
}

// NewKeyStore opens the keystore of the configuration
func NewKeyStore(cfg *config.Node) *keystore.KeyStore {
	scryptN := keystore.StandardScryptN
	scryptP := keystore.StandardScryptP
	if cfg.EthClient.Keystore.LightScrypt {
		scryptN = keystore.LightScryptN
		scryptP = keystore.LightScryptP
	}
	return keystore.NewKeyStore(cfg.EthClient.Keystore.Path, scryptN, scryptP)
}

// ImportKey imports the hex encoded private key into the keystore, encrypted
// with password.  Importing a key already in the keystore is a no-op.
func ImportKey(ks *keystore.KeyStore, hexKey, password string) (*accounts.Account, error) {
	sk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, common.Wrap(err)
	}
	address := crypto.PubkeyToAddress(sk.PublicKey)
	if ks.HasAddress(address) {
		return &accounts.Account{Address: address}, nil
	}
	account, err := ks.ImportECDSA(sk, password)
	if err != nil && !errors.Is(err, keystore.ErrAccountAlreadyExists) {
		return nil, common.Wrap(err)
	}
	log.Infow("Key imported into the keystore", "addr", address.Hex())
	return &account, nil
}

func sequencerConfig(cfg *config.Node, consts *common.SequencerConstants) (*coordinator.SequencerConfig, error) {
	seed, err := cfg.Seed()
	if err != nil {
		return nil, common.Wrap(err)
	}
	seq := &coordinator.SequencerConfig{
		Seed:           seed,
		Interval:       uint64(cfg.Sequencer.Interval.Seconds()),
		CommitMargin:   uint64(cfg.Sequencer.CommitMargin.Seconds()),
		CommitHorizon:  uint64(cfg.Sequencer.CommitHorizon.Seconds()),
		RevealDelay:    uint64(cfg.Sequencer.RevealDelay.Seconds()),
		PrecommitDelay: uint64(cfg.Sequencer.PrecommitDelay.Seconds()),
		Timeout:        uint64(cfg.Sequencer.Timeout.Seconds()),
	}
	if seq.PrecommitDelay == 0 {
		if !consts.PrecommitDelay.IsUint64() {
			return nil, common.Wrap(fmt.Errorf("invalid PRECOMMIT_DELAY %v", consts.PrecommitDelay))
		}
		seq.PrecommitDelay = consts.PrecommitDelay.Uint64()
	}
	if seq.Timeout == 0 {
		if !consts.Timeout.IsUint64() {
			return nil, common.Wrap(fmt.Errorf("invalid SEQUENCER_TIMEOUT %v", consts.Timeout))
		}
		seq.Timeout = consts.Timeout.Uint64()
	}
	if seq.Timeout <= seq.RevealDelay {
		return nil, common.Wrap(fmt.Errorf(
			"Sequencer.RevealDelay (%ds) must be lower than the timeout (%ds)",
			seq.RevealDelay, seq.Timeout))
	}
	return seq, nil
}

// NewNode creates a Node
func NewNode(cfg *config.Node, version string) (*Node, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	log.Infow("Initializing node", "version", version)

	var sqlDB *sqlx.DB
	var ethClient *ethclient.Client
	var journal *kvdb.KVDB
	ok := false
	// Release what was opened when a later step fails
	defer func() {
		if ok {
			return
		}
		if journal != nil {
			journal.Close()
		}
		if ethClient != nil {
			ethClient.Close()
		}
		if sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				log.Errorw("sqlDB.Close", "err", err)
			}
		}
	}()

	var historyDB *historydb.HistoryDB
	if cfg.PostgreSQL.Host != "" {
		db, err := dbUtils.InitSQLDB(
			cfg.PostgreSQL.Port,
			cfg.PostgreSQL.Host,
			cfg.PostgreSQL.User,
			cfg.PostgreSQL.Password,
			cfg.PostgreSQL.Name,
		)
		if err != nil {
			return nil, common.Wrap(fmt.Errorf("dbUtils.InitSQLDB: %w", err))
		}
		db.SetMaxOpenConns(cfg.PostgreSQL.MaxOpenConns)
		apiConnCon := dbUtils.NewAPIConnectionController(
			cfg.API.MaxSQLConnections,
			cfg.API.SQLConnectionTimeout.Duration,
		)
		sqlDB = db
		historyDB = historydb.NewHistoryDB(db, db, apiConnCon)
	} else {
		log.Info("PostgreSQL.Host not set, the submission history is disabled")
	}

	journal, err := kvdb.NewKVDB(kvdb.Config{Path: cfg.TxJournal.Path})
	if err != nil {
		return nil, common.Wrap(err)
	}

	ethClient, err = ethclient.Dial(cfg.Web3.URL)
	if err != nil {
		return nil, common.Wrap(err)
	}

	keyStore := NewKeyStore(cfg)
	if cfg.EthClient.PrivateKey != "" {
		if _, err := ImportKey(keyStore, cfg.EthClient.PrivateKey,
			cfg.EthClient.Keystore.Password); err != nil {
			return nil, common.Wrap(err)
		}
	}
	signer, err := cfg.Signer()
	if err != nil {
		return nil, common.Wrap(err)
	}
	if !keyStore.HasAddress(signer) {
		return nil, common.Wrap(fmt.Errorf(
			"ethereum keystore doesn't have the key for address %v", signer))
	}
	account := &accounts.Account{Address: signer}
	if err := keyStore.Unlock(*account, cfg.EthClient.Keystore.Password); err != nil {
		return nil, common.Wrap(err)
	}
	log.Infow("Signer ethereum account unlocked in the keystore", "addr", signer.Hex())

	balance, err := ethClient.BalanceAt(ctx, signer, nil)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if balance.Cmp(big.NewInt(0)) == 0 {
		log.Warnw("Signer ethereum account has no balance", "addr", signer.Hex())
	} else {
		log.Infow("Signer ethereum account balance", "addr", signer.Hex(), "balance", balance)
	}

	client, err := eth.NewClient(ethClient, account, keyStore, &eth.ClientConfig{
		Ethereum: eth.EthereumConfig{
			CallGasLimit:        cfg.EthClient.CallGasLimit,
			ReceiptTimeout:      cfg.EthClient.ReceiptTimeout.Duration,
			IntervalReceiptLoop: cfg.EthClient.IntervalReceiptLoop.Duration,
			ConfirmBlocks:       cfg.EthClient.ConfirmBlocks,
			Attempts:            cfg.EthClient.Attempts,
			AttemptsDelay:       cfg.EthClient.AttemptsDelay.Duration,
		},
		DrandOracleAddress:      ethCommon.HexToAddress(cfg.SmartContracts.DrandOracle),
		SequencerOracleAddress:  ethCommon.HexToAddress(cfg.SmartContracts.SequencerRandomOracle),
		RandomnessOracleAddress: ethCommon.HexToAddress(cfg.SmartContracts.RandomnessOracle),
	})
	if err != nil {
		return nil, common.Wrap(err)
	}
	chainID, err := client.EthChainID()
	if err != nil {
		return nil, common.Wrap(err)
	}
	log.Infow("Connected to ethereum node", "chainID", chainID)

	consts, err := client.SequencerOracleConstants(ctx)
	if err != nil {
		return nil, common.Wrap(fmt.Errorf("SequencerOracleConstants: %w", err))
	}
	seqCfg, err := sequencerConfig(cfg, consts)
	if err != nil {
		return nil, common.Wrap(err)
	}
	log.Infow("Sequencer parameters", "interval", seqCfg.Interval,
		"precommitDelay", seqCfg.PrecommitDelay, "timeout", seqCfg.Timeout)

	beacon, err := drand.NewHTTPClient(ctx, &drand.Config{
		Servers:     cfg.Drand.Servers,
		ChainHash:   cfg.Drand.ChainHash,
		Period:      cfg.Drand.Period.Duration,
		GenesisTime: cfg.Drand.GenesisTime,
		Timeout:     cfg.Drand.Timeout.Duration,
	})
	if err != nil {
		return nil, common.Wrap(err)
	}
	info := beacon.Info()
	log.Infow("Drand chain", "hash", cfg.Drand.ChainHash,
		"genesis", info.GenesisTime, "period", info.Period)

	dedup, err := cache.NewCache(cfg.Cache.RandomnessSize)
	if err != nil {
		return nil, common.Wrap(err)
	}
	syncer := synchronizer.NewSynchronizer(client)

	var recorder coordinator.SubmissionRecorder
	if historyDB != nil {
		recorder = historyDB
	}
	coord := coordinator.NewCoordinator(coordinator.Config{
		TickInterval:  cfg.Coordinator.TickInterval.Duration,
		MaxTxsPerTick: cfg.Coordinator.MaxTxsPerTick,
		MaxAttempts:   cfg.Coordinator.MaxAttempts,
		Backfill: coordinator.BackfillConfig{
			Lookback:             uint64(cfg.Backfill.Lookback.Seconds()),
			StartTimestamp:       uint64(cfg.Backfill.StartTimestamp),
			MaxChainReadsPerTick: cfg.Backfill.MaxChainReadsPerTick,
			MaxFetchesPerTick:    cfg.Backfill.MaxFetchesPerTick,
		},
		Sequencer: *seqCfg,
	}, client, beacon, syncer, dedup, journal, recorder)

	var apiServer *http.Server
	if cfg.API.Address != "" {
		gin.SetMode(gin.ReleaseMode)
		server := gin.New()
		server.Use(gin.Recovery())
		var hdb api.HistoryDB
		if historyDB != nil {
			hdb = historyDB
		}
		api.NewAPI(server, api.Config{
			MaxTickAge: maxTickAgeTicks * cfg.Coordinator.TickInterval.Duration,
		}, coord, dedup, client, hdb)
		apiServer = &http.Server{
			Addr:              cfg.API.Address,
			Handler:           server,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	ok = true
	return &Node{
		coord:     coord,
		sync:      syncer,
		journal:   journal,
		sqlDB:     sqlDB,
		apiServer: apiServer,
		cfg:       cfg,
	}, nil
}

// Start the node
func (n *Node) Start() {
	log.Info("Starting node...")
	n.coord.Start()
	if n.apiServer != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			log.Infof("API server listening on %s", n.apiServer.Addr)
			if err := n.apiServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				log.Fatalw("API server", "err", err)
			}
		}()
	}
}

// Stop the node
func (n *Node) Stop() {
	log.Infow("Stopping node...")
	if n.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopCtxTimeout)
		defer cancel()
		if err := n.apiServer.Shutdown(ctx); err != nil {
			log.Errorw("API server shutdown", "err", err)
		}
		n.wg.Wait()
	}
	n.coord.Stop()
	n.journal.Close()
	if n.sqlDB != nil {
		if err := n.sqlDB.Close(); err != nil {
			log.Errorw("sqlDB.Close", "err", err)
		}
	}
}
