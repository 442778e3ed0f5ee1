/*
Package kvdb implements the journal of the transactions whose outcome is
not known yet.

A transaction is written before it's sent and deleted once it's confirmed
or reverted.  The drand backfill cursor is stored too, so that a restart
resumes the scan where it stopped.  After a restart the journal tells which transactions
may have been mined while the process was down, so that they are checked
against the chain before being sent again.
*/
package kvdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"randomness-relay/common"
	"randomness-relay/log"

	"github.com/cockroachdb/pebble"
)

var (
	// prefixTx is the key prefix of the journaled transactions
	prefixTx = []byte("tx:")
	// keyDrandCursor stores the timestamp of the first drand round not
	// known to be on chain
	keyDrandCursor = []byte("cursor:drand")
	// ErrNotFound is used when a key is not found in the KVDB
	ErrNotFound = errors.New("not found")
)

// Config of the KVDB
type Config struct {
	// Path where the db is stored
	Path string
	// NoSync doesn't sync the writes to disk, meant for tests
	NoSync bool
}

// KVDB represents the Key-Value DB object
type KVDB struct {
	cfg   Config
	db    *pebble.DB
	wopts *pebble.WriteOptions
}

// NewKVDB opens (or creates) the KVDB at cfg.Path
func NewKVDB(cfg Config) (*KVDB, error) {
	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, common.Wrap(err)
	}
	wopts := pebble.Sync
	if cfg.NoSync {
		wopts = pebble.NoSync
	}
	return &KVDB{
		cfg:   cfg,
		db:    db,
		wopts: wopts,
	}, nil
}

func txKey(key common.TxKey) []byte {
	k := make([]byte, 0, len(prefixTx)+len(key.Kind)+1+8)
	k = append(k, prefixTx...)
	k = append(k, []byte(key.Kind)...)
	k = append(k, ':')
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], key.Timestamp)
	return append(k, ts[:]...)
}

// PutTx stores tx, replacing the previous version of the same key
func (k *KVDB) PutTx(tx *common.QueuedTx) error {
	v, err := json.Marshal(tx)
	if err != nil {
		return common.Wrap(err)
	}
	return common.Wrap(k.db.Set(txKey(tx.Key()), v, k.wopts))
}

// DeleteTx removes the tx identified by key.  Deleting a missing key is
// not an error.
func (k *KVDB) DeleteTx(key common.TxKey) error {
	return common.Wrap(k.db.Delete(txKey(key), k.wopts))
}

// GetTx returns the tx identified by key, or ErrNotFound
func (k *KVDB) GetTx(key common.TxKey) (*common.QueuedTx, error) {
	v, closer, err := k.db.Get(txKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, common.Wrap(ErrNotFound)
	} else if err != nil {
		return nil, common.Wrap(err)
	}
	defer closer.Close() //nolint:errcheck
	var tx common.QueuedTx
	if err := json.Unmarshal(v, &tx); err != nil {
		return nil, common.Wrap(err)
	}
	return &tx, nil
}

// Txs returns all the journaled txs sorted by enqueue time
func (k *KVDB) Txs() ([]*common.QueuedTx, error) {
	upper := append([]byte{}, prefixTx...)
	upper[len(upper)-1]++
	iter, err := k.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixTx,
		UpperBound: upper,
	})
	if err != nil {
		return nil, common.Wrap(err)
	}
	defer iter.Close() //nolint:errcheck

	txs := []*common.QueuedTx{}
	for iter.First(); iter.Valid(); iter.Next() {
		var tx common.QueuedTx
		if err := json.Unmarshal(iter.Value(), &tx); err != nil {
			log.Warnw("KVDB: skipping undecodable journal entry",
				"key", fmt.Sprintf("%x", iter.Key()), "err", err)
			continue
		}
		txs = append(txs, &tx)
	}
	if err := iter.Error(); err != nil {
		return nil, common.Wrap(err)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].EnqueuedAt.Before(txs[j].EnqueuedAt)
	})
	return txs, nil
}

// PutDrandCursor stores the drand backfill cursor
func (k *KVDB) PutDrandCursor(timestamp uint64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], timestamp)
	return common.Wrap(k.db.Set(keyDrandCursor, v[:], k.wopts))
}

// DrandCursor returns the stored drand backfill cursor, 0 if there's none
func (k *KVDB) DrandCursor() (uint64, error) {
	v, closer, err := k.db.Get(keyDrandCursor)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, common.Wrap(err)
	}
	defer closer.Close() //nolint:errcheck
	if len(v) != 8 {
		return 0, common.Wrap(fmt.Errorf("invalid drand cursor length %d", len(v)))
	}
	return binary.BigEndian.Uint64(v), nil
}

// Close the DB
func (k *KVDB) Close() {
	if k.db != nil {
		if err := k.db.Close(); err != nil {
			log.Errorw("KVDB.Close", "err", err)
		}
		k.db = nil
	}
}
