package coordinator

import (
	"sync"

	"randomness-relay/common"
)

// Queue of QueuedTxs.  Txs are processed in FIFO order and there's at most
// one tx per (kind, timestamp) between the pending and the failed lists.
// Only the coordinator loop mutates the Queue, but it can be read
// concurrently.
type Queue struct {
	rw     sync.RWMutex
	list   []*common.QueuedTx
	failed []*common.QueuedTx
	index  map[common.TxKey]*common.QueuedTx
}

// NewQueue returns a new queue
func NewQueue() *Queue {
	return &Queue{
		list:   make([]*common.QueuedTx, 0),
		failed: make([]*common.QueuedTx, 0),
		index:  make(map[common.TxKey]*common.QueuedTx),
	}
}

// Push adds tx at the end of the queue.  It returns false if a tx with the
// same key is already pending or failed.
func (q *Queue) Push(tx *common.QueuedTx) bool {
	q.rw.Lock()
	defer q.rw.Unlock()
	if _, ok := q.index[tx.Key()]; ok {
		return false
	}
	q.list = append(q.list, tx)
	q.index[tx.Key()] = tx
	return true
}

// Peek returns the first pending tx without removing it
func (q *Queue) Peek() (*common.QueuedTx, error) {
	q.rw.RLock()
	defer q.rw.RUnlock()
	if len(q.list) == 0 {
		return nil, common.Wrap(common.ErrQueueEmpty)
	}
	return q.list[0], nil
}

// Pop removes and returns the first pending tx
func (q *Queue) Pop() (*common.QueuedTx, error) {
	q.rw.Lock()
	defer q.rw.Unlock()
	if len(q.list) == 0 {
		return nil, common.Wrap(common.ErrQueueEmpty)
	}
	tx := q.list[0]
	q.list[0] = nil
	q.list = q.list[1:]
	delete(q.index, tx.Key())
	return tx, nil
}

// Contains returns true if a tx with key is pending or failed
func (q *Queue) Contains(key common.TxKey) bool {
	q.rw.RLock()
	defer q.rw.RUnlock()
	_, ok := q.index[key]
	return ok
}

// Len returns the number of pending txs
func (q *Queue) Len() int {
	q.rw.RLock()
	defer q.rw.RUnlock()
	return len(q.list)
}

// FailedLen returns the number of failed txs
func (q *Queue) FailedLen() int {
	q.rw.RLock()
	defer q.rw.RUnlock()
	return len(q.failed)
}

// MarkFailed moves tx to the failed list, removing it from the pending list
// if it's there
func (q *Queue) MarkFailed(tx *common.QueuedTx) {
	q.rw.Lock()
	defer q.rw.Unlock()
	if prev, ok := q.index[tx.Key()]; ok {
		for i, pending := range q.list {
			if pending == prev {
				q.list = append(q.list[:i], q.list[i+1:]...)
				break
			}
		}
		for _, failed := range q.failed {
			if failed == prev {
				return
			}
		}
	}
	tx.State = common.TxStatePersistentFailure
	q.failed = append(q.failed, tx)
	q.index[tx.Key()] = tx
}

// RetryFailed moves all the failed txs back to the end of the pending list
// with their attempts reset, and returns them
func (q *Queue) RetryFailed() []*common.QueuedTx {
	q.rw.Lock()
	defer q.rw.Unlock()
	retried := q.failed
	for _, tx := range retried {
		tx.State = common.TxStateEnqueued
		tx.Attempts = 0
		// The last attempt may have been mined after all
		tx.Recovered = true
		q.list = append(q.list, tx)
	}
	q.failed = make([]*common.QueuedTx, 0)
	return retried
}

// Snapshot returns a copy of the pending and the failed txs
func (q *Queue) Snapshot() (pending, failed []common.QueuedTx) {
	q.rw.RLock()
	defer q.rw.RUnlock()
	pending = make([]common.QueuedTx, len(q.list))
	for i, tx := range q.list {
		pending[i] = *tx
	}
	failed = make([]common.QueuedTx, len(q.failed))
	for i, tx := range q.failed {
		failed[i] = *tx
	}
	return pending, failed
}

// Update runs fn with the queue locked.  It's used to modify a tx in the
// queue while it may be read by Snapshot.
func (q *Queue) Update(fn func()) {
	q.rw.Lock()
	defer q.rw.Unlock()
	fn()
}
