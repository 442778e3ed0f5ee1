package historydb

import (
	"fmt"
	"strings"

	"randomness-relay/common"
	"randomness-relay/database"

	"github.com/jmoiron/sqlx"
	"github.com/russross/meddler"
)

// HistoryDB persist the outcome of every transaction sent by the relay
type HistoryDB struct {
	dbRead     *sqlx.DB
	dbWrite    *sqlx.DB
	apiConnCon *database.APIConnectionController
}

// NewHistoryDB initialize the DB
func NewHistoryDB(dbRead, dbWrite *sqlx.DB, apiConnCon *database.APIConnectionController) *HistoryDB {
	return &HistoryDB{
		dbRead:     dbRead,
		dbWrite:    dbWrite,
		apiConnCon: apiConnCon,
	}
}

// DB returns a pointer to the HistoryDB.db. This method should be used only for
// internal testing purposes.
func (hdb *HistoryDB) DB() *sqlx.DB {
	return hdb.dbWrite
}

// AddSubmission inserts a submission outcome into the DB
func (hdb *HistoryDB) AddSubmission(submission *common.Submission) error {
	return hdb.addSubmission(hdb.dbWrite, submission)
}
func (hdb *HistoryDB) addSubmission(d meddler.DB, submission *common.Submission) error {
	return common.Wrap(meddler.Insert(d, "submission", submission))
}

// GetSubmissions returns the submissions of a (kind, timestamp) in insertion order
func (hdb *HistoryDB) GetSubmissions(kind common.TxKind, timestamp uint64) ([]common.Submission, error) {
	var submissions []*common.Submission
	err := meddler.QueryAll(
		hdb.dbRead, &submissions,
		"SELECT * FROM submission WHERE kind = $1 AND timestamp = $2 ORDER BY item_id;",
		kind, int64(timestamp),
	)
	return database.SlicePtrsToSlice(submissions).([]common.Submission), common.Wrap(err)
}

// SubmissionsFilter are the optional filters of GetSubmissionsAPI
type SubmissionsFilter struct {
	Kind  *common.TxKind
	State *common.TxState
	// FromItem returns submissions with ItemID lower than FromItem when not 0
	FromItem int64
	Limit    uint
}

// GetSubmissionsAPI returns the latest submissions matching filter, newest
// first.  It's meant to be used by the API: the number of concurrent
// queries is limited.
func (hdb *HistoryDB) GetSubmissionsAPI(filter *SubmissionsFilter) ([]common.Submission, error) {
	if hdb.apiConnCon != nil {
		cancel, err := hdb.apiConnCon.Acquire()
		defer cancel()
		if err != nil {
			return nil, common.Wrap(err)
		}
		defer hdb.apiConnCon.Release()
	}

	var query strings.Builder
	query.WriteString("SELECT * FROM submission")
	var args []interface{}
	nextIsAnd := false
	addCond := func(cond string, arg interface{}) {
		if nextIsAnd {
			query.WriteString(" AND ")
		} else {
			query.WriteString(" WHERE ")
		}
		args = append(args, arg)
		query.WriteString(fmt.Sprintf(cond, len(args)))
		nextIsAnd = true
	}
	if filter.Kind != nil {
		addCond("kind = $%d", *filter.Kind)
	}
	if filter.State != nil {
		addCond("state = $%d", *filter.State)
	}
	if filter.FromItem != 0 {
		addCond("item_id < $%d", filter.FromItem)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	query.WriteString(fmt.Sprintf(" ORDER BY item_id DESC LIMIT %d;", limit))

	var submissions []*common.Submission
	if err := meddler.QueryAll(hdb.dbRead, &submissions, query.String(), args...); err != nil {
		return nil, common.Wrap(err)
	}
	return database.SlicePtrsToSlice(submissions).([]common.Submission), nil
}

// CountByState returns the number of submissions per state
func (hdb *HistoryDB) CountByState() (map[common.TxState]int, error) {
	rows, err := hdb.dbRead.Query("SELECT state, COUNT(*) FROM submission GROUP BY state;")
	if err != nil {
		return nil, common.Wrap(err)
	}
	defer rows.Close() //nolint:errcheck
	counts := make(map[common.TxState]int)
	for rows.Next() {
		var state common.TxState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, common.Wrap(err)
		}
		counts[state] = n
	}
	return counts, common.Wrap(rows.Err())
}
