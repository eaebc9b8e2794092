package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockAbstractsPattern   = regexp.MustCompile("(?s)SELECT .*FROM `abstracts` WHERE id IN \\(.*\\).*FOR UPDATE")
	updateAbstractsPattern = regexp.MustCompile("(?s)UPDATE `abstracts` SET `reviewer_comments`=\\?,`status`=\\?,`updated_at`=\\? WHERE id IN \\(")
	insertHistoryPattern   = regexp.MustCompile("(?s)INSERT INTO `abstract_status_history`")
	lockedColumns          = []string{"id", "user_id", "title", "presenter_name", "status", "abstract_number"}
)

func reviewChange(status string) StatusChange {
	comment := "Well structured"
	return StatusChange{
		Status:    status,
		Comments:  &comment,
		ChangedBy: "admin@example.org",
		At:        time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestGormStatusStoreUpdateManyCommitsMatchedRows(t *testing.T) {
	store, script := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: lockAbstractsPattern,
			args:    []driver.Value{int64(10), int64(11), int64(12)},
			columns: lockedColumns,
			rows: [][]driver.Value{
				{int64(10), int64(7), "Neuro-oncology outcomes", "Dr. Lee", "pending", "ABS-010"},
				{int64(12), nil, "Stem cell mobilisation", "Dr. Tan", "approved", nil},
			},
		},
		&sqlStep{kind: stepExec, pattern: updateAbstractsPattern, result: driver.RowsAffected(2)},
		&sqlStep{kind: stepExec, pattern: insertHistoryPattern, result: sqlResult{lastInsertID: 100, rowsAffected: 2}},
	)

	rows, err := store.UpdateMany(context.Background(), []int64{10, 11, 12}, reviewChange("approved"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(10), rows[0].ID)
	assert.Equal(t, "pending", rows[0].OldStatus)
	assert.Equal(t, "approved", rows[0].NewStatus)
	assert.Equal(t, "ABS-010", rows[0].SubmissionNumber)
	assert.Equal(t, "Dr. Lee", rows[0].PresenterName)

	assert.Equal(t, int64(12), rows[1].ID)
	assert.Equal(t, "approved", rows[1].OldStatus)
	assert.Equal(t, "12", rows[1].SubmissionNumber)

	begins, commits, rollbacks := script.txCounts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
	assert.Zero(t, script.remaining())
}

func TestGormStatusStoreUpdateManyRollsBackOnUpdateFailure(t *testing.T) {
	store, script := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: lockAbstractsPattern,
			columns: lockedColumns,
			rows: [][]driver.Value{
				{int64(1), nil, "A", "Author A", "pending", nil},
				{int64(2), nil, "B", "Author B", "pending", nil},
			},
		},
		&sqlStep{kind: stepExec, pattern: updateAbstractsPattern, err: errors.New("lock wait timeout exceeded")},
	)

	rows, err := store.UpdateMany(context.Background(), []int64{1, 2}, reviewChange("rejected"))
	require.Error(t, err)
	assert.Nil(t, rows)

	var txErr *TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "update abstracts", txErr.Detail)
	assert.Contains(t, err.Error(), "lock wait timeout exceeded")

	_, commits, rollbacks := script.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
	assert.Zero(t, script.remaining(), "history must not be written after a failed update")
}

func TestGormStatusStoreUpdateManyRollsBackOnHistoryFailure(t *testing.T) {
	store, script := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: lockAbstractsPattern,
			columns: lockedColumns,
			rows:    [][]driver.Value{{int64(3), nil, "C", "Author C", "pending", nil}},
		},
		&sqlStep{kind: stepExec, pattern: updateAbstractsPattern, result: driver.RowsAffected(1)},
		&sqlStep{kind: stepExec, pattern: insertHistoryPattern, err: errors.New("table is read only")},
	)

	_, err := store.UpdateMany(context.Background(), []int64{3, 4}, reviewChange("approved"))
	var txErr *TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "record status history", txErr.Detail)

	_, commits, rollbacks := script.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestGormStatusStoreUpdateManyLockFailure(t *testing.T) {
	store, script := newScriptedStore(t,
		&sqlStep{kind: stepQuery, pattern: lockAbstractsPattern, err: errors.New("connection reset")},
	)

	_, err := store.UpdateMany(context.Background(), []int64{5, 6}, reviewChange("approved"))
	var txErr *TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "lock abstracts", txErr.Detail)

	_, commits, rollbacks := script.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestGormStatusStoreUpdateOneNotFound(t *testing.T) {
	store, script := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: lockAbstractsPattern,
			args:    []driver.Value{int64(999999)},
			columns: lockedColumns,
			rows:    [][]driver.Value{},
		},
	)

	row, err := store.UpdateOne(context.Background(), 999999, reviewChange("approved"))
	assert.Nil(t, row)
	assert.ErrorIs(t, err, ErrNotFound)

	_, commits, rollbacks := script.txCounts()
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}

func TestGormStatusStoreUpdateManyWithoutIDsSkipsStore(t *testing.T) {
	store, script := newScriptedStore(t)

	rows, err := store.UpdateMany(context.Background(), nil, reviewChange("approved"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	begins, _, _ := script.txCounts()
	assert.Zero(t, begins)
}

func TestGormStatusStoreGetNotFound(t *testing.T) {
	store, _ := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `abstracts` WHERE id = \\?"),
			columns: []string{"id", "title", "status"},
			rows:    [][]driver.Value{},
		},
	)

	abstract, err := store.Get(context.Background(), 42)
	assert.Nil(t, abstract)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStatusStoreCountByStatus(t *testing.T) {
	last := time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC)
	store, script := newScriptedStore(t,
		&sqlStep{
			kind:    stepQuery,
			pattern: regexp.MustCompile("SELECT status, COUNT\\(\\*\\) AS count FROM `abstracts` GROUP BY `status`"),
			columns: []string{"status", "count"},
			rows: [][]driver.Value{
				{"pending", int64(4)},
				{"approved", int64(2)},
				{"final_submitted", int64(1)},
			},
		},
		&sqlStep{
			kind:    stepQuery,
			pattern: regexp.MustCompile("SELECT MAX\\(updated_at\\) AS last_updated FROM `abstracts`"),
			columns: []string{"last_updated"},
			rows:    [][]driver.Value{{last}},
		},
	)

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), counts.Total)
	assert.Equal(t, int64(4), counts.ByStatus["pending"])
	assert.Equal(t, int64(0), counts.ByStatus["rejected"])
	assert.Equal(t, int64(0), counts.ByStatus["under_review"])
	require.NotNil(t, counts.LastUpdated)
	assert.True(t, counts.LastUpdated.Equal(last))
	assert.Zero(t, script.remaining())
}
