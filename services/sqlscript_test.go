package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sqlStepKind int

const (
	stepQuery sqlStepKind = iota
	stepExec
)

// sqlStep is one expected statement. A nil args slice skips argument checks.
type sqlStep struct {
	kind    sqlStepKind
	pattern *regexp.Regexp
	args    []driver.Value
	columns []string
	rows    [][]driver.Value
	err     error
	result  driver.Result
}

// sqlScript replays statements in order and records transaction boundaries.
type sqlScript struct {
	mu        sync.Mutex
	steps     []*sqlStep
	begins    int
	commits   int
	rollbacks int
}

func (s *sqlScript) next(kind sqlStepKind, query string, args []driver.NamedValue) (*sqlStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("unexpected statement: %s", query)
	}
	step := s.steps[0]
	if step.kind != kind {
		return nil, fmt.Errorf("unexpected kind for %s: got %v want %v", query, kind, step.kind)
	}
	if !step.pattern.MatchString(query) {
		return nil, fmt.Errorf("unexpected statement: %s (want %s)", query, step.pattern)
	}
	if step.args != nil {
		if len(step.args) != len(args) {
			return nil, fmt.Errorf("unexpected arg count for %s: got %d want %d", query, len(args), len(step.args))
		}
		for i := range args {
			if args[i].Value != step.args[i] {
				return nil, fmt.Errorf("unexpected arg %d for %s: got %v want %v", i, query, args[i].Value, step.args[i])
			}
		}
	}
	s.steps = s.steps[1:]
	return step, nil
}

func (s *sqlScript) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

func (s *sqlScript) txCounts() (begins, commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.rollbacks
}

type sqlScriptDriver struct{ script *sqlScript }

func (d *sqlScriptDriver) Open(string) (driver.Conn, error) {
	return &sqlScriptConn{script: d.script}, nil
}

type sqlScriptConn struct{ script *sqlScript }

func (c *sqlScriptConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *sqlScriptConn) Close() error { return nil }

func (c *sqlScriptConn) Begin() (driver.Tx, error) {
	c.script.mu.Lock()
	c.script.begins++
	c.script.mu.Unlock()
	return &sqlScriptTx{script: c.script}, nil
}

func (c *sqlScriptConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	step, err := c.script.next(stepQuery, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return &sqlScriptRows{columns: step.columns, rows: step.rows}, nil
}

func (c *sqlScriptConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	step, err := c.script.next(stepExec, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	if step.result != nil {
		return step.result, nil
	}
	return driver.RowsAffected(0), nil
}

type sqlScriptTx struct{ script *sqlScript }

func (t *sqlScriptTx) Commit() error {
	t.script.mu.Lock()
	defer t.script.mu.Unlock()
	t.script.commits++
	return nil
}

func (t *sqlScriptTx) Rollback() error {
	t.script.mu.Lock()
	defer t.script.mu.Unlock()
	t.script.rollbacks++
	return nil
}

type sqlResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r sqlResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }

func (r sqlResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type sqlScriptRows struct {
	columns []string
	rows    [][]driver.Value
	idx     int
}

func (r *sqlScriptRows) Columns() []string { return r.columns }

func (r *sqlScriptRows) Close() error { return nil }

func (r *sqlScriptRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

var sqlScriptSeq atomic.Int64

func newScriptedStore(t *testing.T, steps ...*sqlStep) (*GormStatusStore, *sqlScript) {
	t.Helper()
	script := &sqlScript{steps: steps}
	name := fmt.Sprintf("sqlscript_%d", sqlScriptSeq.Add(1))
	sql.Register(name, &sqlScriptDriver{script: script})

	sqlDB, err := sql.Open(name, "")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return NewGormStatusStore(db), script
}
