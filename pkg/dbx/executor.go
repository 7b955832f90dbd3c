package dbx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/godbcore/go-db-core/pkg/errorx"
	"github.com/godbcore/go-db-core/pkg/logx"
)

// maxQueryBytes - prepare rejects statements above this ceiling.
const maxQueryBytes = 1 << 20

type execState int

const (
	stateIdle execState = iota
	statePrepared
	stateExecuted
)

// QueryExecutor is the per-operation execution unit. It owns at most one
// pooled connection at a time, acquired lazily on the first operation that
// needs one: construction never touches the pool. Outside a transaction the
// connection is held only for a single prepare/bind/execute/fetch cycle and
// auto-released afterwards; inside a transaction it is held continuously
// until commit or rollback.
//
// An executor is a single-owner object for one logical database interaction
// and is not safe for concurrent use.
type QueryExecutor struct {
	id       string
	mgr      ConnManager
	poolName string

	conn  *PooledConn
	stmt  Stmt
	rows  Rows
	state execState
	inTx  bool

	lastQuery      string
	kind           StatementKind
	binds          map[string]BindValue
	affectedRows   int64
	lastInsertedID string
	lastErr        error
	execTime       time.Duration
}

// NewQueryExecutor - QueryExecutor constructor. No connection is opened here.
func NewQueryExecutor(mgr ConnManager, poolName string) *QueryExecutor {
	return &QueryExecutor{
		id:       uuid.NewString(),
		mgr:      mgr,
		poolName: poolName,
		binds:    make(map[string]BindValue),
	}
}

// Prepare validates and prepares a statement, lazily acquiring a connection
// if none is held. A failed native prepare releases the connection as broken.
func (e *QueryExecutor) Prepare(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return e.fail(errorx.NewPrepareError("cannot prepare an empty statement"))
	}

	if len(sql) > maxQueryBytes {
		return e.fail(errorx.NewPrepareError("statement of %d bytes exceeds the %d byte ceiling", len(sql), maxQueryBytes))
	}

	e.closeStatement(ctx)

	if e.conn == nil {
		conn, err := e.mgr.GetConnection(ctx, e.poolName)
		if err != nil {
			return e.fail(err)
		}

		e.conn = conn
	}

	stmt, err := e.conn.Handle().Prepare(ctx, sql)
	if err != nil {
		e.releaseBroken(ctx)
		return e.fail(errorx.NewPrepareErrorWrapper(err, "Error preparing statement '%s'", sql))
	}

	e.stmt = stmt
	e.lastQuery = sql
	e.kind = StatementKindOf(sql)
	e.binds = make(map[string]BindValue)
	e.state = statePrepared
	e.lastErr = nil

	return nil
}

// Bind attaches a named parameter value with its kind inferred from the
// value's own type.
func (e *QueryExecutor) Bind(name string, value any) error {
	if e.stmt == nil {
		return e.fail(errorx.NewBindError("cannot bind '%s': no statement prepared", name))
	}

	e.binds[NormalizeBindName(name)] = InferBindValue(value)

	return nil
}

// Execute runs the prepared statement with the current bindings.
//
// A SELECT keeps the connection held until results are fetched, because
// fetching needs the open cursor. Any other statement records its affected
// row count (and, for INSERT, the last generated identifier) and, when no
// transaction is open, releases the connection back to the pool immediately.
// A failed execute releases the connection as broken since the handle may be
// poisoned.
func (e *QueryExecutor) Execute(ctx context.Context) error {
	if e.stmt == nil {
		return e.fail(errorx.NewExecuteError("cannot execute: no statement prepared"))
	}

	start := time.Now()

	if e.kind == StatementSelect {
		// Re-executing before fetching abandons the previous cursor.
		if e.rows != nil {
			e.rows.Close()
			e.rows = nil
		}

		rows, err := e.stmt.Query(ctx, e.binds)
		e.execTime = time.Since(start)

		if err != nil {
			return e.executeFailed(ctx, err)
		}

		e.rows = rows
		e.state = stateExecuted
		e.lastErr = nil

		return nil
	}

	result, err := e.stmt.Exec(ctx, e.binds)
	e.execTime = time.Since(start)

	if err != nil {
		return e.executeFailed(ctx, err)
	}

	e.affectedRows = result.AffectedRows
	if e.kind == StatementInsert {
		e.lastInsertedID = result.LastInsertedID
	}

	e.closeStatement(ctx)
	e.state = stateExecuted
	e.lastErr = nil

	if !e.inTx {
		e.release(ctx)
	}

	return nil
}

// FetchAll returns every row of the executed SELECT as column-name keyed
// maps, then releases the cursor (and, outside a transaction, the
// connection).
func (e *QueryExecutor) FetchAll(ctx context.Context) ([]map[string]any, error) {
	if err := e.fetchable(); err != nil {
		return nil, err
	}

	defer e.finishFetch(ctx)

	columns := e.rows.Columns()

	var result []map[string]any

	for e.rows.Next() {
		values, err := e.rows.Values()
		if err != nil {
			return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error reading row values"))
		}

		result = append(result, rowToMap(columns, values))
	}

	if err := e.rows.Err(); err != nil {
		return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error iterating rows"))
	}

	return result, nil
}

// FetchOne returns the first row of the executed SELECT, nil when the result
// set is empty, then releases the cursor.
func (e *QueryExecutor) FetchOne(ctx context.Context) (map[string]any, error) {
	if err := e.fetchable(); err != nil {
		return nil, err
	}

	defer e.finishFetch(ctx)

	if !e.rows.Next() {
		if err := e.rows.Err(); err != nil {
			return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error iterating rows"))
		}

		return nil, nil
	}

	values, err := e.rows.Values()
	if err != nil {
		return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error reading row values"))
	}

	return rowToMap(e.rows.Columns(), values), nil
}

// FetchColumn returns the first column of the first row of the executed
// SELECT, nil when the result set is empty, then releases the cursor.
func (e *QueryExecutor) FetchColumn(ctx context.Context) (any, error) {
	if err := e.fetchable(); err != nil {
		return nil, err
	}

	defer e.finishFetch(ctx)

	if !e.rows.Next() {
		if err := e.rows.Err(); err != nil {
			return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error iterating rows"))
		}

		return nil, nil
	}

	values, err := e.rows.Values()
	if err != nil {
		return nil, e.fail(errorx.NewFetchErrorWrapper(err, "Error reading row values"))
	}

	if len(values) == 0 {
		return nil, nil
	}

	return values[0], nil
}

// BeginTransaction acquires a connection and opens a native transaction on
// it. The connection is held until Commit or Rollback regardless of the
// non-transactional auto-release rules. It fails when a transaction is
// already open, or when a connection is already held outside a transaction.
func (e *QueryExecutor) BeginTransaction(ctx context.Context) error {
	if e.inTx {
		return e.fail(errorx.NewTransactionAlreadyOpenError("transaction already open"))
	}

	if e.conn != nil {
		return e.fail(errorx.NewTransactionAlreadyOpenError("connection already held outside a transaction"))
	}

	conn, err := e.mgr.GetConnection(ctx, e.poolName)
	if err != nil {
		return e.fail(err)
	}

	e.conn = conn

	if err := conn.Handle().Begin(ctx); err != nil {
		e.releaseBroken(ctx)

		execErr := errorx.NewExecuteErrorWrapper(err, "Error starting transaction").
			WithContext("BEGIN", nil, false, BackendCode(err))

		return e.fail(execErr)
	}

	e.inTx = true
	e.lastErr = nil

	return nil
}

// Commit commits the open transaction. The connection is released on every
// exit path, including a failed native commit.
func (e *QueryExecutor) Commit(ctx context.Context) error {
	if !e.inTx {
		return e.fail(errorx.NewNoActiveTransactionError("commit called without an open transaction"))
	}

	defer func() {
		e.inTx = false
		e.closeStatement(ctx)
		e.release(ctx)
	}()

	if err := e.conn.Handle().Commit(ctx); err != nil {
		execErr := errorx.NewExecuteErrorWrapper(err, "Error during transaction commit").
			WithContext("COMMIT", nil, true, BackendCode(err))

		return e.fail(execErr)
	}

	e.lastErr = nil

	return nil
}

// Rollback rolls back the open transaction. The connection is released on
// every exit path, including a failed native rollback.
func (e *QueryExecutor) Rollback(ctx context.Context) error {
	if !e.inTx {
		return e.fail(errorx.NewNoActiveTransactionError("rollback called without an open transaction"))
	}

	defer func() {
		e.inTx = false
		e.closeStatement(ctx)
		e.release(ctx)
	}()

	if err := e.conn.Handle().Rollback(ctx); err != nil {
		execErr := errorx.NewExecuteErrorWrapper(err, "Error during transaction rollback").
			WithContext("ROLLBACK", nil, true, BackendCode(err))

		return e.fail(execErr)
	}

	e.lastErr = nil

	return nil
}

// Secure is the idempotent cleanup entry point, meant to run at the end of
// the executor's lifetime. A transaction still open is rolled back when
// forceRollback is set (best-effort, errors are logged, never returned);
// without forceRollback the connection of an abandoned transaction is
// discarded rather than returned mid-transaction to the pool. Any held
// connection is then released.
func (e *QueryExecutor) Secure(ctx context.Context, forceRollback bool) {
	e.closeStatement(ctx)

	if e.inTx {
		if forceRollback {
			if err := e.conn.Handle().Rollback(ctx); err != nil {
				logx.GetLogger().LogError(ctx, fmt.Sprintf("Error rolling back abandoned transaction on executor %s", e.id), err)
			} else {
				logx.GetLogger().LogWarning(ctx, fmt.Sprintf("Rolled back abandoned transaction on executor %s", e.id))
			}

			e.inTx = false
			e.release(ctx)

			return
		}

		logx.GetLogger().LogWarning(ctx, fmt.Sprintf("Discarding connection with abandoned open transaction on executor %s", e.id))
		e.inTx = false
		e.releaseBroken(ctx)

		return
	}

	e.release(ctx)
}

// ExecuteTransactionalTask runs task inside a transaction, rolling back when
// it returns an error and committing otherwise.
func (e *QueryExecutor) ExecuteTransactionalTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := e.BeginTransaction(ctx); err != nil {
		return err
	}

	if err := task(ctx); err != nil {
		if rollbackErr := e.Rollback(ctx); rollbackErr != nil {
			logx.GetLogger().LogError(ctx, "Error rolling back failed transactional task", rollbackErr)
		}

		return errorx.NewGeneralErrorWrapper(err, "error executing transactional task")
	}

	return e.Commit(ctx)
}

// ID - unique executor id, used in diagnostics.
func (e *QueryExecutor) ID() string { return e.id }

// AffectedRows - rows affected by the last successful non-SELECT execute.
func (e *QueryExecutor) AffectedRows() int64 { return e.affectedRows }

// LastInsertedID - identifier generated by the last successful INSERT, empty
// when the backend generated nothing.
func (e *QueryExecutor) LastInsertedID() string { return e.lastInsertedID }

// LastError - the most recent failure, nil after a successful operation.
func (e *QueryExecutor) LastError() error { return e.lastErr }

// ExecutionTime - duration of the last execute call.
func (e *QueryExecutor) ExecutionTime() time.Duration { return e.execTime }

// InTransaction - report whether a transaction is open.
func (e *QueryExecutor) InTransaction() bool { return e.inTx }

// LastQuery - text of the most recently prepared statement.
func (e *QueryExecutor) LastQuery() string { return e.lastQuery }

// HoldsConnection - report whether the executor currently holds a pooled
// connection.
func (e *QueryExecutor) HoldsConnection() bool { return e.conn != nil }

func (e *QueryExecutor) fetchable() error {
	if e.rows == nil {
		if e.state != stateExecuted {
			return e.fail(errorx.NewNoStatementExecutedError("fetch called before a successful execute"))
		}

		return e.fail(errorx.NewFetchError("executed statement produced no result set"))
	}

	return nil
}

// executeFailed converts a native execution failure into an ExecuteError
// carrying the full context and releases the connection as broken.
func (e *QueryExecutor) executeFailed(ctx context.Context, err error) error {
	execErr := errorx.NewExecuteErrorWrapper(err, "Error executing statement '%s'", e.lastQuery).
		WithContext(e.lastQuery, e.bindingValues(), e.inTx, BackendCode(err))

	logx.GetLogger().LogError(ctx, fmt.Sprintf("Statement execution failed: %s", execErr.ContextJSON()), err)

	e.closeStatement(ctx)
	e.inTx = false
	e.releaseBroken(ctx)
	e.state = stateIdle

	return e.fail(execErr)
}

func (e *QueryExecutor) bindingValues() map[string]any {
	values := make(map[string]any, len(e.binds))
	for name, bind := range e.binds {
		values[name] = bind.Value()
	}

	return values
}

// finishFetch closes the cursor and statement and, outside a transaction,
// releases the connection.
func (e *QueryExecutor) finishFetch(ctx context.Context) {
	if e.rows != nil {
		e.rows.Close()
		e.rows = nil
	}

	e.closeStatement(ctx)
	e.state = stateIdle

	if !e.inTx {
		e.release(ctx)
	}
}

func (e *QueryExecutor) closeStatement(ctx context.Context) {
	if e.rows != nil {
		e.rows.Close()
		e.rows = nil
	}

	if e.stmt != nil {
		if err := e.stmt.Close(ctx); err != nil {
			logx.GetLogger().LogWarning(ctx, "Error closing prepared statement", err)
		}

		e.stmt = nil
	}
}

func (e *QueryExecutor) release(ctx context.Context) {
	if e.conn != nil {
		e.mgr.ReleaseConnection(ctx, e.conn, false)
		e.conn = nil
	}

	e.state = stateIdle
}

func (e *QueryExecutor) releaseBroken(ctx context.Context) {
	if e.conn != nil {
		e.mgr.ReleaseConnection(ctx, e.conn, true)
		e.conn = nil
	}

	e.state = stateIdle
}

func (e *QueryExecutor) fail(err error) error {
	e.lastErr = err
	return err
}

func rowToMap(columns []string, values []any) map[string]any {
	row := make(map[string]any, len(values))

	for i, value := range values {
		if i < len(columns) {
			row[columns[i]] = value
		}
	}

	return row
}
