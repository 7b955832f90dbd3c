package dbx

import (
	"context"
	"strings"
)

// Driver opens raw connections against a target database. The pool, the
// managers and the executor are written against this contract, so unit tests
// can inject stub connections and the pgx binding plugs in underneath.
type Driver interface {
	Connect(ctx context.Context, desc ConnDescriptor) (Conn, error)
}

// Conn is a live database handle.
type Conn interface {
	// Ping - cheap liveness probe used by the pool before handing the
	// connection out.
	Ping(ctx context.Context) error
	// Prepare - prepare a statement with named :param placeholders.
	Prepare(ctx context.Context, sql string) (Stmt, error)
	// Begin / Commit / Rollback - native transaction control on this handle.
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Close - close the underlying handle.
	Close(ctx context.Context) error
}

// Stmt is a prepared statement bound to the connection that prepared it.
type Stmt interface {
	// Exec - run the statement with the given named bindings and return the
	// command result. Used for non-SELECT statements.
	Exec(ctx context.Context, binds map[string]BindValue) (ExecResult, error)
	// Query - run the statement and return a row cursor. Used for SELECT.
	Query(ctx context.Context, binds map[string]BindValue) (Rows, error)
	// Close - deallocate the statement.
	Close(ctx context.Context) error
}

// ExecResult - outcome of a non-SELECT execution.
type ExecResult struct {
	AffectedRows int64
	// LastInsertedID is populated for INSERT statements only, empty when the
	// backend generated nothing.
	LastInsertedID string
}

// Rows is a cursor over an executed SELECT. It keeps the owning connection
// busy until Close.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Columns() []string
	Err() error
	Close()
}

// StatementKind classifies a statement by its leading keyword. The executor
// uses it for the auto-release rule (SELECT holds the connection until fetch)
// and drivers use it to capture the last inserted id on INSERT.
type StatementKind int

const (
	StatementOther StatementKind = iota
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
)

// StatementKindOf - classify sql by its first keyword. A statement opening
// with WITH counts as a SELECT so CTE queries produce a fetchable cursor.
func StatementKindOf(sql string) StatementKind {
	trimmed := strings.TrimSpace(sql)

	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "WITH") && isSpaceByte(trimmed[4]) {
		return StatementSelect
	}

	if len(trimmed) < 6 {
		return StatementOther
	}

	switch strings.ToUpper(trimmed[:6]) {
	case "SELECT":
		return StatementSelect
	case "INSERT":
		return StatementInsert
	case "UPDATE":
		return StatementUpdate
	case "DELETE":
		return StatementDelete
	default:
		return StatementOther
	}
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// sqlStater matches driver errors that expose a backend SQLSTATE code
// (pgconn.PgError does) without importing the driver package here.
type sqlStater interface {
	SQLState() string
}

// BackendCode extracts the backend error code from a driver error, empty if
// the error carries none.
func BackendCode(err error) string {
	for err != nil {
		if coder, ok := err.(sqlStater); ok {
			return coder.SQLState()
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}

		err = unwrapper.Unwrap()
	}

	return ""
}
