package pgxdrv

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/godbcore/go-db-core/pkg/dbx"
)

// pgxStmt - dbx.Stmt over a named prepared statement. Execution goes through
// the owning session, so statements run inside whatever transaction is open
// on it.
type pgxStmt struct {
	conn       *pgxConn
	name       string
	paramOrder []string
	kind       dbx.StatementKind
}

// Exec - run the statement with the given named bindings.
func (s *pgxStmt) Exec(ctx context.Context, binds map[string]dbx.BindValue) (dbx.ExecResult, error) {
	args, err := s.orderedArgs(binds)
	if err != nil {
		return dbx.ExecResult{}, err
	}

	commandTag, err := s.conn.conn.Exec(ctx, s.name, args...)
	if err != nil {
		return dbx.ExecResult{}, err
	}

	result := dbx.ExecResult{AffectedRows: commandTag.RowsAffected()}

	if s.kind == dbx.StatementInsert {
		// PDO-style last inserted id: lastval() errors when the INSERT used
		// no sequence, in which case the id stays empty.
		var lastID string
		if scanErr := s.conn.conn.QueryRow(ctx, "SELECT lastval()::text").Scan(&lastID); scanErr == nil {
			result.LastInsertedID = lastID
		}
	}

	return result, nil
}

// Query - run the statement and return a row cursor.
func (s *pgxStmt) Query(ctx context.Context, binds map[string]dbx.BindValue) (dbx.Rows, error) {
	args, err := s.orderedArgs(binds)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.conn.Query(ctx, s.name, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Close - deallocate the prepared statement.
func (s *pgxStmt) Close(ctx context.Context) error {
	return s.conn.conn.Deallocate(ctx, s.name)
}

// orderedArgs maps named bindings onto the positional order derived at
// prepare time.
func (s *pgxStmt) orderedArgs(binds map[string]dbx.BindValue) ([]any, error) {
	args := make([]any, len(s.paramOrder))

	for i, name := range s.paramOrder {
		bind, ok := binds[name]
		if !ok {
			return nil, errors.Errorf("missing binding for parameter ':%s'", name)
		}

		args[i] = bind.Value()
	}

	return args, nil
}

// pgxRows - dbx.Rows over pgx.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Values() ([]any, error) {
	return r.rows.Values()
}

func (r *pgxRows) Columns() []string {
	fields := r.rows.FieldDescriptions()

	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	return columns
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}

func (r *pgxRows) Close() {
	r.rows.Close()
}
