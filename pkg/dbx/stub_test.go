package dbx_test

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/godbcore/go-db-core/pkg/dbx"
)

// stubDriver - in-memory dbx.Driver used by the unit tests so no database is
// needed. Connections it hands out can be killed, poisoned or inspected from
// the outside.
type stubDriver struct {
	mu         sync.Mutex
	connects   int
	connectErr error
	conns      []*stubConn
}

func (d *stubDriver) Connect(ctx context.Context, desc dbx.ConnDescriptor) (dbx.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connectErr != nil {
		return nil, d.connectErr
	}

	d.connects++
	conn := &stubConn{}
	d.conns = append(d.conns, conn)

	return conn, nil
}

func (d *stubDriver) connectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.connects
}

func (d *stubDriver) lastConn() *stubConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.conns) == 0 {
		return nil
	}

	return d.conns[len(d.conns)-1]
}

type stubConn struct {
	mu          sync.Mutex
	pingErr     error
	prepareErr  error
	execErr     error
	queryErr    error
	beginErr    error
	commitErr   error
	rollbackErr error

	closed     bool
	begun      int
	committed  int
	rolledBack int

	rowColumns [][]string
	rowData    [][][]any
	issuedRows []*stubRows
}

func (c *stubConn) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pingErr = errors.New("connection killed out of band")
}

func (c *stubConn) setQueryResult(columns []string, rows [][]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rowColumns = append(c.rowColumns, columns)
	c.rowData = append(c.rowData, rows)
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *stubConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pingErr
}

func (c *stubConn) Prepare(ctx context.Context, sql string) (dbx.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prepareErr != nil {
		return nil, c.prepareErr
	}

	return &stubStmt{conn: c, kind: dbx.StatementKindOf(sql)}, nil
}

func (c *stubConn) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.beginErr != nil {
		return c.beginErr
	}

	c.begun++

	return nil
}

func (c *stubConn) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commitErr != nil {
		return c.commitErr
	}

	c.committed++

	return nil
}

func (c *stubConn) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rollbackErr != nil {
		return c.rollbackErr
	}

	c.rolledBack++

	return nil
}

func (c *stubConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

type stubStmt struct {
	conn *stubConn
	kind dbx.StatementKind
}

func (s *stubStmt) Exec(ctx context.Context, binds map[string]dbx.BindValue) (dbx.ExecResult, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	if s.conn.execErr != nil {
		return dbx.ExecResult{}, s.conn.execErr
	}

	result := dbx.ExecResult{AffectedRows: 1}
	if s.kind == dbx.StatementInsert {
		result.LastInsertedID = "41"
	}

	return result, nil
}

func (s *stubStmt) Query(ctx context.Context, binds map[string]dbx.BindValue) (dbx.Rows, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()

	if s.conn.queryErr != nil {
		return nil, s.conn.queryErr
	}

	var columns []string
	var data [][]any

	if len(s.conn.rowData) > 0 {
		columns = s.conn.rowColumns[0]
		data = s.conn.rowData[0]
		s.conn.rowColumns = s.conn.rowColumns[1:]
		s.conn.rowData = s.conn.rowData[1:]
	}

	rows := &stubRows{columns: columns, data: data, pos: -1}
	s.conn.issuedRows = append(s.conn.issuedRows, rows)

	return rows, nil
}

func (s *stubStmt) Close(ctx context.Context) error {
	return nil
}

type stubRows struct {
	columns []string
	data    [][]any
	pos     int
	closed  bool
}

func (r *stubRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *stubRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func (r *stubRows) Columns() []string {
	return r.columns
}

func (r *stubRows) Err() error {
	return nil
}

func (r *stubRows) Close() {
	r.closed = true
}

// backendErr - driver error exposing a SQLSTATE code, like pgconn.PgError.
type backendErr struct {
	msg  string
	code string
}

func (e *backendErr) Error() string { return e.msg }

func (e *backendErr) SQLState() string { return e.code }

// mustDescriptor - test descriptor helper.
func mustDescriptor(host string, port int32, name string) dbx.ConnDescriptor {
	desc, err := dbx.NewConnDescriptor(host, port, name, "postgres", "password", "UTF8")
	if err != nil {
		panic(err)
	}

	return desc
}
