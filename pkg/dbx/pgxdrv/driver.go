package pgxdrv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/godbcore/go-db-core/pkg/dbx"
	"github.com/godbcore/go-db-core/pkg/logx"
)

// PgxDriver - dbx.Driver implementation over direct (non-pooled) pgx
// connections. Pooling is owned by dbx.ConnPool; this binding only opens raw
// handles and maps statement execution onto them.
type PgxDriver struct {
	queryTimeout time.Duration
}

// NewDriver - PgxDriver constructor.
func NewDriver() *PgxDriver {
	return &PgxDriver{}
}

// NewDriverWithQueryTimeout - PgxDriver that sets timeout as the session
// statement_timeout, bounding every statement run on connections it opens.
// A zero or negative timeout leaves the server default in place.
func NewDriverWithQueryTimeout(timeout time.Duration) *PgxDriver {
	return &PgxDriver{queryTimeout: timeout}
}

// runtimeParams - session runtime parameters derived from the descriptor and
// the driver's own settings.
func (d *PgxDriver) runtimeParams(desc dbx.ConnDescriptor) map[string]string {
	params := make(map[string]string)

	if desc.Charset() != "" {
		params["client_encoding"] = desc.Charset()
	}

	if d.queryTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(d.queryTimeout.Milliseconds(), 10)
	}

	return params
}

// Connect - open a direct connection described by desc.
func (d *PgxDriver) Connect(ctx context.Context, desc dbx.ConnDescriptor) (dbx.Conn, error) {
	connConfig, err := pgx.ParseConfig("")
	if err != nil {
		return nil, errors.Wrap(err, "error creating connection configuration")
	}

	connConfig.Host = desc.Host()
	connConfig.Port = uint16(desc.Port())
	connConfig.Database = desc.DBName()
	connConfig.User = desc.User()
	connConfig.Password = desc.Password()

	for param, value := range d.runtimeParams(desc) {
		connConfig.RuntimeParams[param] = value
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", desc.String())
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Established connection to %s", desc.String()))

	return &pgxConn{conn: conn}, nil
}

// pgxConn - dbx.Conn over a single *pgx.Conn session.
type pgxConn struct {
	conn    *pgx.Conn
	tx      pgx.Tx
	stmtSeq int
}

// Ping - liveness probe.
func (c *pgxConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Prepare rewrites :name placeholders to positional parameters and prepares
// the statement under a connection-unique name.
func (c *pgxConn) Prepare(ctx context.Context, sql string) (dbx.Stmt, error) {
	rewritten, paramOrder := rewriteNamedParams(sql)

	c.stmtSeq++
	name := fmt.Sprintf("dbx_stmt_%d", c.stmtSeq)

	if _, err := c.conn.Prepare(ctx, name, rewritten); err != nil {
		return nil, errors.Wrapf(err, "error preparing statement '%s'", name)
	}

	return &pgxStmt{
		conn:       c,
		name:       name,
		paramOrder: paramOrder,
		kind:       dbx.StatementKindOf(sql),
	}, nil
}

// Begin - start a native transaction on this session.
func (c *pgxConn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return errors.New("transaction already open on connection")
	}

	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return err
	}

	c.tx = tx

	return nil
}

// Commit - commit the open transaction.
func (c *pgxConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return errors.New("no open transaction on connection")
	}

	err := c.tx.Commit(ctx)
	c.tx = nil

	return err
}

// Rollback - roll back the open transaction.
func (c *pgxConn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return errors.New("no open transaction on connection")
	}

	err := c.tx.Rollback(ctx)
	c.tx = nil

	return err
}

// Close - close the underlying session.
func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
