package dbx

import (
	"context"
	"sync"

	"github.com/godbcore/go-db-core/pkg/errorx"
)

// Manager strategy names, selected once at startup from configuration.
const (
	ManagerShared    = "shared"
	ManagerEphemeral = "ephemeral"
)

// ConnManager hides the hosting-model differences behind one contract: a
// long-lived worker fleet sharing one pool, or a process-per-request model
// where nothing is retained between releases. The executor never needs to
// know which strategy is active.
//
// GetConnection never blocks indefinitely; on failure it returns a nil
// connection with the error, and the message stays retrievable via LastError.
// ReleaseConnection is best-effort and never fails.
type ConnManager interface {
	GetConnection(ctx context.Context, poolName string) (*PooledConn, error)
	ReleaseConnection(ctx context.Context, conn *PooledConn, broken bool)
	LastError() string
}

// NewConnManager selects the manager strategy by name. An empty strategy
// defaults to shared.
func NewConnManager(strategy string, registry *PoolRegistry) (ConnManager, error) {
	switch strategy {
	case "", ManagerShared:
		return &SharedPoolManager{registry: registry}, nil
	case ManagerEphemeral:
		return &EphemeralPoolManager{registry: registry}, nil
	default:
		return nil, errorx.NewGeneralError("unknown connection manager strategy '%s'", strategy)
	}
}

// SharedPoolManager serves a persistent-process runtime: all workers share
// the registry's pool and released connections are retained for reuse.
type SharedPoolManager struct {
	registry *PoolRegistry

	mu      sync.Mutex
	lastErr string
}

// GetConnection - acquire a pooled connection for the named target.
func (m *SharedPoolManager) GetConnection(ctx context.Context, poolName string) (*PooledConn, error) {
	return acquireForPoolName(ctx, m.registry, poolName, &m.mu, &m.lastErr)
}

// ReleaseConnection - return the connection to the shared pool.
func (m *SharedPoolManager) ReleaseConnection(ctx context.Context, conn *PooledConn, broken bool) {
	m.registry.Pool().Release(ctx, conn, broken)
}

// LastError - message of the most recent GetConnection failure.
func (m *SharedPoolManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}

// EphemeralPoolManager serves a process-per-request runtime: pool size bounds
// are still enforced while a connection is held, but every release discards
// the connection instead of retaining it, matching the short process
// lifetime.
type EphemeralPoolManager struct {
	registry *PoolRegistry

	mu      sync.Mutex
	lastErr string
}

// GetConnection - open a connection for the named target within pool bounds.
func (m *EphemeralPoolManager) GetConnection(ctx context.Context, poolName string) (*PooledConn, error) {
	return acquireForPoolName(ctx, m.registry, poolName, &m.mu, &m.lastErr)
}

// ReleaseConnection - close the connection; nothing is retained across
// releases in this model.
func (m *EphemeralPoolManager) ReleaseConnection(ctx context.Context, conn *PooledConn, broken bool) {
	m.registry.Pool().Release(ctx, conn, true)
}

// LastError - message of the most recent GetConnection failure.
func (m *EphemeralPoolManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}

func acquireForPoolName(ctx context.Context, registry *PoolRegistry, poolName string, mu *sync.Mutex, lastErr *string) (*PooledConn, error) {
	desc, ok := registry.Descriptor(poolName)
	if !ok {
		err := errorx.NewGeneralError("no database registered under pool name '%s'", poolName)
		recordErr(mu, lastErr, err)

		return nil, err
	}

	conn, err := registry.Pool().Acquire(ctx, desc)
	if err != nil {
		recordErr(mu, lastErr, err)
		return nil, err
	}

	return conn, nil
}

func recordErr(mu *sync.Mutex, lastErr *string, err error) {
	mu.Lock()
	*lastErr = err.Error()
	mu.Unlock()
}
