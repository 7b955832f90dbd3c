package dbx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/godbcore/go-db-core/pkg/errorx"
	"github.com/godbcore/go-db-core/pkg/logx"
)

// PoolConfig - sizing and aging bounds for a ConnPool.
type PoolConfig struct {
	// MinSize - connections pre-warmed per pool key, best-effort.
	MinSize int
	// MaxSize - hard cap per pool key across available and in-use.
	MaxSize int
	// MaxConnAge - connections older than this are evicted instead of reused.
	// Zero disables age eviction.
	MaxConnAge time.Duration
}

// PoolStats - point-in-time pool counters.
type PoolStats struct {
	Available int
	InUse     int
	Created   int64
	Evicted   int64
	Discarded int64
}

// PooledConn wraps a live driver handle with pool bookkeeping metadata. Once
// acquired it is exclusively owned by the acquiring worker until released.
type PooledConn struct {
	id           string
	handle       Conn
	poolKey      string
	createdAt    time.Time
	lastVerified time.Time
	busy         bool
}

// ID - unique connection id, used in diagnostics.
func (c *PooledConn) ID() string { return c.id }

// PoolKey - the key of the pool partition this connection belongs to.
func (c *PooledConn) PoolKey() string { return c.poolKey }

// Handle - the underlying driver connection.
func (c *PooledConn) Handle() Conn { return c.handle }

// CreatedAt - creation timestamp.
func (c *PooledConn) CreatedAt() time.Time { return c.createdAt }

// Age - time since the connection was established.
func (c *PooledConn) Age() time.Duration { return time.Since(c.createdAt) }

// ConnPool is the registry of pooled connections grouped by pool key. Every
// connection in existence belongs to exactly one of the available or in-use
// sets of its key; all mutations happen under the pool mutex so concurrent
// acquire/release cannot corrupt that partition.
//
// Acquire never blocks waiting for a free connection: at capacity it fails
// fast with PoolExhaustedError and retry policy is left to the caller.
type ConnPool struct {
	mu        sync.Mutex
	driver    Driver
	cfg       PoolConfig
	available map[string][]*PooledConn
	inUse     map[string]map[string]*PooledConn
	// pending counts connections being established, so concurrent Acquire
	// calls cannot overshoot MaxSize while Connect is in flight.
	pending   map[string]int
	created   int64
	evicted   int64
	discarded int64
	closed    bool
}

// NewConnPool - ConnPool constructor.
func NewConnPool(driver Driver, cfg PoolConfig) *ConnPool {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}

	// MinSize can never exceed MaxSize: the warm-up target is bounded by the
	// same cap Acquire enforces.
	if cfg.MinSize > cfg.MaxSize {
		cfg.MinSize = cfg.MaxSize
	}

	return &ConnPool{
		driver:    driver,
		cfg:       cfg,
		available: make(map[string][]*PooledConn),
		inUse:     make(map[string]map[string]*PooledConn),
		pending:   make(map[string]int),
	}
}

// Acquire returns a verified-alive connection for the descriptor's pool key,
// reusing an available one when it passes the liveness probe, creating a new
// one below MaxSize, or failing fast with PoolExhaustedError. Dead or over-age
// pooled connections are discarded and replaced transparently, never handed
// to the caller.
func (p *ConnPool) Acquire(ctx context.Context, desc ConnDescriptor) (*PooledConn, error) {
	key := desc.PoolKey()

	for {
		p.mu.Lock()

		if p.closed {
			p.mu.Unlock()
			return nil, errorx.NewConnectFailedError("connection pool is shut down")
		}

		if conns := p.available[key]; len(conns) > 0 {
			conn := conns[len(conns)-1]
			p.available[key] = conns[:len(conns)-1]
			conn.busy = true
			p.inUseSetLocked(key)[conn.id] = conn
			p.mu.Unlock()

			if p.cfg.MaxConnAge > 0 && conn.Age() > p.cfg.MaxConnAge {
				p.discardInUse(ctx, conn, true)
				continue
			}

			if err := conn.handle.Ping(ctx); err != nil {
				logx.GetLogger().LogWarning(ctx,
					fmt.Sprintf("Discarding dead pooled connection %s for %s", conn.id, desc.String()), err)
				p.discardInUse(ctx, conn, false)

				continue
			}

			conn.lastVerified = time.Now()

			return conn, nil
		}

		if p.sizeLocked(key)+p.pending[key] >= p.cfg.MaxSize {
			p.mu.Unlock()
			return nil, errorx.NewPoolExhaustedError(
				"connection pool exhausted for %s: max size %d reached", desc.String(), p.cfg.MaxSize)
		}

		p.pending[key]++
		p.mu.Unlock()

		handle, err := p.driver.Connect(ctx, desc)

		p.mu.Lock()
		p.pending[key]--

		if err != nil {
			p.mu.Unlock()
			return nil, errorx.NewConnectFailedErrorWrapper(err, "Error establishing connection to %s", desc.String())
		}

		now := time.Now()
		conn := &PooledConn{
			id:           uuid.NewString(),
			handle:       handle,
			poolKey:      key,
			createdAt:    now,
			lastVerified: now,
			busy:         true,
		}
		p.inUseSetLocked(key)[conn.id] = conn
		p.created++
		p.mu.Unlock()

		return conn, nil
	}
}

// Release returns a connection to its key's available set. A broken or
// over-age connection is closed and discarded instead. Release is
// best-effort: it never fails, close errors are only logged.
func (p *ConnPool) Release(ctx context.Context, conn *PooledConn, broken bool) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	delete(p.inUse[conn.poolKey], conn.id)

	expired := p.cfg.MaxConnAge > 0 && conn.Age() > p.cfg.MaxConnAge
	if broken || expired || p.closed {
		if expired {
			p.evicted++
		} else {
			p.discarded++
		}
		p.mu.Unlock()

		p.closeHandle(ctx, conn)

		return
	}

	conn.busy = false
	p.available[conn.poolKey] = append(p.available[conn.poolKey], conn)
	p.mu.Unlock()
}

// EvictExpired scans the available sets and closes every connection older
// than MaxConnAge, returning how many were removed. Meant to be called
// periodically (see Reaper); acquire-time checks alone already keep expired
// connections from being handed out.
func (p *ConnPool) EvictExpired(ctx context.Context) int {
	if p.cfg.MaxConnAge <= 0 {
		return 0
	}

	var expired []*PooledConn

	p.mu.Lock()
	for key, conns := range p.available {
		kept := conns[:0]

		for _, conn := range conns {
			if conn.Age() > p.cfg.MaxConnAge {
				expired = append(expired, conn)
			} else {
				kept = append(kept, conn)
			}
		}

		p.available[key] = kept
	}
	p.evicted += int64(len(expired))
	p.mu.Unlock()

	for _, conn := range expired {
		p.closeHandle(ctx, conn)
	}

	return len(expired)
}

// Prewarm establishes up to MinSize connections for the descriptor's key,
// best-effort: the first connect failure stops the warm-up with a warning.
func (p *ConnPool) Prewarm(ctx context.Context, desc ConnDescriptor) {
	key := desc.PoolKey()

	for {
		p.mu.Lock()
		if p.closed || p.sizeLocked(key)+p.pending[key] >= p.cfg.MinSize {
			p.mu.Unlock()
			return
		}
		p.pending[key]++
		p.mu.Unlock()

		handle, err := p.driver.Connect(ctx, desc)

		p.mu.Lock()
		p.pending[key]--

		if err != nil {
			p.mu.Unlock()
			logx.GetLogger().LogWarning(ctx, fmt.Sprintf("Pool warm-up stopped for %s", desc.String()), err)

			return
		}

		now := time.Now()
		p.available[key] = append(p.available[key], &PooledConn{
			id:           uuid.NewString(),
			handle:       handle,
			poolKey:      key,
			createdAt:    now,
			lastVerified: now,
		})
		p.created++
		p.mu.Unlock()
	}
}

// Size - number of connections (available + in-use) for a pool key.
func (p *ConnPool) Size(poolKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sizeLocked(poolKey)
}

// Available - number of idle connections for a pool key.
func (p *ConnPool) Available(poolKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.available[poolKey])
}

// TotalConnections - number of connections across all pool keys.
func (p *ConnPool) TotalConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for key := range p.available {
		total += len(p.available[key])
	}

	for key := range p.inUse {
		total += len(p.inUse[key])
	}

	return total
}

// Stats - snapshot of the pool counters.
func (p *ConnPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PoolStats{
		Created:   p.created,
		Evicted:   p.evicted,
		Discarded: p.discarded,
	}

	for key := range p.available {
		stats.Available += len(p.available[key])
	}

	for key := range p.inUse {
		stats.InUse += len(p.inUse[key])
	}

	return stats
}

// Shutdown closes every available connection and marks the pool closed.
// Connections still in use are closed when they are released.
func (p *ConnPool) Shutdown(ctx context.Context) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true

	var open []*PooledConn
	for key, conns := range p.available {
		open = append(open, conns...)
		delete(p.available, key)
	}
	p.mu.Unlock()

	for _, conn := range open {
		p.closeHandle(ctx, conn)
	}

	logx.GetLogger().LogInfo(ctx, "Connection Pool Successfully Closed!")
}

// sizeLocked - caller must hold p.mu.
func (p *ConnPool) sizeLocked(poolKey string) int {
	return len(p.available[poolKey]) + len(p.inUse[poolKey])
}

// inUseSetLocked - caller must hold p.mu.
func (p *ConnPool) inUseSetLocked(poolKey string) map[string]*PooledConn {
	set := p.inUse[poolKey]
	if set == nil {
		set = make(map[string]*PooledConn)
		p.inUse[poolKey] = set
	}

	return set
}

// discardInUse removes a connection that was optimistically moved to the
// in-use set during Acquire and closes its handle.
func (p *ConnPool) discardInUse(ctx context.Context, conn *PooledConn, expired bool) {
	p.mu.Lock()
	delete(p.inUse[conn.poolKey], conn.id)

	if expired {
		p.evicted++
	} else {
		p.discarded++
	}
	p.mu.Unlock()

	p.closeHandle(ctx, conn)
}

func (p *ConnPool) closeHandle(ctx context.Context, conn *PooledConn) {
	if err := conn.handle.Close(ctx); err != nil {
		logx.GetLogger().LogWarning(ctx, fmt.Sprintf("Error closing discarded connection %s", conn.id), err)
	}
}
