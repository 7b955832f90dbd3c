package dbx

import (
	"context"
	"sync"
	"time"

	"github.com/godbcore/go-db-core/pkg/configx"
	"github.com/godbcore/go-db-core/pkg/errorx"
	"github.com/godbcore/go-db-core/pkg/validatorx"
)

// PoolRegistry owns the process-wide pool and the named descriptors behind
// it, with explicit initialization and shutdown. Managers receive a registry
// by injection; tests construct isolated instances.
type PoolRegistry struct {
	mu          sync.RWMutex
	pool        *ConnPool
	descriptors map[string]ConnDescriptor
}

// NewPoolRegistry - PoolRegistry constructor.
func NewPoolRegistry(driver Driver, cfg PoolConfig) *PoolRegistry {
	return &PoolRegistry{
		pool:        NewConnPool(driver, cfg),
		descriptors: make(map[string]ConnDescriptor),
	}
}

// SetupPoolRegistry builds a registry from the database config section,
// validating it first and registering every configured target.
func SetupPoolRegistry(dbConf *configx.DatabaseConfig, driver Driver) (*PoolRegistry, error) {
	if dbConf == nil {
		return nil, errorx.NewGeneralError("database configuration is missing")
	}

	if validationErrs := validatorx.NewValidator().ValidateStruct(dbConf); len(validationErrs) > 0 {
		return nil, errorx.NewGeneralErrorWrapper(
			validatorx.NewValidationError(validationErrs), "invalid database configuration")
	}

	registry := NewPoolRegistry(driver, PoolConfig{
		MinSize:    dbConf.MinPoolSize,
		MaxSize:    dbConf.MaxPoolSize,
		MaxConnAge: time.Duration(dbConf.MaxConnAgeSeconds) * time.Second,
	})

	for _, target := range dbConf.Targets {
		desc, err := NewConnDescriptor(target.Host, target.Port, target.Name, target.User, target.Password, target.Charset)
		if err != nil {
			return nil, err
		}

		if err := registry.RegisterDatabase(target.PoolName, desc); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// RegisterDatabase binds a pool name to a connection descriptor.
func (r *PoolRegistry) RegisterDatabase(poolName string, desc ConnDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[poolName]; exists {
		return errorx.NewGeneralError("pool name '%s' is already registered", poolName)
	}

	r.descriptors[poolName] = desc

	return nil
}

// Descriptor - look up the descriptor registered under poolName.
func (r *PoolRegistry) Descriptor(poolName string) (ConnDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[poolName]

	return desc, ok
}

// Pool - the registry's connection pool.
func (r *PoolRegistry) Pool() *ConnPool {
	return r.pool
}

// Prewarm pre-establishes MinSize connections for every registered target,
// best-effort.
func (r *PoolRegistry) Prewarm(ctx context.Context) {
	r.mu.RLock()
	descriptors := make([]ConnDescriptor, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		descriptors = append(descriptors, desc)
	}
	r.mu.RUnlock()

	for _, desc := range descriptors {
		r.pool.Prewarm(ctx, desc)
	}
}

// Shutdown closes the pool.
func (r *PoolRegistry) Shutdown(ctx context.Context) {
	r.pool.Shutdown(ctx)
}
