package dbx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godbcore/go-db-core/pkg/configx"
	"github.com/godbcore/go-db-core/pkg/dbx"
)

func validDatabaseConfig() *configx.DatabaseConfig {
	return &configx.DatabaseConfig{
		Manager:           "shared",
		MinPoolSize:       1,
		MaxPoolSize:       5,
		MaxConnAgeSeconds: 1800,
		Targets: []configx.DatabaseTarget{
			{
				PoolName: "main",
				Host:     "localhost",
				Port:     5432,
				Name:     "main-db",
				User:     "postgres",
				Password: "password",
				Charset:  "UTF8",
			},
			{
				PoolName: "reporting",
				Host:     "reporting.internal",
				Port:     5433,
				Name:     "reporting-db",
				User:     "readonly",
				Password: "password",
			},
		},
	}
}

// TestSetupPoolRegistry verifies a valid config section yields a registry
// with every target registered.
func TestSetupPoolRegistry(t *testing.T) {
	registry, err := dbx.SetupPoolRegistry(validDatabaseConfig(), &stubDriver{})
	require.NoError(t, err)

	main, ok := registry.Descriptor("main")
	require.True(t, ok)
	assert.Equal(t, "main-db", main.DBName())
	assert.Equal(t, "UTF8", main.Charset())

	reporting, ok := registry.Descriptor("reporting")
	require.True(t, ok)
	assert.Equal(t, int32(5433), reporting.Port())
	assert.NotEqual(t, main.PoolKey(), reporting.PoolKey())
}

// TestSetupPoolRegistryValidation verifies invalid config sections are
// rejected before any pool is built.
func TestSetupPoolRegistryValidation(t *testing.T) {
	_, err := dbx.SetupPoolRegistry(nil, &stubDriver{})
	require.Error(t, err)

	conf := validDatabaseConfig()
	conf.MaxPoolSize = 0
	_, err = dbx.SetupPoolRegistry(conf, &stubDriver{})
	require.Error(t, err)

	conf = validDatabaseConfig()
	conf.Manager = "threadlocal"
	_, err = dbx.SetupPoolRegistry(conf, &stubDriver{})
	require.Error(t, err)

	conf = validDatabaseConfig()
	conf.Targets[0].User = ""
	_, err = dbx.SetupPoolRegistry(conf, &stubDriver{})
	require.Error(t, err)

	conf = validDatabaseConfig()
	conf.MinPoolSize = 6
	conf.MaxPoolSize = 4
	_, err = dbx.SetupPoolRegistry(conf, &stubDriver{})
	require.Error(t, err)
}

// TestSetupPoolRegistryDuplicateTarget verifies duplicate pool names in the
// config are rejected.
func TestSetupPoolRegistryDuplicateTarget(t *testing.T) {
	conf := validDatabaseConfig()
	conf.Targets = append(conf.Targets, conf.Targets[0])

	_, err := dbx.SetupPoolRegistry(conf, &stubDriver{})
	require.Error(t, err)
}

// TestRegistryPrewarm verifies Prewarm establishes MinSize idle connections
// for every registered target.
func TestRegistryPrewarm(t *testing.T) {
	ctx := context.Background()
	driver := &stubDriver{}
	conf := validDatabaseConfig()
	conf.MinPoolSize = 2

	registry, err := dbx.SetupPoolRegistry(conf, driver)
	require.NoError(t, err)

	registry.Prewarm(ctx)
	assert.Equal(t, 4, registry.Pool().TotalConnections())
	assert.Equal(t, 4, driver.connectCount())

	registry.Shutdown(ctx)
	assert.Equal(t, 0, registry.Pool().TotalConnections())
}
