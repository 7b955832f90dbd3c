package postgres

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/godbcore/go-db-core/pkg/dbx"
	"github.com/godbcore/go-db-core/pkg/logx"
	"github.com/godbcore/go-db-core/test"
)

const (
	postgresContainerImage = "docker.io/postgres:16-alpine"
	postgresContainerPort  = "5432/tcp"

	MainDbName     = "main-db"
	MainDbUser     = "postgres"
	MainDbPassword = "password"
)

// PostgresContainer represents the postgres Container type used in the module.
type PostgresContainer struct {
	Container  *postgres.PostgresContainer
	MappedPort nat.Port
	Host       string
	DbName     string
	DbUser     string
	DbPassword string
}

// StartPostgresContainer creates a postgres container initialized with the
// test schema.
func StartPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	test.ConfigTestRootPath()

	pg, err := postgres.Run(ctx,
		postgresContainerImage,
		postgres.WithInitScripts(filepath.Join("test/testcontainer/postgres", "init_schema.sql")),
		postgres.WithDatabase(MainDbName),
		postgres.WithUsername(MainDbUser),
		postgres.WithPassword(MainDbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second)),
	)

	require.NoError(t, err)
	require.NotNil(t, pg)

	err = pg.Start(ctx)
	require.NoError(t, err)

	mappedPort, err := pg.MappedPort(ctx, postgresContainerPort)
	require.NoError(t, err)

	host, err := pg.Host(ctx)
	require.NoError(t, err)

	log.Printf("Postgres running at %s:%s", host, mappedPort.Port())

	return &PostgresContainer{
		Container:  pg,
		MappedPort: mappedPort,
		Host:       host,
		DbName:     MainDbName,
		DbUser:     MainDbUser,
		DbPassword: MainDbPassword,
	}
}

// Descriptor - connection descriptor pointing at the running container.
func (c *PostgresContainer) Descriptor(t *testing.T) dbx.ConnDescriptor {
	desc, err := dbx.NewConnDescriptor(
		c.Host,
		int32(c.MappedPort.Int()),
		c.DbName,
		c.DbUser,
		c.DbPassword,
		"UTF8",
	)
	require.NoError(t, err)

	return desc
}

func (c *PostgresContainer) StopContainer(ctx context.Context, t *testing.T) error {
	logx.GetLogger().LogInfo(ctx, "Terminating the Container ....")

	timeout := time.Second * 3

	err := c.Container.Stop(ctx, &timeout)
	if err != nil {
		require.NoError(t, err, fmt.Sprintf("error stopping the Container %v", err))
		return err
	}

	return nil
}
