package configx_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/godbcore/go-db-core/pkg/configx"
)

// Shared configuration content
var configContent = `
name: "TestApp"
environment: "development"
version: "latest"
logging:
  level: "debug"
database:
  manager: "shared"
  minPoolSize: 2
  maxPoolSize: 10
  maxConnAgeSeconds: 1800
  queryTimeoutMillis: 5000
  targets:
    - poolName: "main"
      host: "localhost"
      port: 5432
      name: "main-db"
      user: "postgres"
      password: "password"
      charset: "UTF8"
    - poolName: "reporting"
      host: "reporting.internal"
      port: 5433
      name: "reporting-db"
      user: "readonly"
      password: "password"
`

type TestConfiguration struct {
	configx.BaseConfig `mapstructure:",squash"`
}

func createTestConfigFile(t *testing.T, content string) string {
	file, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	defer file.Close()

	_, err = file.WriteString(content)
	if err != nil {
		t.Fatalf("Failed to write to temp config file: %v", err)
	}

	return file.Name()
}

func TestLoadConfigFromFile(t *testing.T) {
	configFilePath := createTestConfigFile(t, configContent)
	defer os.Remove(configFilePath)

	var cfg TestConfiguration
	err := configx.ReadConfiguration(configFilePath, &cfg)
	assert.NoError(t, err)
	assert.Equal(t, "TestApp", cfg.GetServiceName())
	assert.Equal(t, "development", cfg.GetEnvironment())
	assert.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)

	dbConf := cfg.GetDatabaseConfig()
	assert.NotNil(t, dbConf)
	assert.Equal(t, "shared", dbConf.Manager)
	assert.Equal(t, 2, dbConf.MinPoolSize)
	assert.Equal(t, 10, dbConf.MaxPoolSize)
	assert.Equal(t, 1800, dbConf.MaxConnAgeSeconds)
	assert.Equal(t, 5000, dbConf.QueryTimeoutMillis)
	assert.Len(t, dbConf.Targets, 2)
	assert.Equal(t, "main", dbConf.Targets[0].PoolName)
	assert.Equal(t, int32(5432), dbConf.Targets[0].Port)
	assert.Equal(t, "UTF8", dbConf.Targets[0].Charset)
	assert.Equal(t, "reporting.internal", dbConf.Targets[1].Host)
	assert.Equal(t, "", dbConf.Targets[1].Charset)
}

func TestEnvVariableOverridesConfig(t *testing.T) {
	configFilePath := createTestConfigFile(t, configContent)
	defer os.Remove(configFilePath)

	// Set environment variable to override the manager strategy
	os.Setenv("DATABASE_MANAGER", "ephemeral")
	defer os.Unsetenv("DATABASE_MANAGER")

	var cfg TestConfiguration
	err := configx.ReadConfiguration(configFilePath, &cfg)
	assert.NoError(t, err)
	assert.Equal(t, "TestApp", cfg.GetServiceName())
	assert.Equal(t, "ephemeral", cfg.GetDatabaseConfig().Manager) // Expecting overridden value
	assert.Equal(t, 10, cfg.GetDatabaseConfig().MaxPoolSize)
}

func TestIsLocalEnvironment(t *testing.T) {
	cfg := TestConfiguration{BaseConfig: configx.BaseConfig{Environment: "local"}}
	assert.True(t, cfg.IsLocalEnvironment())

	cfg = TestConfiguration{BaseConfig: configx.BaseConfig{Environment: "PROD"}}
	assert.False(t, cfg.IsLocalEnvironment())
}
