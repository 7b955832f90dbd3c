package configx

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetLoggingConfig() *LoggingConfig
	GetDatabaseConfig() *DatabaseConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the application and is expected to be in the following YAML format:
/*
name: "TestApp"
environment: "development"
version: "1.0"
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
*/
type BaseConfig struct {
	Name        string          `mapstructure:"name"`
	Environment string          `mapstructure:"environment"`
	Version     string          `mapstructure:"version"`
	Logging     *LoggingConfig  `mapstructure:"logging"`
	Database    *DatabaseConfig `mapstructure:"database"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig - pool sizing, connection aging and manager strategy for the
// query-execution layer. The core consumes these as plain settings.
type DatabaseConfig struct {
	Manager            string           `mapstructure:"manager" validate:"omitempty,oneof=shared ephemeral"`
	MinPoolSize        int              `mapstructure:"minPoolSize" validate:"gte=0,ltefield=MaxPoolSize"`
	MaxPoolSize        int              `mapstructure:"maxPoolSize" validate:"gt=0"`
	MaxConnAgeSeconds  int              `mapstructure:"maxConnAgeSeconds" validate:"gte=0"`
	QueryTimeoutMillis int              `mapstructure:"queryTimeoutMillis" validate:"gte=0"`
	Targets            []DatabaseTarget `mapstructure:"targets" validate:"dive"`
}

// DatabaseTarget - a named target database whose descriptor is registered in
// the pool registry under PoolName.
type DatabaseTarget struct {
	PoolName string `mapstructure:"poolName" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int32  `mapstructure:"port" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Charset  string `mapstructure:"charset"`
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetDatabaseConfig() *DatabaseConfig {
	return cfg.Database
}
