/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the application configuration from an optional YAML
// file, a .env file and DATAJPA_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
	"gopkg.in/yaml.v3"
)

const (
	envFile   = ".env"
	envPrefix = "DATAJPA"
	masked    = "******"
)

type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Migrate  MigrateConfig  `mapstructure:"migrate" yaml:"migrate"`
	Seed     SeedConfig     `mapstructure:"seed" yaml:"seed"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

type DatabaseConfig struct {
	Type            string        `mapstructure:"type" yaml:"type"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Username        string        `mapstructure:"username" yaml:"username"`
	Password        string        `mapstructure:"password" yaml:"password"`
	DBName          string        `mapstructure:"dbname" yaml:"dbname"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time" yaml:"slow_query_time"`
	QueryLog        bool          `mapstructure:"query_log" yaml:"query_log"`
}

type MigrateConfig struct {
	OnStartup   bool `mapstructure:"on_startup" yaml:"on_startup"`
	ForeignKeys bool `mapstructure:"foreign_keys" yaml:"foreign_keys"`
}

type SeedConfig struct {
	OnStartup   bool   `mapstructure:"on_startup" yaml:"on_startup"`
	OnMigration bool   `mapstructure:"on_migration" yaml:"on_migration"`
	Path        string `mapstructure:"path" yaml:"path"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

// Load reads path when it is not empty, then applies environment variables.
// Variables from .env never override the process environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := database.DefaultConfig()
	conn := defaults.ConnectionConfig

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("database.type", conn.Type)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", conn.DBName)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", conn.MaxIdleConns)
	v.SetDefault("database.max_open_conns", conn.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", conn.ConnMaxLifetime)
	v.SetDefault("database.connect_timeout", conn.ConnectTimeout)
	v.SetDefault("database.lock_timeout", conn.LockTimeout)
	v.SetDefault("database.slow_query_time", conn.SlowQueryTime)
	v.SetDefault("database.query_log", conn.EnableQueryLog)

	v.SetDefault("migrate.on_startup", defaults.DataMigrateConfig.EnableMigrateOnStartup)
	v.SetDefault("migrate.foreign_keys", defaults.DataMigrateConfig.EnableForeignKey)

	v.SetDefault("seed.on_startup", false)
	v.SetDefault("seed.on_migration", false)
	v.SetDefault("seed.path", defaults.DataInitConfig.Filepath)
	v.SetDefault("seed.environment", defaults.DataInitConfig.Environment)
}

// Validate checks values the database layer cannot recover from.
func (c *Config) Validate() error {
	db := c.Database
	if strings.TrimSpace(db.Type) == "" {
		return fmt.Errorf("database.type must be set")
	}
	if db.Port < 0 || db.Port > 65535 {
		return fmt.Errorf("database.port out of range: %d", db.Port)
	}
	if db.MaxOpenConns < 0 || db.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	if db.LockTimeout < 0 {
		return fmt.Errorf("database.lock_timeout must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// ConfigLoader converts the configuration for database.InitDB.
func (c *Config) ConfigLoader() *database.Config {
	cfg := database.DefaultConfig()
	conn := &cfg.ConnectionConfig
	conn.Type = c.Database.Type
	conn.Host = c.Database.Host
	conn.Port = c.Database.Port
	conn.Username = c.Database.Username
	conn.Password = c.Database.Password
	conn.DBName = c.Database.DBName
	conn.SSLMode = c.Database.SSLMode
	conn.MaxIdleConns = c.Database.MaxIdleConns
	conn.MaxOpenConns = c.Database.MaxOpenConns
	conn.ConnMaxLifetime = c.Database.ConnMaxLifetime
	conn.ConnectTimeout = c.Database.ConnectTimeout
	conn.LockTimeout = c.Database.LockTimeout
	conn.SlowQueryTime = c.Database.SlowQueryTime
	conn.EnableQueryLog = c.Database.QueryLog

	cfg.DataMigrateConfig.EnableMigrateOnStartup = c.Migrate.OnStartup
	cfg.DataMigrateConfig.EnableForeignKey = c.Migrate.ForeignKeys
	cfg.DataInitConfig.AutoInitOnStartup = c.Seed.OnStartup
	cfg.DataInitConfig.AutoInitOnMigration = c.Seed.OnMigration
	cfg.DataInitConfig.Filepath = c.Seed.Path
	cfg.DataInitConfig.Environment = c.Seed.Environment
	return cfg
}

// ApplyLogging configures the global log level and console format.
func (c *Config) ApplyLogging() {
	utils.ConfigureLogLevel(c.Logging.Level)
	utils.ConfigureConsoleLogFormat(c.Logging.Format)
}

// Dump renders the configuration as YAML with the password masked.
func (c *Config) Dump() ([]byte, error) {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = masked
	}
	return yaml.Marshal(&out)
}
