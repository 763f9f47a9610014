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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
logging:
  level: debug
database:
  type: postgres
  host: db.internal
  port: 5432
  username: app
  password: secret
  dbname: members
  lock_timeout: 2s
migrate:
  on_startup: false
seed:
  environment: dev
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, ":memory:", cfg.Database.DBName)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Migrate.OnStartup)
	assert.True(t, cfg.Migrate.ForeignKeys)
	assert.Equal(t, "prod", cfg.Seed.Environment)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("DATAJPA_DATABASE_PORT", "6543")
	t.Setenv("DATAJPA_SEED_ON_STARTUP", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Migrate.OnStartup)
	assert.True(t, cfg.Seed.OnStartup)
	assert.Equal(t, "dev", cfg.Seed.Environment)
	assert.Equal(t, 100, cfg.Database.MaxOpenConns)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("DATAJPA_DATABASE_PORT", "70000")
	_, err = Load("")
	assert.ErrorContains(t, err, "database.port")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"empty type", func(c *Config) { c.Database.Type = " " }, false},
		{"negative pool", func(c *Config) { c.Database.MaxOpenConns = -1 }, false},
		{"negative lock timeout", func(c *Config) { c.Database.LockTimeout = -time.Second }, false},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Database: DatabaseConfig{Type: "sqlite"}, Logging: LoggingConfig{Format: "json"}}
			tc.mutate(cfg)
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestConfigLoader(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	dbCfg := cfg.ConfigLoader()
	conn := dbCfg.ConnectionConfig
	assert.Equal(t, "postgres", conn.Type)
	assert.Equal(t, 5432, conn.Port)
	assert.Equal(t, "secret", conn.Password)
	assert.Equal(t, "members", conn.DBName)
	assert.Equal(t, 2*time.Second, conn.LockTimeout)
	assert.False(t, dbCfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.True(t, dbCfg.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "dev", dbCfg.DataInitConfig.Environment)
	assert.Equal(t, "configs/sql", dbCfg.DataInitConfig.Filepath)
}

func TestDumpMasksPassword(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.Equal(t, "secret", cfg.Database.Password)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, masked, decoded.Database.Password)
	assert.Equal(t, "db.internal", decoded.Database.Host)

	reloaded, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, reloaded.Database.LockTimeout)
}
