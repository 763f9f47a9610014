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
package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomoncle/datajpa/utils"
	"github.com/uptrace/bun"
)

// driverFamilies maps every accepted connection type to the dialect that
// serves it.
var driverFamilies = map[string]string{
	"mysql":      "mysql",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pgx":        "postgres",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

func knownTypes() []string {
	names := make([]string, 0, len(driverFamilies))
	for name := range driverFamilies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BaseDatabaseFactory builds the manager behind the global repository
// connection and owns its connect and migrate sequence.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig applies DB_* overrides to cfg and returns a manager for
// it. The manager is not connected yet.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.ConnectionConfig
	f.overrideFromEnv(conn)

	if _, ok := driverFamilies[strings.ToLower(conn.Type)]; !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, knownTypes())
	}
	if conn.LockTimeout < 0 {
		return nil, fmt.Errorf("lock timeout must not be negative, got %s", conn.LockTimeout)
	}

	m := NewDatabaseManager(cfg)
	m.SetLogger(f.logger)
	f.manager = m
	return m, nil
}

// overrideFromEnv lets DB_* variables win over file and default settings.
// Unparsable values leave the setting unchanged.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)

	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = utils.EnvDefaultSeconds("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)
	if ms := utils.EnvDefaultInt("DB_LOCK_TIMEOUT_MS", -1); ms >= 0 {
		cfg.LockTimeout = time.Duration(ms) * time.Millisecond
	}
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
}

// InitializeDatabase opens the pool and, when migrate is set, creates the
// registered entity tables and runs the seed scripts.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, migrate bool) error {
	m := f.manager
	if m == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := m.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate {
		if err := m.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database ready", "migrations", migrate)
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager { return f.manager }

// GetDB is nil until CreateFromConfig and InitializeDatabase have run.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if m := f.manager; m != nil {
		return m.GetDB()
	}
	return nil
}

// SetLogger replaces the logger here and on the manager built so far.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if m := f.manager; m != nil {
		m.SetLogger(logger)
	}
}

// Close releases the pool; a factory that never built a manager is a no-op.
func (f *BaseDatabaseFactory) Close() error {
	if m := f.manager; m != nil {
		return m.Disconnect()
	}
	return nil
}

// GetHealthStatus pings the database. Without a manager the status is
// unhealthy with an explanatory LastError.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if m := f.manager; m != nil {
		return m.HealthCheck(ctx)
	}
	return &HealthStatus{LastError: "database manager not initialized", LastCheckTime: time.Now()}
}

// GetStats reports pool statistics, zero valued without a manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if m := f.manager; m != nil {
		return m.GetStats()
	}
	return &DBStats{}
}
