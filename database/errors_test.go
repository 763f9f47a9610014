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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		ok   bool
		kind SQLError
	}{
		{"no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql fk child", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, true, ForeignKeyViolationErr},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, true, LockTimeoutErr},
		{"mysql nowait", &mysql.MySQLError{Number: 3572, Message: "Statement aborted because lock(s) could not be acquired"}, true, LockTimeoutErr},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true, DeadlockErr},
		{"pq unique", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq lock not available", fmt.Errorf("select: %w", &pq.Error{Code: "55P03"}), true, LockTimeoutErr},
		{"pgx fk", &pgconn.PgError{Code: "23503"}, true, ForeignKeyViolationErr},
		{"pgx not null", &pgconn.PgError{Code: "23502"}, true, NotNullViolationErr},
		{"pgx deadlock", &pgconn.PgError{Code: "40P01"}, true, DeadlockErr},
		{"sqlite fk", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), true, ForeignKeyViolationErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: teams.name"), true, DuplicateKeyErr},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true, LockTimeoutErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: members (1)"), true, NoTableErr},
		{"unrelated", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, kind := IsSqlError(tc.err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.kind, kind, kind.String())
		})
	}
}

func TestIsSqlErrorNil(t *testing.T) {
	ok, kind := IsSqlError(nil)
	assert.False(t, ok)
	assert.Equal(t, UnknownErr, kind)
}

func TestSQLErrorPredicates(t *testing.T) {
	assert.True(t, ForeignKeyViolationErr.IsConstraintViolation())
	assert.True(t, DuplicateKeyErr.IsConstraintViolation())
	assert.False(t, LockTimeoutErr.IsConstraintViolation())
	assert.True(t, LockTimeoutErr.IsLockFailure())
	assert.True(t, DeadlockErr.IsLockFailure())
	assert.False(t, NoRowsErr.IsLockFailure())
}
