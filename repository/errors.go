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

package repository

import (
	"errors"
	"fmt"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/types"
)

var (
	// ErrAmbiguousResult is returned by single-result finds that match more than one row.
	ErrAmbiguousResult = errors.New("query did not return a unique result")
	// ErrConstraintViolation wraps unique, foreign key, not-null and check failures.
	ErrConstraintViolation = database.ErrConstraintViolation
	// ErrLockTimeout is returned when the store gives up waiting for a row lock.
	ErrLockTimeout = errors.New("lock could not be acquired")
	// ErrTransactionRequired is returned by locking reads outside a transaction.
	ErrTransactionRequired = errors.New("transaction required")
	// ErrUnknownField is returned when a plan names a column the model does not map.
	ErrUnknownField = errors.New("unknown field")
	// ErrSessionClosed is returned when a committed or rolled back session is used.
	ErrSessionClosed = errors.New("session closed")
)

// translateError maps driver errors onto the sentinels above. The driver
// error stays in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrLockTimeout) {
		return err
	}
	ok, kind := database.IsSqlError(err)
	if !ok {
		return err
	}
	switch {
	case kind.IsConstraintViolation():
		return fmt.Errorf("%w (%s): %w", ErrConstraintViolation, kind, err)
	case kind.IsLockFailure():
		return fmt.Errorf("%w (%s): %w", ErrLockTimeout, kind, err)
	}
	return err
}

func ambiguousResult(n int) error {
	return fmt.Errorf("%w: expected at most 1 row, found at least %d", ErrAmbiguousResult, n)
}

func planError(err error) error {
	var unknown *types.UnknownFieldError
	if errors.As(err, &unknown) {
		return fmt.Errorf("%w: %w", ErrUnknownField, err)
	}
	return err
}
