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
	"context"

	"github.com/uptrace/bun"
)

type (
	txKey      struct{}
	sessionKey struct{}
)

// WithTx returns a context whose repository calls run on tx. Entities loaded
// this way are not tracked; use a Session for that.
func WithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func extractTx(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

func injectSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session bound to ctx, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// scope is where a repository call executes.
type scope struct {
	conn    bun.IDB
	session *Session
	inTx    bool
}

// getScope resolves the connection for ctx: the session transaction, a raw
// transaction from WithTx, or the database. In FlushModeAuto pending session
// changes are flushed when flush is set.
func getScope(ctx context.Context, db *bun.DB, flush bool) (scope, error) {
	if s := SessionFromContext(ctx); s != nil {
		if err := s.checkOpen(); err != nil {
			return scope{}, err
		}
		if flush && s.FlushMode() == FlushModeAuto {
			if err := s.Flush(ctx); err != nil {
				return scope{}, err
			}
		}
		return scope{conn: s.tx, session: s, inTx: true}, nil
	}
	if tx, ok := extractTx(ctx); ok {
		return scope{conn: tx, inTx: true}, nil
	}
	return scope{conn: db}, nil
}
