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
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes the query log hook, e.g. while migrations run.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var (
	selectColor = color.New(color.FgGreen)
	insertColor = color.New(color.FgBlue)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgMagenta)
	otherColor  = color.New(color.FgRed)
	slowColor   = color.New(color.BgYellow, color.FgHiWhite)
	errorColor  = color.New(color.BgRed, color.FgHiWhite)
)

// queryLogHook logs every statement at debug level, slow statements at warn,
// and failed statements at warn. sql.ErrNoRows is not a failure.
type queryLogHook struct {
	logger   Logger
	slowTime time.Duration
}

var _ bun.QueryHook = (*queryLogHook)(nil)

func newQueryLogHook(logger Logger, slowTime time.Duration) *queryLogHook {
	return &queryLogHook{logger: logger, slowTime: slowTime}
}

func (h *queryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || h.logger == nil {
		return
	}
	dur := time.Since(event.StartTime).Round(time.Microsecond)

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone):
		h.logger.Warn(errorColor.Sprint(" query failed "), "duration", dur.String(), "query", event.Query, "error", event.Err.Error())
	case h.slowTime > 0 && dur > h.slowTime:
		h.logger.Warn(slowColor.Sprint(" slow query "), "duration", dur.String(), "query", event.Query)
	default:
		h.logger.Debug(formatOperationColor(event), "duration", dur.String())
	}
}

func formatOperationColor(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return selectColor.Sprint(event.Query)
	case "INSERT":
		return insertColor.Sprint(event.Query)
	case "UPDATE":
		return updateColor.Sprint(event.Query)
	case "DELETE":
		return deleteColor.Sprint(event.Query)
	default:
		return otherColor.Sprint(event.Query)
	}
}
