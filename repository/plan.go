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
	"reflect"

	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type whereQuery[Q any] interface {
	Where(query string, args ...interface{}) Q
}

// applyConditions appends the plan conditions joined by AND. SELECT queries
// qualify columns with the table alias so joined relations cannot make them
// ambiguous; UPDATE and DELETE use bare column names.
func applyConditions[Q whereQuery[Q]](q Q, conditions []types.Condition, qualified bool) Q {
	col := "?"
	if qualified {
		col = "?TableAlias.?"
	}
	for _, c := range conditions {
		ident := bun.Ident(c.Field)
		switch {
		case c.Comparator == types.In:
			q = q.Where(col+" IN (?)", ident, bun.In(c.Value))
		case isNil(c.Value) && c.Comparator == types.Equal:
			q = q.Where(col+" IS NULL", ident)
		case isNil(c.Value) && c.Comparator == types.NotEqual:
			q = q.Where(col+" IS NOT NULL", ident)
		default:
			q = q.Where(col+" "+c.Comparator.String()+" ?", ident, c.Value)
		}
	}
	return q
}

func applyOrders(q *bun.SelectQuery, orders []types.Order) *bun.SelectQuery {
	for _, o := range orders {
		q = q.OrderExpr("?TableAlias.? "+o.Direction.String(), bun.Ident(o.Field))
	}
	return q
}

// lockClause renders the FOR clause of a locking read, or "" when the
// dialect has no row locks.
func lockClause(d dialect.Name, plan *types.QueryPlan) string {
	mode := plan.GetLock()
	if mode == types.LockNone || d == dialect.SQLite {
		return ""
	}
	clause := mode.String()
	// Postgres refuses to lock the nullable side of an outer join.
	if d == dialect.PG && len(plan.GetRelations()) > 0 {
		clause += " OF ?TableAlias"
	}
	if plan.IsNoWait() {
		clause += " NOWAIT"
	}
	return clause
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
