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

	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines the basic persistence operations of an entity.
type CrudRepository[T any] interface {
	// Save inserts entities without a primary key value and updates the rest.
	Save(ctx context.Context, entity ...*T) error

	// FindByID returns nil, nil when no row has the id.
	FindByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	Count(ctx context.Context) (int, error)

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error
}

// QueryRepository runs query plans and raw filters.
type QueryRepository[T any] interface {
	// Find returns every match; an empty slice when nothing matches.
	Find(ctx context.Context, plan *types.QueryPlan) ([]*T, error)

	// FindOne returns nil when nothing matches and ErrAmbiguousResult when
	// more than one row matches.
	FindOne(ctx context.Context, plan *types.QueryPlan) (*T, error)

	CountBy(ctx context.Context, plan *types.QueryPlan) (int, error)

	ExistsBy(ctx context.Context, plan *types.QueryPlan) (bool, error)

	// Filter runs a raw WHERE clause with positional or named parameters.
	Filter(ctx context.Context, filter *types.QueryFilter) ([]*T, error)
}

// PageQueryRepository defines pagination over a query plan.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, plan *types.QueryPlan, page *types.PageRequest) (*types.Pagination[T], error)
}

// BulkRepository runs single-statement mutations. They bypass the session
// identity map, so tracked entities are not refreshed.
type BulkRepository[T any] interface {
	UpdateAll(ctx context.Context, plan *types.QueryPlan, assignments ...types.Assignment) (int64, error)

	DeleteAll(ctx context.Context, plan *types.QueryPlan) (int64, error)
}

// Repository combines all operations and exposes Bun query builders bound to
// the connection of ctx (session, transaction or database).
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]
	BulkRepository[T]
	Table() *schema.Table
	Dialect() schema.Dialect
	NewSelect(ctx context.Context) *bun.SelectQuery
	NewInsert(ctx context.Context) *bun.InsertQuery
	NewUpdate(ctx context.Context) *bun.UpdateQuery
	NewDelete(ctx context.Context) *bun.DeleteQuery
}
