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

package datajpa

import (
	"context"
	"sync"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// Find returns entities matching the plan.
	Find(ctx context.Context, plan *types.QueryPlan) ([]*T, error)

	// FindOne returns the single entity matching the plan, or nil.
	FindOne(ctx context.Context, plan *types.QueryPlan) (*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Count(ctx context.Context, plan *types.QueryPlan) (int, error)

	// Page returns a paginated list of entities matching the plan.
	Page(ctx context.Context, plan *types.QueryPlan, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts new entities and updates persisted ones.
	Save(ctx context.Context, model ...*T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// UpdateAll applies assignments to every row matching the plan.
	UpdateAll(ctx context.Context, plan *types.QueryPlan, assignments ...types.Assignment) (int64, error)

	DeleteAll(ctx context.Context, plan *types.QueryPlan) (int64, error)

	// InSession runs fn in a session that commits when fn returns nil.
	InSession(ctx context.Context, fn func(ctx context.Context) error) error

	// SelectBuilder returns a Bun select query on the connection of ctx.
	SelectBuilder(ctx context.Context) *bun.SelectQuery

	InsertBuilder(ctx context.Context) *bun.InsertQuery

	UpdateBuilder(ctx context.Context) *bun.UpdateQuery

	DeleteBuilder(ctx context.Context) *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	db   *bun.DB
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service backed by the global database connection,
// resolved on first use.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{db: db}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		if s.db == nil {
			s.db = database.GetDB()
		}
		s.repo = repository.NewRepository[T](s.db)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().FindAll(ctx)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, plan *types.QueryPlan) ([]*T, error) {
	return s.baseRepo().Find(ctx, plan)
}

func (s *baseServiceImpl[T]) FindOne(ctx context.Context, plan *types.QueryPlan) (*T, error) {
	return s.baseRepo().FindOne(ctx, plan)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.baseRepo().Filter(ctx, filter)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, plan *types.QueryPlan) (int, error) {
	return s.baseRepo().CountBy(ctx, plan)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, plan *types.QueryPlan, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, plan, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Save(ctx, model...)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) UpdateAll(ctx context.Context, plan *types.QueryPlan, assignments ...types.Assignment) (int64, error) {
	return s.baseRepo().UpdateAll(ctx, plan, assignments...)
}

func (s *baseServiceImpl[T]) DeleteAll(ctx context.Context, plan *types.QueryPlan) (int64, error) {
	return s.baseRepo().DeleteAll(ctx, plan)
}

func (s *baseServiceImpl[T]) InSession(ctx context.Context, fn func(ctx context.Context) error) error {
	s.baseRepo()
	return repository.RunInSession(ctx, s.db, func(ctx context.Context, _ *repository.Session) error {
		return fn(ctx)
	})
}

func (s *baseServiceImpl[T]) SelectBuilder(ctx context.Context) *bun.SelectQuery {
	return s.baseRepo().NewSelect(ctx).Model((*T)(nil))
}

func (s *baseServiceImpl[T]) InsertBuilder(ctx context.Context) *bun.InsertQuery {
	return s.baseRepo().NewInsert(ctx)
}

func (s *baseServiceImpl[T]) UpdateBuilder(ctx context.Context) *bun.UpdateQuery {
	return s.baseRepo().NewUpdate(ctx).Model((*T)(nil))
}

func (s *baseServiceImpl[T]) DeleteBuilder(ctx context.Context) *bun.DeleteQuery {
	return s.baseRepo().NewDelete(ctx).Model((*T)(nil))
}
