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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db     *bun.DB
	table  *schema.Table
	logger database.Logger
}

// NewRepository returns a generic repository for the Bun model T.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return newBaseRepository[T](db)
}

func newBaseRepository[T any](db *bun.DB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{
		db:     db,
		table:  db.Table(reflect.TypeOf((*T)(nil)).Elem()),
		logger: database.GetLogger(),
	}
}

func (r *baseRepositoryImpl[T]) Table() *schema.Table { return r.table }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect(ctx context.Context) *bun.SelectQuery {
	return r.conn(ctx).NewSelect()
}

func (r *baseRepositoryImpl[T]) NewInsert(ctx context.Context) *bun.InsertQuery {
	return r.conn(ctx).NewInsert()
}

func (r *baseRepositoryImpl[T]) NewUpdate(ctx context.Context) *bun.UpdateQuery {
	return r.conn(ctx).NewUpdate()
}

func (r *baseRepositoryImpl[T]) NewDelete(ctx context.Context) *bun.DeleteQuery {
	return r.conn(ctx).NewDelete()
}

// conn returns the connection of ctx without flushing. A closed session still
// yields its transaction so the query fails with sql.ErrTxDone.
func (r *baseRepositoryImpl[T]) conn(ctx context.Context) bun.IDB {
	if s := SessionFromContext(ctx); s != nil {
		return s.tx
	}
	if tx, ok := extractTx(ctx); ok {
		return tx
	}
	return r.db
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity ...*T) error {
	sc, err := getScope(ctx, r.db, false)
	if err != nil {
		return err
	}
	for _, e := range entity {
		if e == nil {
			continue
		}
		if err := r.save(ctx, sc.conn, e); err != nil {
			return fmt.Errorf("failed to save %s: %w", r.table.Name, err)
		}
		if sc.session != nil {
			sc.session.track(r.table, reflect.ValueOf(e))
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) save(ctx context.Context, conn bun.IDB, e *T) error {
	if r.isNew(e) {
		_, err := conn.NewInsert().Model(e).Exec(ctx)
		return translateError(err)
	}

	res, err := conn.NewUpdate().Model(e).WherePK().Exec(ctx)
	if err != nil {
		return translateError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	// MySQL reports zero affected rows for an update that changes nothing.
	exists, err := conn.NewSelect().Model(e).WherePK().Exists(ctx)
	if err != nil || exists {
		return translateError(err)
	}
	_, err = conn.NewInsert().Model(e).Exec(ctx)
	return translateError(err)
}

func (r *baseRepositoryImpl[T]) isNew(e *T) bool {
	if len(r.table.PKs) == 0 {
		return true
	}
	strct := reflect.ValueOf(e).Elem()
	for _, pk := range r.table.PKs {
		if pk.HasZeroValue(strct) {
			return true
		}
	}
	return false
}

func (r *baseRepositoryImpl[T]) singlePK() (*schema.Field, error) {
	if len(r.table.PKs) != 1 {
		return nil, fmt.Errorf("%s: expected a single primary key, found %d", r.table.Name, len(r.table.PKs))
	}
	return r.table.PKs[0], nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	pk, err := r.singlePK()
	if err != nil {
		return nil, err
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	err = sc.conn.NewSelect().
		Model(entity).
		Where("?TableAlias.? = ?", bun.Ident(pk.Name), id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return r.attach(sc, entity, false, nil), nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.Find(ctx, nil)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	return r.CountBy(ctx, nil)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return nil
	}
	sc, err := getScope(ctx, r.db, false)
	if err != nil {
		return err
	}
	if _, err := sc.conn.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Name, translateError(err))
	}
	if sc.session != nil {
		sc.session.untrack(r.table, reflect.ValueOf(entity))
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	pk, err := r.singlePK()
	if err != nil {
		return err
	}
	sc, err := getScope(ctx, r.db, false)
	if err != nil {
		return err
	}
	_, err = sc.conn.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(pk.Name), id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Name, translateError(err))
	}
	if sc.session != nil {
		sc.session.untrackID(r.table, id)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, plan *types.QueryPlan) ([]*T, error) {
	plan, err := r.prepare(plan)
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0)
	if plan.Unsatisfiable() {
		return items, nil
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	q, err := r.selectQuery(sc, &items, plan)
	if err != nil {
		return nil, err
	}
	if plan.GetLimit() > 0 {
		q = q.Limit(plan.GetLimit())
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translateError(err)
	}
	return r.attachAll(sc, items, plan.IsReadOnly(), plan.GetRelations()), nil
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, plan *types.QueryPlan) (*T, error) {
	items, err := r.Find(ctx, plan.Clone().Limit(2))
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return nil, ambiguousResult(len(items))
	}
}

func (r *baseRepositoryImpl[T]) CountBy(ctx context.Context, plan *types.QueryPlan) (int, error) {
	plan, err := r.prepare(plan)
	if err != nil {
		return 0, err
	}
	if plan.Unsatisfiable() {
		return 0, nil
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return 0, err
	}
	return r.count(ctx, sc.conn, plan)
}

func (r *baseRepositoryImpl[T]) count(ctx context.Context, conn bun.IDB, plan *types.QueryPlan) (int, error) {
	q := applyConditions(conn.NewSelect().Model((*T)(nil)), plan.GetConditions(), true)
	n, err := q.Count(ctx)
	return n, translateError(err)
}

func (r *baseRepositoryImpl[T]) ExistsBy(ctx context.Context, plan *types.QueryPlan) (bool, error) {
	plan, err := r.prepare(plan)
	if err != nil {
		return false, err
	}
	if plan.Unsatisfiable() {
		return false, nil
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return false, err
	}
	q := applyConditions(sc.conn.NewSelect().Model((*T)(nil)), plan.GetConditions(), true)
	ok, err := q.Exists(ctx)
	return ok, translateError(err)
}

func (r *baseRepositoryImpl[T]) Filter(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	if filter == nil {
		return r.FindAll(ctx)
	}
	where, args, err := filter.Compile()
	if err != nil {
		return nil, err
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0)
	q := sc.conn.NewSelect().Model(&items)
	if strings.TrimSpace(where) != "" {
		q = q.Where(where, args...)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translateError(err)
	}
	return r.attachAll(sc, items, false, nil), nil
}

// Page returns one page of the plan's result. The total comes from the page
// content when that determines it, otherwise from a count query.
func (r *baseRepositoryImpl[T]) Page(ctx context.Context, plan *types.QueryPlan, page *types.PageRequest) (*types.Pagination[T], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(0, 0)
	}
	plan, err := r.prepare(plan.Clone().OrderBy(page.GetOrders()...))
	if err != nil {
		return nil, err
	}
	size, offset := page.GetPageSize(), page.GetOffset()
	result := types.NewDefaultPagination[T](page.GetPage(), size)
	if plan.Unsatisfiable() {
		return result, nil
	}

	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0, size)
	q, err := r.selectQuery(sc, &items, plan)
	if err != nil {
		return nil, err
	}
	if err := q.Offset(offset).Limit(size).Scan(ctx); err != nil {
		return nil, translateError(err)
	}
	result.Items = r.attachAll(sc, items, plan.IsReadOnly(), plan.GetRelations())

	switch {
	case offset == 0 && len(items) < size:
		result.Total = len(items)
	case len(items) > 0 && len(items) < size:
		result.Total = offset + len(items)
	default:
		if result.Total, err = r.count(ctx, sc.conn, plan); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *baseRepositoryImpl[T]) UpdateAll(ctx context.Context, plan *types.QueryPlan, assignments ...types.Assignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, fmt.Errorf("bulk update of %s needs at least one assignment", r.table.Name)
	}
	plan, err := r.prepare(plan)
	if err != nil {
		return 0, err
	}
	for _, a := range assignments {
		if !r.table.HasField(a.Field) {
			return 0, planError(&types.UnknownFieldError{Field: a.Field})
		}
	}
	if plan.Unsatisfiable() {
		return 0, nil
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return 0, err
	}

	q := sc.conn.NewUpdate().Model((*T)(nil))
	for _, a := range assignments {
		ident := bun.Ident(a.Field)
		if a.Increment {
			q = q.Set("? = ? + ?", ident, ident, a.Value)
		} else {
			q = q.Set("? = ?", ident, a.Value)
		}
	}
	q = applyConditions(q, plan.GetConditions(), false)
	if len(plan.GetConditions()) == 0 {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk update of %s failed: %w", r.table.Name, translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Debug("Bulk update executed", "table", r.table.Name, "rows", n)
	return n, nil
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context, plan *types.QueryPlan) (int64, error) {
	plan, err := r.prepare(plan)
	if err != nil {
		return 0, err
	}
	if plan.Unsatisfiable() {
		return 0, nil
	}
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return 0, err
	}

	q := applyConditions(sc.conn.NewDelete().Model((*T)(nil)), plan.GetConditions(), false)
	if len(plan.GetConditions()) == 0 {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk delete of %s failed: %w", r.table.Name, translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Debug("Bulk delete executed", "table", r.table.Name, "rows", n)
	return n, nil
}

// prepare defaults a nil plan and validates fields and relations.
func (r *baseRepositoryImpl[T]) prepare(plan *types.QueryPlan) (*types.QueryPlan, error) {
	if plan == nil {
		plan = types.NewQueryPlan()
	}
	if err := plan.Validate(r.table.HasField); err != nil {
		return nil, planError(err)
	}
	for _, rel := range plan.GetRelations() {
		if _, ok := r.table.Relations[rel]; !ok {
			return nil, fmt.Errorf("%w: relation %q on %s", ErrUnknownField, rel, r.table.Name)
		}
	}
	return plan, nil
}

func (r *baseRepositoryImpl[T]) selectQuery(sc scope, dest *[]*T, plan *types.QueryPlan) (*bun.SelectQuery, error) {
	q := sc.conn.NewSelect().Model(dest)
	for _, rel := range plan.GetRelations() {
		q = q.Relation(rel)
	}
	q = applyConditions(q, plan.GetConditions(), true)
	q = applyOrders(q, plan.GetOrders())

	if plan.GetLock() == types.LockNone {
		return q, nil
	}
	if !sc.inTx {
		return nil, fmt.Errorf("%w: %s lock on %s", ErrTransactionRequired, plan.GetLock().Name(), r.table.Name)
	}
	if clause := lockClause(sc.conn.Dialect().Name(), plan); clause != "" {
		q = q.For(clause)
	} else {
		r.logger.Debug("Row lock not supported by dialect, relying on transaction isolation", "table", r.table.Name)
	}
	return q, nil
}

func (r *baseRepositoryImpl[T]) attach(sc scope, entity *T, readOnly bool, relations []string) *T {
	if sc.session == nil || readOnly {
		return entity
	}
	loaded := reflect.ValueOf(entity)
	tracked := sc.session.attach(r.table, loaded)
	if tracked.Pointer() != loaded.Pointer() {
		r.mergeRelations(tracked, loaded, relations)
	}
	return tracked.Interface().(*T)
}

func (r *baseRepositoryImpl[T]) attachAll(sc scope, items []*T, readOnly bool, relations []string) []*T {
	if sc.session == nil || readOnly {
		return items
	}
	for i, item := range items {
		items[i] = r.attach(sc, item, false, relations)
	}
	return items
}

// mergeRelations copies relations fetched by the query onto an instance the
// session already tracks. A relation already set in memory is kept, so a
// pending ChangeTeam survives. Relations are not columns and the snapshot is
// unchanged.
func (r *baseRepositoryImpl[T]) mergeRelations(dst, src reflect.Value, relations []string) {
	for _, name := range relations {
		rel, ok := r.table.Relations[name]
		if !ok {
			continue
		}
		field := rel.Field.Value(dst.Elem())
		if field.IsZero() {
			field.Set(rel.Field.Value(src.Elem()))
		}
	}
}
