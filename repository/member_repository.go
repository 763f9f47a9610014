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

	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// MemberRepository is the query façade over members.
type MemberRepository interface {
	Repository[entity.Member]

	// FindByUsernameAndAgeGreaterThan matches username exactly and age strictly above age.
	FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error)

	FindByUsername(ctx context.Context, username string) ([]*entity.Member, error)

	// FindOptionalByUsername reports whether a member was found.
	FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error)

	// FindMemberByUsername returns nil when no member has the username.
	FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error)

	// FindUser binds named parameters :username and :age.
	FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error)

	FindUserNameList(ctx context.Context) ([]string, error)

	// FindMemberDto projects every member with its team name.
	FindMemberDto(ctx context.Context) ([]entity.MemberDto, error)

	FindByNames(ctx context.Context, names []string) ([]*entity.Member, error)

	FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[entity.Member], error)

	// BulkAgePlus increments the age of every member aged age or older and
	// returns the number of rows changed. Tracked members are not refreshed.
	BulkAgePlus(ctx context.Context, age int) (int64, error)

	FindAllWithTeam(ctx context.Context) ([]*entity.Member, error)

	// FindReadOnlyByUsername returns an untracked member; changes to it are
	// never flushed.
	FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error)

	// FindLockByUsername locks the matching rows until the transaction ends.
	// It needs a session or transaction in ctx.
	FindLockByUsername(ctx context.Context, username string) ([]*entity.Member, error)
}

type memberRepositoryImpl struct {
	*baseRepositoryImpl[entity.Member]
}

func NewMemberRepository(db *bun.DB) MemberRepository {
	return &memberRepositoryImpl{baseRepositoryImpl: newBaseRepository[entity.Member](db)}
}

func byUsername(username string) *types.QueryPlan {
	return types.NewQueryPlan().Eq("username", username)
}

func (r *memberRepositoryImpl) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.Find(ctx, byUsername(username).Gt("age", age))
}

func (r *memberRepositoryImpl) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.Find(ctx, byUsername(username))
}

func (r *memberRepositoryImpl) FindOptionalByUsername(ctx context.Context, username string) (*entity.Member, bool, error) {
	m, err := r.FindOne(ctx, byUsername(username))
	return m, m != nil, err
}

func (r *memberRepositoryImpl) FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.FindOne(ctx, byUsername(username))
}

func (r *memberRepositoryImpl) FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.Filter(ctx, types.NewNamedQueryFilter(
		"username = :username AND age = :age",
		map[string]interface{}{"username": username, "age": age},
	))
}

func (r *memberRepositoryImpl) FindUserNameList(ctx context.Context) ([]string, error) {
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	err = sc.conn.NewSelect().
		Model((*entity.Member)(nil)).
		Column("username").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, translateError(err)
	}
	return names, nil
}

func (r *memberRepositoryImpl) FindMemberDto(ctx context.Context) ([]entity.MemberDto, error) {
	sc, err := getScope(ctx, r.db, true)
	if err != nil {
		return nil, err
	}
	dtos := make([]entity.MemberDto, 0)
	err = sc.conn.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("?TableAlias.id, ?TableAlias.username").
		ColumnExpr("tm.name AS team_name").
		Join("LEFT JOIN teams AS tm ON tm.id = ?TableAlias.team_id").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx, &dtos)
	if err != nil {
		return nil, translateError(err)
	}
	return dtos, nil
}

func (r *memberRepositoryImpl) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	return r.Find(ctx, types.NewQueryPlan().In("username", names))
}

func (r *memberRepositoryImpl) FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[entity.Member], error) {
	return r.Page(ctx, types.NewQueryPlan().Eq("age", age), page)
}

func (r *memberRepositoryImpl) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	return r.UpdateAll(ctx, types.NewQueryPlan().Gte("age", age), types.Increment("age", 1))
}

func (r *memberRepositoryImpl) FindAllWithTeam(ctx context.Context) ([]*entity.Member, error) {
	return r.Find(ctx, types.NewQueryPlan().With("Team").OrderBy(types.Asc("id")))
}

func (r *memberRepositoryImpl) FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.FindOne(ctx, byUsername(username).ReadOnly())
}

func (r *memberRepositoryImpl) FindLockByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.Find(ctx, byUsername(username).Lock(types.LockPessimisticWrite))
}
