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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
	"github.com/uptrace/bun"
)

// newTestDB returns a migrated in-memory SQLite database. SQLite runs on a
// single connection, so tests must not query outside an open session.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	dm := database.NewDatabaseManager(database.DefaultConfig())
	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.RunMigrations(ctx))
	t.Cleanup(func() { _ = dm.Disconnect() })
	return dm.GetDB()
}

func saveMembers(t *testing.T, repo MemberRepository, members ...*entity.Member) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), members...))
}

func TestSaveAndFindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	member := entity.NewMember("memberA", 10, nil)
	require.NoError(t, repo.Save(ctx, member))
	require.NotZero(t, member.ID)

	found, err := repo.FindByID(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, member.Equal(found))
	assert.NotSame(t, member, found)

	missing, err := repo.FindByID(ctx, int64(9999))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	member := entity.NewMember("memberA", 10, nil)
	saveMembers(t, repo, member)
	member.Age = 30
	saveMembers(t, repo, member)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.FindByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, found.Age)
}

func TestSaveWithUnknownIDInserts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	saveMembers(t, repo, &entity.Member{ID: 42, Username: "restored", Age: 7})

	found, err := repo.FindByID(ctx, int64(42))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "restored", found.Username)
}

func TestBasicCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	member1 := entity.NewMember("member1", 10, nil)
	member2 := entity.NewMember("member2", 20, nil)
	saveMembers(t, repo, member1, member2)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Delete(ctx, member1))
	require.NoError(t, repo.DeleteByID(ctx, member2.ID))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	gone, err := repo.FindByID(ctx, member1.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFindReturnsEmptySliceOnNoMatch(t *testing.T) {
	repo := NewMemberRepository(newTestDB(t))

	found, err := repo.FindByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

func TestUnknownFieldIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	_, err := repo.Find(ctx, types.NewQueryPlan().Eq("nickname", "x"))
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = repo.Find(ctx, types.NewQueryPlan().OrderBy(types.Desc("nickname")))
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = repo.UpdateAll(ctx, nil, types.Set("nickname", "x"))
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = repo.Find(ctx, types.NewQueryPlan().With("Squad"))
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestConstraintViolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))

	missing := int64(999)
	err := repo.Save(ctx, &entity.Member{Username: "orphan", Age: 1, TeamID: &missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestTeamSavedAfterAssignment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	teams := NewTeamRepository(db)

	team := entity.NewTeam("teamA")
	member := entity.NewMember("AAA", 10, team)
	require.Nil(t, member.TeamID)

	err := repo.Save(ctx, member)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, teams.Save(ctx, team))
	require.NoError(t, repo.Save(ctx, member))
	require.NotNil(t, member.TeamID)
	assert.Equal(t, team.ID, *member.TeamID)

	dtos, err := repo.FindMemberDto(ctx)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	require.NotNil(t, dtos[0].TeamName)
	assert.Equal(t, "teamA", *dtos[0].TeamName)
}

func TestComparatorsAndNulls(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMemberRepository(db)
	teams := NewTeamRepository(db)

	teamA := entity.NewTeam("teamA")
	require.NoError(t, teams.Save(ctx, teamA))
	saveMembers(t, repo,
		entity.NewMember("m10", 10, teamA),
		entity.NewMember("m20", 20, nil),
		entity.NewMember("m30", 30, nil),
	)

	cases := []struct {
		name string
		plan *types.QueryPlan
		want int
	}{
		{"ne", types.NewQueryPlan().Ne("age", 20), 2},
		{"gte", types.NewQueryPlan().Gte("age", 20), 2},
		{"lt", types.NewQueryPlan().Lt("age", 20), 1},
		{"lte", types.NewQueryPlan().Lte("age", 20), 2},
		{"is null", types.NewQueryPlan().Eq("team_id", nil), 2},
		{"is not null", types.NewQueryPlan().Ne("team_id", (*int64)(nil)), 1},
		{"and", types.NewQueryPlan().Gt("age", 10).Lt("age", 30), 1},
		{"limit", types.NewQueryPlan().Limit(2), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := repo.Find(ctx, tc.plan)
			require.NoError(t, err)
			assert.Len(t, found, tc.want)

			if tc.plan.GetLimit() == 0 {
				n, err := repo.CountBy(ctx, tc.plan)
				require.NoError(t, err)
				assert.Equal(t, tc.want, n)
			}
		})
	}

	exists, err := repo.ExistsBy(ctx, types.NewQueryPlan().Eq("username", "m30"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo,
		entity.NewMember("a", 10, nil),
		entity.NewMember("b", 20, nil),
		entity.NewMember("c", 30, nil),
	)

	n, err := repo.DeleteAll(ctx, types.NewQueryPlan().Lt("age", 25))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeleteAll(ctx, types.NewQueryPlan().In("username", []string{}))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = repo.DeleteAll(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFilterPositional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(newTestDB(t))
	saveMembers(t, repo, entity.NewMember("AAA", 10, nil), entity.NewMember("BBB", 20, nil))

	found, err := repo.Filter(ctx, types.NewQueryFilter("age > ?", 15))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "BBB", found[0].Username)

	found, err = repo.Filter(ctx, types.NewNamedQueryFilter("username IN (:names)",
		map[string]interface{}{"names": []string{"AAA", "BBB"}}))
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = repo.Filter(ctx, types.NewNamedQueryFilter("age > :min", map[string]interface{}{}))
	assert.Error(t, err)
}

func TestTeamRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	teams := NewTeamRepository(db)
	members := NewMemberRepository(db)

	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	require.NoError(t, teams.Save(ctx, teamA, teamB))
	saveMembers(t, members,
		entity.NewMember("member1", 10, teamA),
		entity.NewMember("member2", 20, teamA),
		entity.NewMember("member3", 30, teamB),
	)

	found, err := teams.FindByName(ctx, "teamB")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, teamB.ID, found.ID)

	withMembers, err := teams.FindWithMembers(ctx, teamA.ID)
	require.NoError(t, err)
	require.NotNil(t, withMembers)
	assert.Len(t, withMembers.Members, 2)

	none, err := teams.FindByName(ctx, "teamC")
	require.NoError(t, err)
	assert.Nil(t, none)
}
